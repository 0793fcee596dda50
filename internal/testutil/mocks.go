// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"context"
	"mime/multipart"

	"codeberg.org/godrive/accounts/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockDispatcher records notifications.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) SendVerificationLink(ctx context.Context, user *models.User, url string) error {
	args := m.Called(ctx, user, url)
	return args.Error(0)
}

func (m *MockDispatcher) SendOtpCode(ctx context.Context, user *models.User, code string) error {
	args := m.Called(ctx, user, code)
	return args.Error(0)
}

// MockStorage stands in for file storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, file *multipart.FileHeader) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}
