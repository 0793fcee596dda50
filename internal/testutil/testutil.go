// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codeberg.org/godrive/accounts/internal/database"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Password is the plain-text password of users created by NewTestUser.
const Password = "password123"

var (
	hashOnce sync.Once
	hash     string
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// NewTestUser creates an active, verified customer. Options adjust the
// record before it is inserted.
func NewTestUser(t *testing.T, repo *repository.Repository, email string, opts ...func(*models.User)) *models.User {
	t.Helper()

	hashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	})

	verified := time.Now().UTC()
	user := &models.User{
		Email:           email,
		Firstname:       "Test",
		Lastname:        "User",
		PasswordHash:    hash,
		UserType:        models.UserTypeCustomer,
		Status:          models.StatusActive,
		EmailVerifiedAt: &verified,
	}
	for _, opt := range opts {
		opt(user)
	}

	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// WithType sets the user type.
func WithType(userType models.UserType) func(*models.User) {
	return func(u *models.User) { u.UserType = userType }
}

// WithStatus sets the status. Inactive users are created unverified.
func WithStatus(status models.Status) func(*models.User) {
	return func(u *models.User) {
		u.Status = status
		if status == models.StatusInactive {
			u.EmailVerifiedAt = nil
		}
	}
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}
