// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package approval activates owner accounts on behalf of an admin.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/godrive/accounts/internal/metrics"
	"codeberg.org/godrive/accounts/internal/models"
)

// ErrNotOwner is returned when the account is not an owner account.
var ErrNotOwner = errors.New("only owner accounts can be approved")

// Outcome of a successful approval request.
type Outcome int

const (
	OutcomeApproved Outcome = iota
	OutcomeAlreadyActive
)

func (o Outcome) String() string {
	if o == OutcomeAlreadyActive {
		return "already_active"
	}
	return "approved"
}

type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUserStatus(ctx context.Context, id int64, status models.Status) error
}

type Service struct {
	users UserStore
}

func NewService(users UserStore) *Service {
	return &Service{users: users}
}

// Approve activates the owner account with userID. Approving an active
// owner changes nothing and reports OutcomeAlreadyActive. The verification
// timestamp is left untouched and no notification is sent.
func (s *Service) Approve(ctx context.Context, userID int64) (*models.User, Outcome, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("get user %d: %w", userID, err)
	}

	if !user.IsOwner() {
		metrics.ApprovalsTotal.WithLabelValues("not_owner").Inc()
		return user, 0, ErrNotOwner
	}

	if user.IsActive() {
		metrics.ApprovalsTotal.WithLabelValues(OutcomeAlreadyActive.String()).Inc()
		return user, OutcomeAlreadyActive, nil
	}

	if err := s.users.UpdateUserStatus(ctx, user.ID, models.StatusActive); err != nil {
		return nil, 0, fmt.Errorf("activate user %d: %w", userID, err)
	}
	user.Status = models.StatusActive

	metrics.ApprovalsTotal.WithLabelValues(OutcomeApproved.String()).Inc()
	slog.InfoContext(ctx, "owner_approved", "user_id", user.ID, "email", user.Email)

	return user, OutcomeApproved, nil
}
