// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package approval_test

import (
	"context"
	"testing"

	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/repository"
	"codeberg.org/godrive/accounts/internal/services/approval"
	"codeberg.org/godrive/accounts/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprove_PendingOwner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := approval.NewService(repo)
	ctx := context.Background()
	owner := testutil.NewTestUser(t, repo, "b@y.com", testutil.WithType(models.UserTypeOwner), testutil.WithStatus(models.StatusInactive))
	verifiedAt := owner.EmailVerifiedAt

	user, outcome, err := svc.Approve(ctx, owner.ID)

	require.NoError(t, err)
	assert.Equal(t, approval.OutcomeApproved, outcome)
	assert.Equal(t, models.StatusActive, user.Status)

	stored, err := repo.GetUserByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Equal(t, verifiedAt == nil, stored.EmailVerifiedAt == nil, "verification timestamp unchanged")
}

func TestApprove_Idempotent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := approval.NewService(repo)
	ctx := context.Background()
	owner := testutil.NewTestUser(t, repo, "b@y.com", testutil.WithType(models.UserTypeOwner), testutil.WithStatus(models.StatusInactive))

	_, first, err := svc.Approve(ctx, owner.ID)
	require.NoError(t, err)
	user, second, err := svc.Approve(ctx, owner.ID)

	require.NoError(t, err)
	assert.Equal(t, approval.OutcomeApproved, first)
	assert.Equal(t, approval.OutcomeAlreadyActive, second)
	assert.Equal(t, models.StatusActive, user.Status)
}

func TestApprove_NotOwner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := approval.NewService(repo)
	customer := testutil.NewTestUser(t, repo, "a@x.com", testutil.WithStatus(models.StatusInactive))

	_, _, err := svc.Approve(context.Background(), customer.ID)

	assert.ErrorIs(t, err, approval.ErrNotOwner)
	stored, err := repo.GetUserByID(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, stored.Status)
}

func TestApprove_UnknownUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	svc := approval.NewService(repo)

	_, _, err := svc.Approve(context.Background(), 404)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}
