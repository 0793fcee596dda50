// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification

import (
	"time"

	"codeberg.org/godrive/accounts/internal/models"
)

// State is the position of an account in the verification flow.
type State string

const (
	StateUnverified           State = "unverified"
	StateOTPPending           State = "otp-pending"
	StateOTPConfirmed         State = "otp-confirmed"
	StateVerified             State = "verified"
	StatePendingAdminApproval State = "pending-admin-approval"
)

// StateOf derives the state of a stored record. StateOTPConfirmed only
// exists within a single VerifyAccount call and is never returned.
func StateOf(user *models.User, now time.Time) State {
	if !user.EmailVerified() {
		if p := user.PendingOTP(); p != nil && !p.Expired(now) {
			return StateOTPPending
		}
		return StateUnverified
	}

	if user.IsOwner() && user.Status == models.StatusInactive {
		return StatePendingAdminApproval
	}
	return StateVerified
}
