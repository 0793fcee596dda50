// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package gate decides whether an authenticated account may keep its
// session based on its status.
package gate

import "codeberg.org/godrive/accounts/internal/models"

// Denial reasons.
const (
	ReasonPendingApproval = "pending-approval"
	ReasonBlocked         = "blocked"
	ReasonNotActive       = "not-active"
)

// Decision is the outcome of a status check. MessageID names the
// translation shown to a denied user; Message is its English text.
type Decision struct {
	Allow     bool
	Reason    string
	MessageID string
	Message   string
}

var allow = Decision{Allow: true}

// Check allows anonymous requests and active accounts and denies every
// other status.
func Check(user *models.User) Decision {
	if user == nil {
		return allow
	}

	switch user.Status {
	case models.StatusActive:
		return allow
	case models.StatusInactive:
		return Decision{
			Reason:    ReasonPendingApproval,
			MessageID: "gate_pending_approval",
			Message:   "Your account is pending approval. Please wait for admin verification.",
		}
	case models.StatusBlocked:
		return Decision{
			Reason:    ReasonBlocked,
			MessageID: "gate_blocked",
			Message:   "Your account has been blocked. Please contact support.",
		}
	}
	return Decision{
		Reason:    ReasonNotActive,
		MessageID: "gate_not_active",
		Message:   "Your account is not active.",
	}
}
