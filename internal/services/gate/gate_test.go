// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package gate_test

import (
	"testing"

	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/gate"
	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		user   *models.User
		allow  bool
		reason string
	}{
		{"anonymous", nil, true, ""},
		{"active", &models.User{Status: models.StatusActive}, true, ""},
		{"inactive", &models.User{Status: models.StatusInactive}, false, gate.ReasonPendingApproval},
		{"blocked", &models.User{Status: models.StatusBlocked}, false, gate.ReasonBlocked},
		{"unknown", &models.User{Status: "suspended"}, false, gate.ReasonNotActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Check(tt.user)

			assert.Equal(t, tt.allow, d.Allow)
			assert.Equal(t, tt.reason, d.Reason)
			if !tt.allow {
				assert.NotEmpty(t, d.MessageID)
				assert.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestCheck_BlockedMentionsSupport(t *testing.T) {
	d := gate.Check(&models.User{Status: models.StatusBlocked})

	assert.Contains(t, d.Message, "contact support")
}

func TestCheck_Idempotent(t *testing.T) {
	user := &models.User{Status: models.StatusBlocked}

	assert.Equal(t, gate.Check(user), gate.Check(user))
	assert.Equal(t, gate.Check(nil), gate.Check(nil))
}
