// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp_test

import (
	"testing"
	"time"

	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		code, err := otp.Generate()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
		seen[code] = struct{}{}
	}

	assert.Greater(t, len(seen), 190, "codes should rarely repeat")
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withCode := func() *models.User {
		u := &models.User{Email: "a@x.com"}
		u.SetOTP("012345", now.Add(otp.TTL))
		return u
	}

	tests := []struct {
		name      string
		user      *models.User
		candidate string
		at        time.Time
		want      otp.Result
	}{
		{"no user", nil, "012345", now, otp.UserNotFound},
		{"no code issued", &models.User{Email: "a@x.com"}, "012345", now, otp.InvalidCode},
		{"wrong code", withCode(), "543210", now, otp.InvalidCode},
		{"leading zero dropped", withCode(), "12345", now, otp.InvalidCode},
		{"valid", withCode(), "012345", now, otp.Valid},
		{"valid at exact expiry", withCode(), "012345", now.Add(otp.TTL), otp.Valid},
		{"expired", withCode(), "012345", now.Add(otp.TTL + time.Second), otp.Expired},
		{"wrong and expired", withCode(), "000000", now.Add(time.Hour), otp.InvalidCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, otp.Validate(tt.user, tt.candidate, tt.at))
		})
	}
}

func TestValidate_DoesNotConsume(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := &models.User{}
	user.SetOTP("111111", now.Add(otp.TTL))

	assert.Equal(t, otp.Valid, otp.Validate(user, "111111", now))
	assert.Equal(t, otp.Valid, otp.Validate(user, "111111", now))
	assert.NotNil(t, user.PendingOTP())
}
