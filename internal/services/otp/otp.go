// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp generates and checks six-digit one-time verification codes.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"codeberg.org/godrive/accounts/internal/models"
)

// TTL is how long an issued code stays valid.
const TTL = 10 * time.Minute

// Length is the number of digits in a code.
const Length = 6

var upperBound = big.NewInt(1_000_000)

// Generate returns a uniformly random code between 000000 and 999999.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Result is the outcome of checking a candidate code.
type Result int

const (
	Valid Result = iota
	UserNotFound
	InvalidCode
	Expired
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case UserNotFound:
		return "user-not-found"
	case InvalidCode:
		return "invalid-code"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Validate checks candidate against the code stored on user. A nil user
// yields UserNotFound. The stored code is never consumed.
func Validate(user *models.User, candidate string, now time.Time) Result {
	if user == nil {
		return UserNotFound
	}

	pending := user.PendingOTP()
	if pending == nil || pending.Code != candidate {
		return InvalidCode
	}
	if pending.Expired(now) {
		return Expired
	}
	return Valid
}
