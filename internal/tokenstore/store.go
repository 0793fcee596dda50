// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package tokenstore keeps one verification token per e-mail address with a
// time-to-live. The last write for an address wins.
package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned when no live token exists for an address.
var ErrNotFound = errors.New("verification token not found")

const (
	// TokenTTL is the lifetime of a verification token.
	TokenTTL = 24 * time.Hour
	// KeyPrefix namespaces token keys in shared caches.
	KeyPrefix = "account_verification:"
)

type Store interface {
	// Put stores token for email, replacing any previous token.
	Put(ctx context.Context, email, token string, ttl time.Duration) error
	// Get returns the live token for email or ErrNotFound.
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

// GenerateToken returns 32 random bytes as a 64-character hex string.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
