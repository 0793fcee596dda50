// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext carries per-request values from middleware to
// handlers and views.
package appcontext

import (
	"context"

	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/session"
)

// Context keys for storing values in context.Context.
type (
	// CSRFToken is the context key for the CSRF token.
	CSRFToken struct{}
	// User is the context key for the authenticated user.
	User struct{}
	// Flash is the context key for the flash message of the request.
	Flash struct{}
)

// WithUser stores the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User{}, user)
}

// GetUser returns the authenticated user, or nil if not authenticated.
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(User{}).(*models.User); ok {
		return user
	}
	return nil
}

// IsAuthenticated returns true if the user is authenticated.
func IsAuthenticated(ctx context.Context) bool {
	return GetUser(ctx) != nil
}

// WithCSRFToken stores the CSRF token for forms.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFToken{}, token)
}

// GetCSRFToken returns the CSRF token from the context.
func GetCSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(CSRFToken{}).(string); ok {
		return token
	}
	return ""
}

func WithFlash(ctx context.Context, f *session.Flash) context.Context {
	return context.WithValue(ctx, Flash{}, f)
}

// GetFlash returns the flash message shown on this request, if any.
func GetFlash(ctx context.Context) *session.Flash {
	if f, ok := ctx.Value(Flash{}).(*session.Flash); ok {
		return f
	}
	return nil
}
