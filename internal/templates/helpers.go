// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates renders the HTML pages. The components live in .templ
// files; run `templ generate` after editing them.
package templates

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/models"
)

// CSRFToken returns the CSRF token from the context.
func CSRFToken(ctx context.Context) string {
	return appcontext.GetCSRFToken(ctx)
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return i18n.T(ctx, messageID)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return i18n.TData(ctx, messageID, data)
}

// Locale returns the current locale.
func Locale(ctx context.Context) string {
	return i18n.GetLocale(ctx)
}

// GetUser returns the authenticated user from context, or nil if not logged in.
func GetUser(ctx context.Context) *models.User {
	return appcontext.GetUser(ctx)
}

func errorTitle(code int) string {
	text := http.StatusText(code)
	if text == "" {
		text = "Error"
	}
	return fmt.Sprintf("%d %s", code, text)
}

func userPath(id int64) string {
	return "/user/" + strconv.FormatInt(id, 10)
}
