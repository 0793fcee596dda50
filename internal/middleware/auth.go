// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds the echo middleware that loads the session user
// and enforces authentication, roles and account status.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/repository"
	"codeberg.org/godrive/accounts/internal/services/session"
	"github.com/labstack/echo/v4"
)

// LoginPath is where unauthenticated and denied users are sent.
const LoginPath = "/auth/login"

// UserLoader is an interface for loading full user data
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// LoadUser loads the session user into the request context. Sessions of
// deleted users are cleared.
func LoadUser(sm *session.Manager, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			data, _ := sm.Parse(c.Request())
			if data == nil {
				return next(c)
			}

			ctx := c.Request().Context()
			user, err := users.GetUserByID(ctx, data.UserID)
			if errors.Is(err, repository.ErrNotFound) {
				c.SetCookie(sm.Clear())
				return next(c)
			}
			if err != nil {
				return err
			}

			c.SetRequest(c.Request().WithContext(appcontext.WithUser(ctx, user)))
			return next(c)
		}
	}
}

// RequireAuth redirects unauthenticated users to login
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !appcontext.IsAuthenticated(c.Request().Context()) {
			if WantsJSON(c) {
				return echo.NewHTTPError(http.StatusUnauthorized)
			}
			return c.Redirect(http.StatusSeeOther, LoginPath)
		}
		return next(c)
	}
}

// RequireAdmin ensures the user is an admin
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := appcontext.GetUser(c.Request().Context())
		if user == nil || !user.IsAdmin() {
			slog.WarnContext(c.Request().Context(), "admin_required", "path", c.Request().URL.Path)
			return echo.NewHTTPError(http.StatusForbidden)
		}
		return next(c)
	}
}

// WantsJSON reports whether the client expects a JSON response rather than
// a page.
func WantsJSON(c echo.Context) bool {
	r := c.Request()
	if strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return true
	}
	if strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return true
	}
	return r.Header.Get(echo.HeaderXRequestedWith) == "XMLHttpRequest"
}
