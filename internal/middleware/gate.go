// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"log/slog"
	"net/http"

	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/metrics"
	"codeberg.org/godrive/accounts/internal/services/gate"
	"codeberg.org/godrive/accounts/internal/services/session"
	"github.com/labstack/echo/v4"
)

// CSRFCookieName is the cookie holding the CSRF token.
const CSRFCookieName = "_csrf"

// EnsureActive logs out authenticated users whose account is not active.
// The session and CSRF cookies are cleared, the reason is flashed and the
// client is sent to the login page. API clients get a 403.
func EnsureActive(sm *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			user := appcontext.GetUser(ctx)

			decision := gate.Check(user)
			if decision.Allow {
				return next(c)
			}

			metrics.GateDenialsTotal.WithLabelValues(string(user.Status)).Inc()
			slog.WarnContext(ctx, "account_gate_denied",
				"user_id", user.ID,
				"status", user.Status,
				"reason", decision.Reason,
			)

			c.SetCookie(sm.Clear())
			c.SetCookie(&http.Cookie{
				Name:     CSRFCookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			})
			c.SetRequest(c.Request().WithContext(appcontext.WithUser(ctx, nil)))

			message := i18n.TDefault(ctx, decision.MessageID, decision.Message)
			if WantsJSON(c) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": message})
			}

			flash, err := sm.SetFlash(session.Flash{Kind: session.FlashError, Message: message})
			if err != nil {
				return err
			}
			c.SetCookie(flash)
			return c.Redirect(http.StatusSeeOther, LoginPath)
		}
	}
}
