// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/services/session"
	"github.com/labstack/echo/v4"
)

// Locale sets the locale based on the Accept-Language header.
func Locale() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := i18n.MatchLanguage(c.Request().Header.Get("Accept-Language"))
			ctx := i18n.WithLocale(c.Request().Context(), lang)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// Flash moves the flash message of the request into the context and
// deletes its cookie.
func Flash(sm *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			f, expired := sm.PopFlash(c.Request())
			if expired != nil {
				c.SetCookie(expired)
			}
			if f != nil {
				ctx := appcontext.WithFlash(c.Request().Context(), f)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}
