// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"net/http"
	"strings"

	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/config"
	appmw "codeberg.org/godrive/accounts/internal/middleware"
	"codeberg.org/godrive/accounts/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config, sessions *session.Manager, users appmw.UserLoader) {
	e.Pre(appmw.StripTrailingSlash)
	e.Pre(middleware.BodyLimit(fmt.Sprintf("%dM", bodyLimitMB(cfg))))
	e.Pre(middleware.MethodOverrideWithConfig(middleware.MethodOverrideConfig{
		Getter: middleware.MethodFromForm("_method"),
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.Gzip())
	e.Use(csrfMiddleware(cfg))
	e.Use(csrfToContext())
	e.Use(appmw.Locale())
	e.Use(appmw.Flash(sessions))
	e.Use(appmw.LoadUser(sessions, users))
	e.Use(appmw.EnsureActive(sessions))
}

// bodyLimitMB leaves room for the two uploads of the verification form.
func bodyLimitMB(cfg *config.Config) int {
	return max(cfg.Server.MaxBodySize, 2*cfg.Uploads.MaxSize+1)
}

// csrfMiddleware configures CSRF protection.
func csrfMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")

	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:csrf_token,header:X-CSRF-Token",
		CookieName:     appmw.CSRFCookieName,
		CookiePath:     "/",
		CookieSecure:   secure,
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

// csrfToContext copies the CSRF token to the request context.
func csrfToContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
				ctx := appcontext.WithCSRFToken(c.Request().Context(), token)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}
