// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/templates"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors as pages, or as JSON for API clients.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}

	ctx := c.Request().Context()
	var message string
	switch code {
	case http.StatusNotFound:
		message = i18n.T(ctx, "error_not_found")
	case http.StatusForbidden:
		message = i18n.T(ctx, "error_forbidden")
	case http.StatusInternalServerError:
		message = i18n.T(ctx, "error_internal")
		slog.ErrorContext(ctx, "request_failed", "path", c.Request().URL.Path, "error", err)
	default:
		message = http.StatusText(code)
		if he != nil {
			if m, ok := he.Message.(string); ok {
				message = m
			}
		}
	}

	var renderErr error
	switch {
	case c.Request().Method == http.MethodHead:
		renderErr = c.NoContent(code)
	case wantsJSON(c):
		renderErr = c.JSON(code, map[string]string{"message": message})
	default:
		renderErr = Render(c, code, templates.ErrorPage(code, message))
	}
	if renderErr != nil {
		slog.ErrorContext(ctx, "error_render_failed", "error", renderErr)
	}
}
