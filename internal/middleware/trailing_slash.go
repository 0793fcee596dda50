// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StripTrailingSlash redirects GET requests with trailing slashes to the
// canonical URL without. It runs before routing.
func StripTrailingSlash(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		path := r.URL.Path
		if r.Method == http.MethodGet && path != "/" && strings.HasSuffix(path, "/") {
			// A single leading slash keeps the target on this host.
			target := "/" + strings.Trim(path, "/")
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			return c.Redirect(http.StatusMovedPermanently, target)
		}
		return next(c)
	}
}
