// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"slices"

	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/storage"
	"github.com/labstack/echo/v4"
)

// Upload serves a stored photo. Admins may read every file, everybody else
// only the files of their own account. Other files answer 404 so their
// existence is not revealed.
func (h *Handlers) Upload(c echo.Context) error {
	user := appcontext.GetUser(c.Request().Context())
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	ref := storage.URLPrefix + "/" + c.Param("name")
	if !user.IsAdmin() && !slices.Contains(user.Files(), ref) {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	p, err := h.files.Path(ref)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
	return c.File(p)
}
