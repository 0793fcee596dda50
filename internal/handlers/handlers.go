// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers.
package handlers

import (
	"net/http"

	"codeberg.org/godrive/accounts/internal/clock"
	"codeberg.org/godrive/accounts/internal/repository"
	"codeberg.org/godrive/accounts/internal/services/approval"
	"codeberg.org/godrive/accounts/internal/services/auth"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/services/verification"
	"codeberg.org/godrive/accounts/internal/storage"
	"codeberg.org/godrive/accounts/internal/templates"
	"github.com/labstack/echo/v4"
)

// Deps are the services the handlers call.
type Deps struct {
	Repo         *repository.Repository
	Verification *verification.Service
	Auth         *auth.Service
	Approval     *approval.Service
	Sessions     *session.Manager
	Files        *storage.Local
	Clock        clock.Clock
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo         *repository.Repository
	verification *verification.Service
	auth         *auth.Service
	approval     *approval.Service
	sessions     *session.Manager
	files        *storage.Local
	clock        clock.Clock
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	return &Handlers{
		repo:         d.Repo,
		verification: d.Verification,
		auth:         d.Auth,
		approval:     d.Approval,
		sessions:     d.Sessions,
		files:        d.Files,
		clock:        d.Clock,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if h.repo != nil {
		if err := h.repo.DB().PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Home renders the home page.
func (h *Handlers) Home(c echo.Context) error {
	return Render(c, http.StatusOK, templates.Home())
}
