// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/middleware"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/auth"
	"codeberg.org/godrive/accounts/internal/services/gate"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/templates"
	"github.com/labstack/echo/v4"
)

// RegisterPage renders the registration page.
func (h *Handlers) RegisterPage(c echo.Context) error {
	return Render(c, http.StatusOK, templates.Register(templates.RegisterForm{
		Owner: c.QueryParam("type") == string(models.UserTypeOwner),
	}, nil))
}

// Register creates an inactive account and sends the verification link.
func (h *Handlers) Register(c echo.Context) error {
	ctx := c.Request().Context()
	form := templates.RegisterForm{
		Email:     c.FormValue("email"),
		Firstname: c.FormValue("firstname"),
		Lastname:  c.FormValue("lastname"),
		Owner:     c.FormValue("user_type") == string(models.UserTypeOwner),
	}

	userType := models.UserTypeCustomer
	if form.Owner {
		userType = models.UserTypeOwner
	}

	_, err := h.auth.Register(ctx, auth.RegisterParams{
		Email:     form.Email,
		Password:  c.FormValue("password"),
		Firstname: form.Firstname,
		Lastname:  form.Lastname,
		UserType:  userType,
	})

	var perr *auth.PasswordError
	switch {
	case err == nil:
		return h.redirectWithFlash(c, http.StatusSeeOther, middleware.LoginPath, session.Flash{
			Kind:    session.FlashSuccess,
			Message: i18n.T(ctx, "flash_register_success"),
		})
	case errors.Is(err, auth.ErrInvalidEmail):
		return Render(c, http.StatusUnprocessableEntity, templates.Register(form, map[string]string{"email": i18n.T(ctx, "validation_email")}))
	case errors.Is(err, auth.ErrUserExists):
		return Render(c, http.StatusUnprocessableEntity, templates.Register(form, map[string]string{"email": i18n.T(ctx, "validation_email_taken")}))
	case errors.As(err, &perr):
		return Render(c, http.StatusUnprocessableEntity, templates.Register(form, map[string]string{"password": perr.Messages[0]}))
	default:
		return err
	}
}

// LoginPage renders the login page.
func (h *Handlers) LoginPage(c echo.Context) error {
	return Render(c, http.StatusOK, templates.Login(""))
}

// Login checks the credentials and the account status and starts a session.
func (h *Handlers) Login(c echo.Context) error {
	ctx := c.Request().Context()
	email := c.FormValue("email")

	user, err := h.auth.Login(ctx, email, c.FormValue("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		withFlash(c, session.Flash{Kind: session.FlashError, Message: i18n.T(ctx, "flash_login_invalid")})
		return Render(c, http.StatusUnauthorized, templates.Login(email))
	}
	if err != nil {
		return err
	}

	if decision := gate.Check(user); !decision.Allow {
		slog.WarnContext(ctx, "login_refused", "user_id", user.ID, "status", user.Status, "reason", decision.Reason)
		withFlash(c, session.Flash{Kind: session.FlashError, Message: i18n.TDefault(ctx, decision.MessageID, decision.Message)})
		return Render(c, http.StatusForbidden, templates.Login(email))
	}

	cookie, err := h.sessions.Create(user.ID, user.Email)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout ends the session.
func (h *Handlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return h.redirectWithFlash(c, http.StatusSeeOther, "/", session.Flash{
		Kind:    session.FlashInfo,
		Message: h.t(c, "flash_logged_out"),
	})
}
