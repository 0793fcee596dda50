// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/mail"
	"net/url"
	"strings"

	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/middleware"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/services/verification"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render renders a templ component with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(statusCode, buf.String())
}

// redirectWithFlash stores a flash for the next request and redirects.
func (h *Handlers) redirectWithFlash(c echo.Context, code int, target string, f session.Flash) error {
	cookie, err := h.sessions.SetFlash(f)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	return c.Redirect(code, target)
}

// withFlash shows f on the page rendered by the current request.
func withFlash(c echo.Context, f session.Flash) {
	ctx := appcontext.WithFlash(c.Request().Context(), &f)
	c.SetRequest(c.Request().WithContext(ctx))
}

func (h *Handlers) t(c echo.Context, messageID string) string {
	return i18n.T(c.Request().Context(), messageID)
}

// verificationMessage translates a verification failure.
func verificationMessage(c echo.Context, verr *verification.Error) string {
	return i18n.TDefault(c.Request().Context(), verr.MessageID(), verr.Message)
}

// backURL returns the local part of the Referer, or fallback.
func backURL(c echo.Context, fallback string) string {
	ref, err := url.Parse(c.Request().Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return fallback
	}
	return ref.RequestURI()
}

func wantsJSON(c echo.Context) bool {
	return middleware.WantsJSON(c)
}

// normalizeEmail trims and lowercases email and reports whether it is a
// bare address.
func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	return email, err == nil && addr.Address == email
}
