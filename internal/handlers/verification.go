// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/middleware"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/services/verification"
	"codeberg.org/godrive/accounts/internal/templates"
	"github.com/labstack/echo/v4"
)

// AccountPage renders the verification form for the e-mailed link.
func (h *Handlers) AccountPage(c echo.Context) error {
	ctx := c.Request().Context()
	email, _ := normalizeEmail(c.QueryParam("email"))
	token := c.QueryParam("token")

	if email == "" || token == "" {
		return h.redirectWithFlash(c, http.StatusSeeOther, middleware.LoginPath, session.Flash{
			Kind:    session.FlashError,
			Message: i18n.T(ctx, "verification_link_missing"),
		})
	}
	if !h.verification.ValidateVerificationToken(ctx, email, token) {
		return h.redirectWithFlash(c, http.StatusSeeOther, middleware.LoginPath, session.Flash{
			Kind:    session.FlashError,
			Message: i18n.T(ctx, "verification_invalid_token"),
		})
	}

	userType := models.UserTypeCustomer
	if t, err := models.ParseUserType(c.QueryParam("type")); err == nil && t == models.UserTypeOwner {
		userType = t
	}

	return Render(c, http.StatusOK, templates.VerifyAccount(templates.VerifyForm{
		Email:    email,
		Token:    token,
		UserType: string(userType),
	}))
}

// OwnerApplication renders the verification form without a token.
func (h *Handlers) OwnerApplication(c echo.Context) error {
	return Render(c, http.StatusOK, templates.VerifyAccount(templates.VerifyForm{
		UserType:         string(models.UserTypeOwner),
		OwnerApplication: true,
	}))
}

// SendOTPRequest is the request body for issuing a code.
type SendOTPRequest struct {
	Email               string `json:"email" form:"email"`
	IsOwnerRegistration bool   `json:"is_owner_registration" form:"is_owner_registration"`
}

// SendOTP issues a one-time code.
func (h *Handlers) SendOTP(c echo.Context) error {
	var req SendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request"})
	}

	ctx := c.Request().Context()
	email, ok := normalizeEmail(req.Email)
	if !ok {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"message": i18n.T(ctx, "validation_email"),
			"errors":  map[string]string{verification.FieldEmail: i18n.T(ctx, "validation_email")},
		})
	}

	if err := h.verification.SendOTP(ctx, email, req.IsOwnerRegistration); err != nil {
		if verr, ok := verification.AsError(err); ok {
			return c.JSON(verr.Status, map[string]string{"message": verificationMessage(c, verr)})
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": i18n.T(ctx, "otp_sent")})
}

// VerifyOTPRequest is the request body for checking a code.
type VerifyOTPRequest struct {
	Email string `json:"email" form:"email"`
	OTP   string `json:"otp" form:"otp"`
}

// VerifyOTP checks a code without consuming it.
func (h *Handlers) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"message": "invalid request", "valid": false})
	}

	ctx := c.Request().Context()
	email, ok := normalizeEmail(req.Email)
	errs := map[string]string{}
	if !ok {
		errs[verification.FieldEmail] = i18n.T(ctx, "validation_email")
	}
	if !isOTP(req.OTP) {
		errs[verification.FieldOTP] = i18n.T(ctx, "validation_otp_size")
	}
	if len(errs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"message": firstError(errs), "valid": false, "errors": errs})
	}

	if err := h.verification.ValidateOTP(ctx, email, req.OTP); err != nil {
		if verr, ok := verification.AsError(err); ok {
			return c.JSON(verr.Status, map[string]any{"message": verificationMessage(c, verr), "valid": false})
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"message": i18n.T(ctx, "otp_valid"), "valid": true})
}

// Verify completes account verification. Pending owners are sent home;
// everyone else is logged in and sent to the dashboard.
func (h *Handlers) Verify(c echo.Context) error {
	ctx := c.Request().Context()

	in, errs := validateVerifyForm(c, h.clock.Now())
	if len(errs) > 0 {
		return h.verifyFailed(c, in, errs)
	}

	user, err := h.verification.VerifyAccount(ctx, in)
	if err != nil {
		if verr, ok := verification.AsError(err); ok {
			return h.verifyFailed(c, in, map[string]string{verr.Field: verificationMessage(c, verr)})
		}
		return err
	}

	if user.IsOwner() && !user.IsActive() {
		return h.redirectWithFlash(c, http.StatusSeeOther, "/", session.Flash{
			Kind:    session.FlashSuccess,
			Message: i18n.T(ctx, "flash_owner_pending"),
		})
	}

	cookie, err := h.sessions.Create(user.ID, user.Email)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)

	slog.InfoContext(ctx, "login_success", "user_id", user.ID, "email", user.Email, "via", "verification")
	return h.redirectWithFlash(c, http.StatusSeeOther, "/dashboard", session.Flash{
		Kind:    session.FlashSuccess,
		Message: i18n.T(ctx, "flash_account_verified"),
	})
}

func (h *Handlers) verifyFailed(c echo.Context, in verification.VerifyAccountInput, errs map[string]string) error {
	if wantsJSON(c) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": errs})
	}

	form := templates.VerifyForm{
		Email:            in.Email,
		Token:            in.Token,
		UserType:         c.FormValue("user_type"),
		OwnerApplication: in.Token == "",
		Values:           map[string]string{},
		Errors:           errs,
	}
	for _, name := range []string{"firstname", "lastname", "gender", "birthdate", "age", "phone_number", "address", "id_type"} {
		form.Values[name] = c.FormValue(name)
	}
	return Render(c, http.StatusUnprocessableEntity, templates.VerifyAccount(form))
}

// ResendRequest is the request body for a new verification link.
type ResendRequest struct {
	Email string `json:"email" form:"email"`
}

// Resend issues a new verification link and redirects back.
func (h *Handlers) Resend(c echo.Context) error {
	var req ResendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	ctx := c.Request().Context()
	back := backURL(c, middleware.LoginPath)

	email, ok := normalizeEmail(req.Email)
	if !ok {
		msg := i18n.T(ctx, "validation_email")
		return h.redirectWithFlash(c, http.StatusSeeOther, back, session.Flash{
			Kind:    session.FlashError,
			Message: msg,
			Errors:  map[string]string{verification.FieldEmail: msg},
		})
	}

	if err := h.verification.ResendVerification(ctx, email); err != nil {
		verr, ok := verification.AsError(err)
		if !ok {
			return err
		}
		msg := verificationMessage(c, verr)
		return h.redirectWithFlash(c, http.StatusSeeOther, back, session.Flash{
			Kind:    session.FlashError,
			Message: msg,
			Errors:  map[string]string{verification.FieldEmail: msg},
		})
	}

	return h.redirectWithFlash(c, http.StatusSeeOther, back, session.Flash{
		Kind:    session.FlashStatus,
		Message: i18n.T(ctx, "flash_verification_link_sent"),
	})
}

func firstError(errs map[string]string) string {
	for _, field := range []string{verification.FieldToken, verification.FieldEmail, verification.FieldOTP} {
		if msg, ok := errs[field]; ok {
			return msg
		}
	}
	for _, msg := range errs {
		return msg
	}
	return ""
}
