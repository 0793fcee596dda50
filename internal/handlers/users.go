// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/repository"
	"codeberg.org/godrive/accounts/internal/services/approval"
	"codeberg.org/godrive/accounts/internal/services/auth"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/services/verification"
	"codeberg.org/godrive/accounts/internal/templates"
	"github.com/labstack/echo/v4"
)

// Dashboard renders the dashboard of the logged-in user.
func (h *Handlers) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	user := appcontext.GetUser(ctx)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	var accounts []models.User
	if user.IsAdmin() {
		var err error
		if accounts, err = h.repo.ListUsers(ctx, "", ""); err != nil {
			return err
		}
	}
	return Render(c, http.StatusOK, templates.Dashboard(user, accounts))
}

// Approve activates a pending owner.
func (h *Handlers) Approve(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, outcome, err := h.approval.Approve(ctx, id)

	var flash session.Flash
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound)
	case errors.Is(err, approval.ErrNotOwner):
		flash = session.Flash{Kind: session.FlashError, Message: i18n.T(ctx, "flash_not_owner")}
	case err != nil:
		return err
	case outcome == approval.OutcomeAlreadyActive:
		flash = session.Flash{Kind: session.FlashInfo, Message: i18n.T(ctx, "flash_already_active")}
	default:
		flash = session.Flash{Kind: session.FlashSuccess, Message: i18n.T(ctx, "flash_owner_approved")}
	}

	if wantsJSON(c) {
		body := map[string]any{"message": flash.Message, "kind": flash.Kind}
		if err == nil {
			body["outcome"] = outcome.String()
			body["status"] = user.Status
		}
		return c.JSON(http.StatusOK, body)
	}
	return h.redirectWithFlash(c, http.StatusSeeOther, "/dashboard", flash)
}

// adminForm holds the fields shared by the admin create and edit forms.
type adminForm struct { //nolint:govet // fieldalignment: readability over optimization
	email    string
	password string
	userType models.UserType
	status   models.Status
	profile  verification.Profile
	idPhoto  *multipart.FileHeader
	photo    *multipart.FileHeader
}

// parseAdminForm reads the admin user form. The user type is required when
// creating; on edits every field is optional.
func parseAdminForm(c echo.Context, v *formErrors, requireType bool) adminForm {
	form := adminForm{
		email:    c.FormValue("email"),
		password: c.FormValue("password"),
	}
	if raw := c.FormValue("user_type"); raw != "" || requireType {
		if t, err := models.ParseUserType(raw); err != nil {
			v.add("user_type", "validation_user_type", nil)
		} else {
			form.userType = t
		}
	}
	if raw := c.FormValue("status"); raw != "" {
		if s, err := models.ParseStatus(raw); err != nil {
			v.add("status", "validation_required", nil)
		} else {
			form.status = s
		}
	}

	form.profile = verification.Profile{
		Firstname:   strings.TrimSpace(c.FormValue("firstname")),
		Lastname:    strings.TrimSpace(c.FormValue("lastname")),
		Gender:      strings.TrimSpace(c.FormValue("gender")),
		PhoneNumber: strings.TrimSpace(c.FormValue("phone_number")),
		Address:     strings.TrimSpace(c.FormValue("address")),
		IDType:      strings.TrimSpace(c.FormValue("id_type")),
	}
	if raw := c.FormValue("birthdate"); raw != "" {
		if birthdate, err := time.Parse(dateLayout, raw); err != nil {
			v.add("birthdate", "validation_date", nil)
		} else {
			form.profile.Birthdate = birthdate
		}
	}
	if raw := c.FormValue("age"); raw != "" {
		if age, err := strconv.Atoi(raw); err != nil || age < 1 || age > 150 {
			v.add("age", "validation_age", nil)
		} else {
			form.profile.Age = age
		}
	}
	form.idPhoto = v.file(c, "id_photo", false, idPhotoTypes, maxIDPhotoMB, "validation_id_photo_type")
	form.photo = v.file(c, "photo", false, photoTypes, maxPhotoMB, "validation_photo_type")
	return form
}

// accountError maps service errors of the admin forms onto form fields. It
// returns err unchanged when no field is to blame.
func accountError(v *formErrors, err error) error {
	var perr *auth.PasswordError
	switch {
	case errors.Is(err, auth.ErrInvalidEmail):
		v.add("email", "validation_email", nil)
	case errors.Is(err, auth.ErrUserExists):
		v.add("email", "validation_email_taken", nil)
	case errors.As(err, &perr):
		v.errs["password"] = perr.Messages[0]
	default:
		return err
	}
	return nil
}

// CreateUser lets an admin create a verified account.
func (h *Handlers) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	v := newFormErrors(ctx)

	form := parseAdminForm(c, v, true)
	if len(v.errs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": v.errs})
	}

	user, err := h.auth.CreateUser(ctx, auth.CreateUserParams{
		Email:    form.email,
		Password: form.password,
		UserType: form.userType,
		Status:   form.status,
		Profile:  form.profile,
		IDPhoto:  form.idPhoto,
		Photo:    form.photo,
	})
	if err != nil {
		if err := accountError(v, err); err != nil {
			return err
		}
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": v.errs})
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, accountJSON(user))
	}
	return h.redirectWithFlash(c, http.StatusSeeOther, "/dashboard", session.Flash{
		Kind:    session.FlashSuccess,
		Message: i18n.T(ctx, "flash_user_created"),
	})
}

// UpdateUser lets an admin edit an account, including its type and status.
func (h *Handlers) UpdateUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	v := newFormErrors(ctx)

	form := parseAdminForm(c, v, false)
	if len(v.errs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": v.errs})
	}
	if current := appcontext.GetUser(ctx); current != nil && current.ID == id &&
		(form.userType != "" && form.userType != current.UserType || form.status != "" && form.status != current.Status) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "You cannot change the type or status of your own account.")
	}

	user, err := h.auth.UpdateUser(ctx, id, auth.UpdateUserParams{
		Email:    form.email,
		Password: form.password,
		UserType: form.userType,
		Status:   form.status,
		Profile:  form.profile,
		IDPhoto:  form.idPhoto,
		Photo:    form.photo,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		if err := accountError(v, err); err != nil {
			return err
		}
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": v.errs})
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, accountJSON(user))
	}
	return h.redirectWithFlash(c, http.StatusSeeOther, "/dashboard", session.Flash{
		Kind:    session.FlashSuccess,
		Message: i18n.T(ctx, "flash_user_updated"),
	})
}

func accountJSON(user *models.User) map[string]any {
	return map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"user_type": user.UserType,
		"status":    user.Status,
	}
}

// DeleteUser removes an account and its files.
func (h *Handlers) DeleteUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if current := appcontext.GetUser(ctx); current != nil && current.ID == id {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "You cannot delete your own account.")
	}

	if _, err := h.auth.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}

	message := i18n.T(ctx, "flash_user_deleted")
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]string{"message": message})
	}
	return h.redirectWithFlash(c, http.StatusSeeOther, "/dashboard", session.Flash{
		Kind:    session.FlashSuccess,
		Message: message,
	})
}

func userID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	return id, nil
}
