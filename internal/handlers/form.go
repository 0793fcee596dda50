// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"codeberg.org/godrive/accounts/internal/i18n"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/auth"
	"codeberg.org/godrive/accounts/internal/services/otp"
	"codeberg.org/godrive/accounts/internal/services/verification"
	"github.com/labstack/echo/v4"
)

const (
	maxIDPhotoMB = 10
	maxPhotoMB   = 5
	dateLayout   = "2006-01-02"
)

var (
	idPhotoTypes = []string{".jpg", ".jpeg", ".png", ".pdf"}
	photoTypes   = []string{".jpg", ".jpeg", ".png"}
)

// formErrors collects translated messages keyed by form field.
type formErrors struct {
	ctx  context.Context
	errs map[string]string
}

func newFormErrors(ctx context.Context) *formErrors {
	return &formErrors{ctx: ctx, errs: map[string]string{}}
}

func (f *formErrors) add(field, messageID string, data map[string]any) {
	if _, exists := f.errs[field]; !exists {
		f.errs[field] = i18n.TData(f.ctx, messageID, data)
	}
}

// text returns the trimmed value of a required text field no longer than
// maxLen characters. maxLen 0 means unlimited.
func (f *formErrors) text(c echo.Context, field string, maxLen int) string {
	v := strings.TrimSpace(c.FormValue(field))
	switch {
	case v == "":
		f.add(field, "validation_required", nil)
	case maxLen > 0 && utf8.RuneCountInString(v) > maxLen:
		f.add(field, "validation_max_length", map[string]any{"Max": maxLen})
	}
	return v
}

// file returns the uploaded file of field after checking its extension and
// size. Missing optional files yield nil.
func (f *formErrors) file(c echo.Context, field string, required bool, exts []string, maxMB int, typeMsg string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Size == 0 {
		if required {
			f.add(field, "validation_required", nil)
		}
		return nil
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	allowed := false
	for _, e := range exts {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		f.add(field, typeMsg, nil)
		return nil
	}
	if fh.Size > int64(maxMB)<<20 {
		f.add(field, "validation_file_size", map[string]any{"Max": maxMB})
		return nil
	}
	return fh
}

// validateVerifyForm checks the verification form before it reaches the
// state machine. The returned map holds one translated message per
// failing field.
func validateVerifyForm(c echo.Context, now time.Time) (verification.VerifyAccountInput, map[string]string) {
	v := newFormErrors(c.Request().Context())
	var in verification.VerifyAccountInput

	email, ok := normalizeEmail(c.FormValue("email"))
	in.Email = email
	switch {
	case email == "":
		v.add(verification.FieldEmail, "validation_required", nil)
	case !ok:
		v.add(verification.FieldEmail, "validation_email", nil)
	}

	in.Token = strings.TrimSpace(c.FormValue("token"))

	if raw := strings.TrimSpace(c.FormValue("user_type")); raw != "" {
		t, err := models.ParseUserType(raw)
		if err != nil || t == models.UserTypeAdmin {
			v.add("user_type", "validation_user_type", nil)
		} else {
			in.UserType = &t
		}
	}

	// The password is only set on the owner application.
	if in.Token == "" && in.UserType != nil && *in.UserType == models.UserTypeOwner {
		password := c.FormValue("password")
		switch {
		case password == "":
			v.add("password", "validation_required", nil)
		case utf8.RuneCountInString(password) < auth.MinPasswordLength:
			v.add("password", "validation_password_min", nil)
		case password != c.FormValue("password_confirmation"):
			v.add("password", "validation_password_mismatch", nil)
		}
		in.Password = password
	}

	in.OTP = strings.TrimSpace(c.FormValue("otp"))
	switch {
	case in.OTP == "":
		v.add(verification.FieldOTP, "validation_required", nil)
	case !isOTP(in.OTP):
		v.add(verification.FieldOTP, "validation_otp_size", nil)
	}

	p := &in.Profile
	p.Firstname = v.text(c, "firstname", 250)
	p.Lastname = v.text(c, "lastname", 250)
	p.Gender = strings.TrimSpace(c.FormValue("gender"))
	if p.Gender != "Male" && p.Gender != "Female" {
		v.add("gender", "validation_gender", nil)
	}
	if raw := v.text(c, "birthdate", 0); raw != "" {
		birthdate, err := time.Parse(dateLayout, raw)
		switch {
		case err != nil:
			v.add("birthdate", "validation_date", nil)
		case !birthdate.Before(today(now)):
			v.add("birthdate", "validation_birthdate_past", nil)
		default:
			p.Birthdate = birthdate
		}
	}
	if raw := v.text(c, "age", 0); raw != "" {
		age, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			v.add("age", "validation_number", nil)
		case age < 1 || age > 150:
			v.add("age", "validation_age", nil)
		default:
			p.Age = age
		}
	}
	p.PhoneNumber = v.text(c, "phone_number", 100)
	p.Address = v.text(c, "address", 0)
	p.IDType = v.text(c, "id_type", 100)

	in.IDPhoto = v.file(c, "id_photo", true, idPhotoTypes, maxIDPhotoMB, "validation_id_photo_type")
	in.Photo = v.file(c, "photo", false, photoTypes, maxPhotoMB, "validation_photo_type")

	if !accepted(c.FormValue("terms_accepted")) {
		v.add("terms_accepted", "validation_terms", nil)
	}

	return in, v.errs
}

func isOTP(s string) bool {
	if len(s) != otp.Length {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func accepted(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "yes", "true":
		return true
	}
	return false
}

func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
