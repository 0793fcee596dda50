// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/storage"
	"codeberg.org/godrive/accounts/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingCustomer creates an unverified customer with a live verification
// token.
func (f *fixture) pendingCustomer(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user := testutil.NewTestUser(t, f.repo, email, testutil.WithStatus(models.StatusInactive))
	require.NoError(t, f.verification.IssueVerification(context.Background(), user))
	return user, f.outbox.token(t, email)
}

func profileFields(email, token, code, userType string) map[string]string {
	return map[string]string{
		"email":          email,
		"token":          token,
		"otp":            code,
		"user_type":      userType,
		"firstname":      "Ana",
		"lastname":       "Santos",
		"gender":         "Female",
		"birthdate":      "1990-05-01",
		"age":            "35",
		"phone_number":   "+63 912 345 6789",
		"address":        "12 Mabini St, Manila",
		"id_type":        "passport",
		"terms_accepted": "on",
	}
}

func TestAccountPage(t *testing.T) {
	f := newFixture(t)
	_, token := f.pendingCustomer(t, "a@x.com")

	t.Run("valid link", func(t *testing.T) {
		c, rec := f.request(http.MethodGet, "/verification/account?email=a%40x.com&token="+token, nil, nil, nil)

		require.NoError(t, f.h.AccountPage(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="a@x.com"`)
		assert.Contains(t, rec.Body.String(), `name="user_type" value="customer"`)
	})

	t.Run("missing token", func(t *testing.T) {
		c, rec := f.request(http.MethodGet, "/verification/account?email=a%40x.com", nil, nil, nil)

		require.NoError(t, f.h.AccountPage(c))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
		assert.Equal(t, "Invalid verification link.", f.flash(t, rec).Message)
	})

	t.Run("wrong token", func(t *testing.T) {
		c, rec := f.request(http.MethodGet, "/verification/account?email=a%40x.com&token=nope", nil, nil, nil)

		require.NoError(t, f.h.AccountPage(c))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		fl := f.flash(t, rec)
		assert.Equal(t, session.FlashError, fl.Kind)
		assert.Equal(t, "Invalid or expired verification token.", fl.Message)
	})
}

func TestOwnerApplication(t *testing.T) {
	f := newFixture(t)
	c, rec := f.request(http.MethodGet, "/owner-application", nil, nil, nil)

	require.NoError(t, f.h.OwnerApplication(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="is_owner_registration"`)
	assert.Contains(t, rec.Body.String(), `name="password_confirmation"`)
}

func TestSendOTP(t *testing.T) {
	f := newFixture(t)
	f.pendingCustomer(t, "a@x.com")

	t.Run("standard flow", func(t *testing.T) {
		c, rec := f.jsonRequest(http.MethodPost, "/verification/account/send-otp", map[string]any{"email": "a@x.com"}, nil)

		require.NoError(t, f.h.SendOTP(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, f.outbox.code(t, "a@x.com"), 6)
	})

	t.Run("no verification session", func(t *testing.T) {
		testutil.NewTestUser(t, f.repo, "c@x.com", testutil.WithStatus(models.StatusInactive))
		c, rec := f.jsonRequest(http.MethodPost, "/verification/account/send-otp", map[string]any{"email": "c@x.com"}, nil)

		require.NoError(t, f.h.SendOTP(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid verification session.", decode(t, rec)["message"])
	})

	t.Run("owner application creates placeholder", func(t *testing.T) {
		c, rec := f.jsonRequest(http.MethodPost, "/verification/account/send-otp", map[string]any{
			"email":                 "b@y.com",
			"is_owner_registration": true,
		}, nil)

		require.NoError(t, f.h.SendOTP(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		user, err := f.repo.GetUserByEmail(context.Background(), "b@y.com")
		require.NoError(t, err)
		assert.Equal(t, models.UserTypeOwner, user.UserType)
		assert.Equal(t, models.StatusInactive, user.Status)
	})

	t.Run("invalid email", func(t *testing.T) {
		c, rec := f.jsonRequest(http.MethodPost, "/verification/account/send-otp", map[string]any{"email": "nope"}, nil)

		require.NoError(t, f.h.SendOTP(c))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestVerifyOTP(t *testing.T) {
	f := newFixture(t)
	f.pendingCustomer(t, "a@x.com")
	require.NoError(t, f.verification.SendOTP(context.Background(), "a@x.com", false))
	code := f.outbox.code(t, "a@x.com")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	tests := []struct {
		name   string
		email  string
		otp    string
		status int
		valid  bool
	}{
		{"valid", "a@x.com", code, http.StatusOK, true},
		{"still valid after check", "a@x.com", code, http.StatusOK, true},
		{"wrong code", "a@x.com", wrong, http.StatusBadRequest, false},
		{"unknown user", "nobody@x.com", code, http.StatusNotFound, false},
		{"malformed code", "a@x.com", "12ab", http.StatusUnprocessableEntity, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := f.jsonRequest(http.MethodPost, "/verification/account/verify-otp", map[string]any{"email": tt.email, "otp": tt.otp}, nil)

			require.NoError(t, f.h.VerifyOTP(c))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.valid, decode(t, rec)["valid"])
		})
	}

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(11 * time.Minute)
		c, rec := f.jsonRequest(http.MethodPost, "/verification/account/verify-otp", map[string]any{"email": "a@x.com", "otp": code}, nil)

		require.NoError(t, f.h.VerifyOTP(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Verification code has expired.", decode(t, rec)["message"])
	})
}

func TestVerify_Customer(t *testing.T) {
	f := newFixture(t)
	user, token := f.pendingCustomer(t, "a@x.com")
	require.NoError(t, f.verification.SendOTP(context.Background(), "a@x.com", false))

	c, rec := f.multipartRequest(t, "/verification/account/verify",
		profileFields("a@x.com", token, f.outbox.code(t, "a@x.com"), "customer"),
		map[string]string{"id_photo": "passport.PNG"}, false)

	require.NoError(t, f.h.Verify(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
	assert.NotNil(t, cookie(rec, "_session"), "verified customers are logged in")
	assert.Equal(t, "Your account has been verified.", f.flash(t, rec).Message)

	stored, err := f.repo.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.True(t, stored.EmailVerified())
	assert.Nil(t, stored.PendingOTP())
	assert.Equal(t, "Ana", stored.Firstname)
	require.NotNil(t, stored.IDPhoto)
	assert.True(t, strings.HasSuffix(*stored.IDPhoto, ".png"))

	name := strings.TrimPrefix(*stored.IDPhoto, storage.URLPrefix+"/")
	_, err = os.Stat(filepath.Join(f.files.Dir(), name))
	assert.NoError(t, err)

	// The token is consumed.
	assert.False(t, f.verification.ValidateVerificationToken(context.Background(), "a@x.com", token))
}

func TestVerify_OwnerApplication(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.verification.SendOTP(context.Background(), "b@y.com", true))

	fields := profileFields("b@y.com", "", f.outbox.code(t, "b@y.com"), "owner")
	fields["password"] = "violet-harbor-42"
	fields["password_confirmation"] = "violet-harbor-42"

	c, rec := f.multipartRequest(t, "/verification/account/verify", fields,
		map[string]string{"id_photo": "license.pdf", "photo": "me.jpg"}, false)

	require.NoError(t, f.h.Verify(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.Nil(t, cookie(rec, "_session"), "pending owners are not logged in")
	assert.Contains(t, f.flash(t, rec).Message, "pending approval")

	owner, err := f.repo.GetUserByEmail(context.Background(), "b@y.com")
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeOwner, owner.UserType)
	assert.Equal(t, models.StatusInactive, owner.Status)
	assert.True(t, owner.EmailVerified())
	assert.NotNil(t, owner.Photo)

	// The chosen password works once an admin approves the account.
	c, rec = f.formRequest(http.MethodPost, "/auth/login", url.Values{"email": {"b@y.com"}, "password": {"violet-harbor-42"}}, nil)
	require.NoError(t, f.h.Login(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVerify_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	fields := profileFields("a@x.com", "tok", "12", "admin")
	delete(fields, "terms_accepted")
	fields["gender"] = "Other"
	fields["birthdate"] = "2030-01-01"
	fields["age"] = "0"

	c, rec := f.multipartRequest(t, "/verification/account/verify", fields, map[string]string{"photo": "me.gif"}, true)

	require.NoError(t, f.h.Verify(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs, ok := decode(t, rec)["errors"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"otp", "user_type", "gender", "birthdate", "age", "id_photo", "photo", "terms_accepted"} {
		assert.Contains(t, errs, field)
	}
	assert.Equal(t, "Verification code must be 6 digits.", errs["otp"])
}

func TestVerify_FieldScopedFailures(t *testing.T) {
	f := newFixture(t)
	_, token := f.pendingCustomer(t, "a@x.com")
	require.NoError(t, f.verification.SendOTP(context.Background(), "a@x.com", false))
	code := f.outbox.code(t, "a@x.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	tests := []struct {
		name    string
		token   string
		otp     string
		field   string
		message string
	}{
		{"bad token", "not-the-token", code, "token", "Invalid or expired verification token."},
		{"token required", "", code, "token", "A verification token is required."},
		{"wrong code", token, wrong, "otp", "Invalid verification code."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := f.multipartRequest(t, "/verification/account/verify",
				profileFields("a@x.com", tt.token, tt.otp, "customer"),
				map[string]string{"id_photo": "id.jpg"}, true)

			require.NoError(t, f.h.Verify(c))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			errs := decode(t, rec)["errors"].(map[string]any)
			assert.Equal(t, tt.message, errs[tt.field])
		})
	}

	t.Run("page re-rendered for browsers", func(t *testing.T) {
		c, rec := f.multipartRequest(t, "/verification/account/verify",
			profileFields("a@x.com", token, wrong, "customer"),
			map[string]string{"id_photo": "id.jpg"}, false)

		require.NoError(t, f.h.Verify(c))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid verification code.")
		assert.Contains(t, rec.Body.String(), `value="Ana"`)
	})

	// Failed attempts leave no files behind.
	entries, err := os.ReadDir(f.files.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResend(t *testing.T) {
	f := newFixture(t)
	_, first := f.pendingCustomer(t, "a@x.com")
	back := "/verification/account?email=a%40x.com&token=" + first

	c, rec := f.formRequest(http.MethodPost, "/verification/account/resend", url.Values{"email": {"a@x.com"}}, nil)
	c.Request().Header.Set("Referer", "http://localhost:8080"+back)

	require.NoError(t, f.h.Resend(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, back, rec.Header().Get(echo.HeaderLocation))
	fl := f.flash(t, rec)
	assert.Equal(t, session.FlashStatus, fl.Kind)
	assert.Equal(t, "A new verification link has been sent to your e-mail address.", fl.Message)

	second := f.outbox.token(t, "a@x.com")
	assert.NotEqual(t, first, second)
	assert.False(t, f.verification.ValidateVerificationToken(context.Background(), "a@x.com", first))
	assert.True(t, f.verification.ValidateVerificationToken(context.Background(), "a@x.com", second))
}

func TestResend_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	c, rec := f.formRequest(http.MethodPost, "/verification/account/resend", url.Values{"email": {"nobody@x.com"}}, nil)

	require.NoError(t, f.h.Resend(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
	fl := f.flash(t, rec)
	assert.Equal(t, session.FlashError, fl.Kind)
	assert.Equal(t, "User not found.", fl.Errors["email"])
}
