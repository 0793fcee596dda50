// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPage(t *testing.T) {
	f := newFixture(t)
	c, rec := f.request(http.MethodGet, "/auth/register?type=owner", nil, nil, nil)

	require.NoError(t, f.h.RegisterPage(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/auth/register"`)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	form := url.Values{
		"email":     {"New@X.com"},
		"password":  {"violet-harbor-42"},
		"firstname": {"Ana"},
		"lastname":  {"Santos"},
	}

	c, rec := f.formRequest(http.MethodPost, "/auth/register", form, nil)
	require.NoError(t, f.h.Register(c))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, session.FlashSuccess, f.flash(t, rec).Kind)

	user, err := f.repo.GetUserByEmail(context.Background(), "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeCustomer, user.UserType)
	assert.Equal(t, models.StatusInactive, user.Status)
	assert.False(t, user.EmailVerified())

	token := f.outbox.token(t, "new@x.com")
	assert.True(t, f.verification.ValidateVerificationToken(context.Background(), "new@x.com", token))

	t.Run("duplicate", func(t *testing.T) {
		c, rec := f.formRequest(http.MethodPost, "/auth/register", form, nil)
		require.NoError(t, f.h.Register(c))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "An account with this e-mail address already exists.")
	})
}

func TestRegister_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		message  string
	}{
		{"invalid email", "not-an-email", "violet-harbor-42", "valid e-mail"},
		{"numeric password", "a@x.com", "12345678", "Password cannot be entirely numeric."},
		{"short password", "a@x.com", "v1o", "at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c, rec := f.formRequest(http.MethodPost, "/auth/register", url.Values{
				"email":    {tt.email},
				"password": {tt.password},
			}, nil)

			require.NoError(t, f.h.Register(c))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)

			_, err := f.repo.GetUserByEmail(context.Background(), "a@x.com")
			assert.Error(t, err)
		})
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "active@x.com")
	testutil.NewTestUser(t, f.repo, "blocked@x.com", testutil.WithStatus(models.StatusBlocked))
	testutil.NewTestUser(t, f.repo, "owner@x.com",
		testutil.WithType(models.UserTypeOwner), testutil.WithStatus(models.StatusInactive))

	login := func(email, password string) (echo.Context, *httptest.ResponseRecorder) {
		return f.formRequest(http.MethodPost, "/auth/login", url.Values{"email": {email}, "password": {password}}, nil)
	}

	t.Run("success", func(t *testing.T) {
		c, rec := login("active@x.com", testutil.Password)

		require.NoError(t, f.h.Login(c))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
		require.NotNil(t, cookie(rec, "_session"))
	})

	t.Run("wrong password", func(t *testing.T) {
		c, rec := login("active@x.com", "wrong-password")

		require.NoError(t, f.h.Login(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid e-mail or password.")
		assert.Nil(t, cookie(rec, "_session"))
	})

	t.Run("unknown user", func(t *testing.T) {
		c, rec := login("nobody@x.com", testutil.Password)

		require.NoError(t, f.h.Login(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("blocked", func(t *testing.T) {
		c, rec := login("blocked@x.com", testutil.Password)

		require.NoError(t, f.h.Login(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Your account has been blocked.")
		assert.Nil(t, cookie(rec, "_session"))
	})

	t.Run("pending owner", func(t *testing.T) {
		c, rec := login("owner@x.com", testutil.Password)

		require.NoError(t, f.h.Login(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "pending approval")
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	user := testutil.NewTestUser(t, f.repo, "a@x.com")
	c, rec := f.request(http.MethodPost, "/auth/logout", nil, nil, user)

	require.NoError(t, f.h.Logout(c))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	sc := cookie(rec, "_session")
	require.NotNil(t, sc)
	assert.Negative(t, sc.MaxAge)
	assert.Equal(t, "You have been logged out.", f.flash(t, rec).Message)
}
