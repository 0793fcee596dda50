// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/repository"
	"codeberg.org/godrive/accounts/internal/services/session"
	"codeberg.org/godrive/accounts/internal/storage"
	"codeberg.org/godrive/accounts/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withID(c echo.Context, id int64) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(id, 10))
	return c
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	admin := testutil.NewTestUser(t, f.repo, "admin@x.com", testutil.WithType(models.UserTypeAdmin))
	customer := testutil.NewTestUser(t, f.repo, "c@x.com")
	owner := testutil.NewTestUser(t, f.repo, "o@x.com",
		testutil.WithType(models.UserTypeOwner), testutil.WithStatus(models.StatusInactive))

	t.Run("admin sees accounts", func(t *testing.T) {
		c, rec := f.request(http.MethodGet, "/dashboard", nil, nil, admin)

		require.NoError(t, f.h.Dashboard(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "o@x.com")
		assert.Contains(t, body, `action="/user/`+strconv.FormatInt(owner.ID, 10)+`/approve"`)
		assert.Contains(t, body, `action="/user/`+strconv.FormatInt(customer.ID, 10)+`"`)
		assert.NotContains(t, body, `action="/user/`+strconv.FormatInt(admin.ID, 10)+`"`)
	})

	t.Run("customer sees own account only", func(t *testing.T) {
		c, rec := f.request(http.MethodGet, "/dashboard", nil, nil, customer)

		require.NoError(t, f.h.Dashboard(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Welcome, Test User!")
		assert.NotContains(t, rec.Body.String(), "o@x.com")
	})

	t.Run("anonymous", func(t *testing.T) {
		c, _ := f.request(http.MethodGet, "/dashboard", nil, nil, nil)

		var he *echo.HTTPError
		require.True(t, errors.As(f.h.Dashboard(c), &he))
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	admin := testutil.NewTestUser(t, f.repo, "admin@x.com", testutil.WithType(models.UserTypeAdmin))
	owner := testutil.NewTestUser(t, f.repo, "o@x.com",
		testutil.WithType(models.UserTypeOwner), testutil.WithStatus(models.StatusInactive))
	customer := testutil.NewTestUser(t, f.repo, "c@x.com", testutil.WithStatus(models.StatusInactive))

	t.Run("approves pending owner", func(t *testing.T) {
		c, rec := f.request(http.MethodPatch, "/user/1/approve", nil, nil, admin)

		require.NoError(t, f.h.Approve(withID(c, owner.ID)))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
		fl := f.flash(t, rec)
		assert.Equal(t, session.FlashSuccess, fl.Kind)
		assert.Equal(t, "The owner account has been approved.", fl.Message)

		stored, err := f.repo.GetUserByID(context.Background(), owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, stored.Status)
	})

	t.Run("already active", func(t *testing.T) {
		c, rec := f.jsonRequest(http.MethodPatch, "/user/1/approve", nil, admin)

		require.NoError(t, f.h.Approve(withID(c, owner.ID)))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "already_active", body["outcome"])
		assert.Equal(t, "active", body["status"])
		assert.Equal(t, string(session.FlashInfo), body["kind"])
	})

	t.Run("not an owner", func(t *testing.T) {
		c, rec := f.request(http.MethodPatch, "/user/1/approve", nil, nil, admin)

		require.NoError(t, f.h.Approve(withID(c, customer.ID)))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, session.FlashError, f.flash(t, rec).Kind)

		stored, err := f.repo.GetUserByID(context.Background(), customer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInactive, stored.Status)
	})

	t.Run("unknown user", func(t *testing.T) {
		c, _ := f.request(http.MethodPatch, "/user/999/approve", nil, nil, admin)

		var he *echo.HTTPError
		require.True(t, errors.As(f.h.Approve(withID(c, 999)), &he))
		assert.Equal(t, http.StatusNotFound, he.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		c, _ := f.request(http.MethodPatch, "/user/abc/approve", nil, nil, admin)
		c.SetParamNames("id")
		c.SetParamValues("abc")

		var he *echo.HTTPError
		require.True(t, errors.As(f.h.Approve(c), &he))
		assert.Equal(t, http.StatusBadRequest, he.Code)
	})
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	fields := map[string]string{
		"email":     "owner@x.com",
		"password":  "violet-harbor-42",
		"user_type": "owner",
		"firstname": "Ana",
		"birthdate": "1990-05-01",
		"age":       "35",
	}

	c, rec := f.multipartRequest(t, "/user", fields, map[string]string{"id_photo": "id.pdf"}, true)
	require.NoError(t, f.h.CreateUser(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "owner@x.com", body["email"])
	assert.Equal(t, "active", body["status"])

	user, err := f.repo.GetUserByEmail(context.Background(), "owner@x.com")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified())
	require.NotNil(t, user.IDPhoto)
	require.NotNil(t, user.Age)
	assert.Equal(t, 35, *user.Age)

	t.Run("duplicate e-mail", func(t *testing.T) {
		c, rec := f.multipartRequest(t, "/user", fields, nil, true)
		require.NoError(t, f.h.CreateUser(c))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decode(t, rec)["errors"].(map[string]any)
		assert.Contains(t, errs, "email")
	})

	t.Run("invalid fields", func(t *testing.T) {
		c, rec := f.multipartRequest(t, "/user", map[string]string{
			"email":     "x@x.com",
			"password":  "violet-harbor-42",
			"user_type": "superuser",
			"age":       "200",
		}, map[string]string{"photo": "me.pdf"}, true)
		require.NoError(t, f.h.CreateUser(c))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decode(t, rec)["errors"].(map[string]any)
		assert.Contains(t, errs, "user_type")
		assert.Contains(t, errs, "age")
		assert.Contains(t, errs, "photo")
	})

}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := testutil.NewTestUser(t, f.repo, "admin@x.com", testutil.WithType(models.UserTypeAdmin))

	ref := "uploads/1_photo.png"
	old := filepath.Join(f.files.Dir(), "1_photo.png")
	require.NoError(t, os.WriteFile(old, []byte("png"), 0o600))
	customer := testutil.NewTestUser(t, f.repo, "c@x.com", func(u *models.User) { u.Photo = &ref })
	target := "/user/" + strconv.FormatInt(customer.ID, 10)

	t.Run("changes type and replaces photo", func(t *testing.T) {
		c, rec := f.multipartRequestAs(t, http.MethodPut, target, map[string]string{
			"user_type": "owner",
			"status":    "inactive",
			"lastname":  "Renamed",
		}, map[string]string{"photo": "new.jpg"}, true, admin)

		require.NoError(t, f.h.UpdateUser(withID(c, customer.ID)))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "owner", body["user_type"])
		assert.Equal(t, "inactive", body["status"])

		user, err := f.repo.GetUserByID(ctx, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.UserTypeOwner, user.UserType)
		assert.Equal(t, "Renamed", user.Lastname)
		assert.Equal(t, "Test", user.Firstname)
		require.NotNil(t, user.Photo)
		assert.NotEqual(t, ref, *user.Photo)
		assert.FileExists(t, filepath.Join(f.files.Dir(), strings.TrimPrefix(*user.Photo, storage.URLPrefix+"/")))
		assert.NoFileExists(t, old)
	})

	t.Run("browser gets flash", func(t *testing.T) {
		c, rec := f.multipartRequestAs(t, http.MethodPut, target, map[string]string{"status": "blocked"}, nil, false, admin)

		require.NoError(t, f.h.UpdateUser(withID(c, customer.ID)))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "The account has been updated.", f.flash(t, rec).Message)
	})

	t.Run("invalid fields", func(t *testing.T) {
		c, rec := f.multipartRequestAs(t, http.MethodPut, target, map[string]string{
			"user_type": "superuser",
			"status":    "gone",
		}, nil, true, admin)

		require.NoError(t, f.h.UpdateUser(withID(c, customer.ID)))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decode(t, rec)["errors"].(map[string]any)
		assert.Contains(t, errs, "user_type")
		assert.Contains(t, errs, "status")
	})

	t.Run("taken e-mail", func(t *testing.T) {
		c, rec := f.multipartRequestAs(t, http.MethodPut, target, map[string]string{"email": "admin@x.com"}, nil, true, admin)

		require.NoError(t, f.h.UpdateUser(withID(c, customer.ID)))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decode(t, rec)["errors"], "email")
	})

	t.Run("own type", func(t *testing.T) {
		c, _ := f.multipartRequestAs(t, http.MethodPut, "/user/1", map[string]string{"user_type": "customer"}, nil, true, admin)

		var he *echo.HTTPError
		require.True(t, errors.As(f.h.UpdateUser(withID(c, admin.ID)), &he))
		assert.Equal(t, http.StatusUnprocessableEntity, he.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		c, _ := f.multipartRequestAs(t, http.MethodPut, "/user/999", map[string]string{"status": "active"}, nil, true, admin)

		var he *echo.HTTPError
		require.True(t, errors.As(f.h.UpdateUser(withID(c, 999)), &he))
		assert.Equal(t, http.StatusNotFound, he.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	admin := testutil.NewTestUser(t, f.repo, "admin@x.com", testutil.WithType(models.UserTypeAdmin))

	ref := "uploads/1_photo.png"
	require.NoError(t, os.WriteFile(filepath.Join(f.files.Dir(), strings.TrimPrefix(ref, storage.URLPrefix+"/")), []byte("png"), 0o600))
	victim := testutil.NewTestUser(t, f.repo, "c@x.com", func(u *models.User) { u.Photo = &ref })

	t.Run("own account", func(t *testing.T) {
		c, _ := f.request(http.MethodDelete, "/user/1", nil, nil, admin)

		var he *echo.HTTPError
		require.True(t, errors.As(f.h.DeleteUser(withID(c, admin.ID)), &he))
		assert.Equal(t, http.StatusUnprocessableEntity, he.Code)
	})

	t.Run("deletes account and files", func(t *testing.T) {
		c, rec := f.request(http.MethodDelete, "/user/1", nil, nil, admin)

		require.NoError(t, f.h.DeleteUser(withID(c, victim.ID)))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "The account has been deleted.", f.flash(t, rec).Message)

		_, err := f.repo.GetUserByID(context.Background(), victim.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = os.Stat(filepath.Join(f.files.Dir(), "1_photo.png"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		c, _ := f.request(http.MethodDelete, "/user/1", nil, nil, admin)

		var he *echo.HTTPError
		require.True(t, errors.As(f.h.DeleteUser(withID(c, victim.ID)), &he))
		assert.Equal(t, http.StatusNotFound, he.Code)
	})
}
