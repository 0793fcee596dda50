// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/godrive/accounts/internal/appcontext"
	"codeberg.org/godrive/accounts/internal/models"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestVerifyAccountEscapesValues(t *testing.T) {
	form := VerifyForm{
		Email:    `a"><script>alert(1)</script>@x.com`,
		Token:    `tok" onfocus="x`,
		UserType: "customer",
		Values:   map[string]string{"firstname": `"><img src=x>`, "gender": "Female"},
		Errors:   map[string]string{"otp": "<b>bad</b>"},
	}

	html := render(t, context.Background(), VerifyAccount(form))

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.NotContains(t, html, `<img src=x>`)
	assert.NotContains(t, html, `onfocus="x"`)
	assert.NotContains(t, html, "<b>bad</b>")
	assert.Contains(t, html, "&lt;b&gt;bad&lt;/b&gt;")
	assert.Contains(t, html, `<option value="Female" selected>`)
	assert.Contains(t, html, `action="/verification/account/resend"`)
}

func TestVerifyAccountOwnerApplication(t *testing.T) {
	html := render(t, context.Background(), VerifyAccount(VerifyForm{OwnerApplication: true, UserType: "owner"}))

	assert.Contains(t, html, `name="is_owner_registration" value="true"`)
	assert.Contains(t, html, `name="password_confirmation"`)
	assert.NotContains(t, html, "/verification/account/resend")
}

func TestDashboardActions(t *testing.T) {
	admin := &models.User{ID: 1, Email: "admin@x.com", UserType: models.UserTypeAdmin, Status: models.StatusActive}
	accounts := []models.User{
		*admin,
		{ID: 2, Email: "<owner>@x.com", UserType: models.UserTypeOwner, Status: models.StatusInactive},
	}
	ctx := appcontext.WithUser(context.Background(), admin)

	html := render(t, ctx, Dashboard(admin, accounts))

	assert.Contains(t, html, "&lt;owner&gt;@x.com")
	assert.Contains(t, html, `action="/user/2/approve"`)
	assert.Contains(t, html, `action="/user/2"`)
	assert.NotContains(t, html, `action="/user/1"`)
	assert.Contains(t, html, `action="/auth/logout"`)
}

func TestErrorPage(t *testing.T) {
	html := render(t, context.Background(), ErrorPage(404, "<gone>"))

	assert.Contains(t, html, "<!doctype html>")
	assert.Contains(t, html, "<h1>404 Not Found</h1>")
	assert.Contains(t, html, "&lt;gone&gt;")
}
