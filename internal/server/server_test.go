// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/godrive/accounts/internal/clock"
	"codeberg.org/godrive/accounts/internal/config"
	"codeberg.org/godrive/accounts/internal/models"
	"codeberg.org/godrive/accounts/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu    sync.Mutex
	links map[string]string
	codes map[string]string
}

func (c *capture) SendVerificationLink(_ context.Context, user *models.User, link string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[user.Email] = link
	return nil
}

func (c *capture) SendOtpCode(_ context.Context, user *models.User, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[user.Email] = code
	return nil
}

func (c *capture) link(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.links[email]
}

func (c *capture) code(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[email]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:      config.AppConfig{Name: "GoDrive"},
		Server:   config.ServerConfig{Host: "localhost", Port: 8080, BaseURL: "http://localhost:8080", MaxBodySize: 1},
		Log:      config.LogConfig{Level: "error"},
		Database: config.DatabaseConfig{DSN: ":memory:"},
		Session:  config.SessionConfig{CookieName: "_session", MaxAge: 3600},
		Tokens:   config.TokenConfig{Store: config.TokenStoreMemory},
		Uploads:  config.UploadConfig{Dir: t.TempDir(), MaxSize: 10},
	}
}

func newTestApp(t *testing.T) (*App, *capture) {
	t.Helper()
	box := &capture{links: map[string]string{}, codes: map[string]string{}}
	app, err := New(context.Background(), testConfig(t),
		WithDispatcher(box),
		WithClock(clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))),
	)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, box
}

// client is a cookie-keeping browser against the app. Non-GET requests
// carry the CSRF token from the cookie.
type client struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, app *App) *client {
	c := &client{t: t, app: app, cookies: map[string]*http.Cookie{}}
	c.get("/")
	require.NotNil(t, c.cookies["_csrf"])
	return c
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	if csrf := c.cookies["_csrf"]; csrf != nil && req.Method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", csrf.Value)
	}

	rec := httptest.NewRecorder()
	c.app.Echo.ServeHTTP(rec, req)
	c.app.async.Wait()

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (c *client) getJSON(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	return c.do(req)
}

func (c *client) postForm(target string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return c.do(req)
}

func (c *client) postJSON(target string, payload any) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	require.NoError(c.t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	return c.do(req)
}

func (c *client) postMultipart(target string, fields map[string]string, files map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(c.t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(c.t, err)
	}
	require.NoError(c.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return c.do(req)
}

func (c *client) login(email, password string) *httptest.ResponseRecorder {
	return c.postForm("/auth/login", url.Values{"email": {email}, "password": {password}})
}

func verifyFields(email, token, code, userType string) map[string]string {
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
		"terms_accepted": "1",
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := newTestApp(t)
	c := &client{t: t, app: app, cookies: map[string]*http.Cookie{}}

	rec := c.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	c := &client{t: t, app: app, cookies: map[string]*http.Cookie{}}

	rec := c.getJSON("/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")
}

func TestCSRFRequired(t *testing.T) {
	app, _ := newTestApp(t)
	c := newClient(t, app)
	delete(c.cookies, "_csrf")

	rec := c.login("a@x.com", "whatever")

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code)
}

func TestTrailingSlashRedirect(t *testing.T) {
	app, _ := newTestApp(t)
	c := &client{t: t, app: app, cookies: map[string]*http.Cookie{}}

	rec := c.get("/auth/login/")

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
}

func TestCustomerVerificationFlow(t *testing.T) {
	app, box := newTestApp(t)
	c := newClient(t, app)

	rec := c.postForm("/auth/register", url.Values{
		"email":     {"ana@example.com"},
		"password":  {"violet-harbor-42"},
		"firstname": {"Ana"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	link, err := url.Parse(box.link("ana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", link.Host)
	token := link.Query().Get("token")

	rec = c.get(link.RequestURI())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), token)

	rec = c.postJSON("/verification/account/send-otp", map[string]any{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := box.code("ana@example.com")
	require.Len(t, code, 6)

	rec = c.postJSON("/verification/account/verify-otp", map[string]any{"email": "ana@example.com", "otp": code})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.postMultipart("/verification/account/verify",
		verifyFields("ana@example.com", token, code, "customer"),
		map[string]string{"id_photo": "passport.jpg", "photo": "me.png"})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
	require.NotNil(t, c.cookies["_session"])

	rec = c.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, Ana Santos!")
	assert.Contains(t, rec.Body.String(), "Your account has been verified.")

	user, err := app.repo.GetUserByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, user.Status)

	// Stored files are served to their owner only.
	require.NotNil(t, user.Photo)
	rec = c.get("/" + *user.Photo)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content of me.png", rec.Body.String())
	require.NotNil(t, user.IDPhoto)
	rec = newClient(t, app).get("/" + *user.IDPhoto)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))

	// The link is single-use.
	rec = c.get(link.RequestURI())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
}

func TestOwnerApplicationAndApproval(t *testing.T) {
	app, box := newTestApp(t)
	require.NoError(t, app.auth.EnsureAdmin(context.Background(), "admin@example.com", "lantern-quay-93"))

	owner := newClient(t, app)
	rec := owner.get("/owner-application")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = owner.postJSON("/verification/account/send-otp", map[string]any{
		"email":                 "owner@example.com",
		"is_owner_registration": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fields := verifyFields("owner@example.com", "", box.code("owner@example.com"), "owner")
	fields["password"] = "violet-harbor-42"
	fields["password_confirmation"] = "violet-harbor-42"
	rec = owner.postMultipart("/verification/account/verify", fields, map[string]string{"id_photo": "license.pdf"})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.Nil(t, owner.cookies["_session"])

	rec = owner.login("owner@example.com", "violet-harbor-42")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "pending approval")

	admin := newClient(t, app)
	rec = admin.login("admin@example.com", "lantern-quay-93")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	stored, err := app.repo.GetUserByEmail(context.Background(), "owner@example.com")
	require.NoError(t, err)
	approvePath := "/user/" + strconv.FormatInt(stored.ID, 10) + "/approve"

	rec = admin.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="`+approvePath+`"`)

	// The dashboard form overrides the method.
	rec = admin.postForm(approvePath, url.Values{"_method": {http.MethodPatch}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rec = owner.login("owner@example.com", "violet-harbor-42")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestApprove_RequiresAdmin(t *testing.T) {
	app, _ := newTestApp(t)
	testutil.NewTestUser(t, app.repo, "c@example.com")
	pending := testutil.NewTestUser(t, app.repo, "o@example.com",
		testutil.WithType(models.UserTypeOwner), testutil.WithStatus(models.StatusInactive))
	target := "/user/" + strconv.FormatInt(pending.ID, 10) + "/approve"

	anonymous := newClient(t, app)
	rec := anonymous.postForm(target, url.Values{"_method": {http.MethodPatch}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))

	customer := newClient(t, app)
	require.Equal(t, http.StatusSeeOther, customer.login("c@example.com", testutil.Password).Code)
	rec = customer.postForm(target, url.Values{"_method": {http.MethodPatch}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	stored, err := app.repo.GetUserByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, stored.Status)
}

func TestBlockedUserIsLoggedOut(t *testing.T) {
	app, _ := newTestApp(t)
	user := testutil.NewTestUser(t, app.repo, "c@example.com")

	c := newClient(t, app)
	require.Equal(t, http.StatusSeeOther, c.login("c@example.com", testutil.Password).Code)
	require.Equal(t, http.StatusOK, c.get("/dashboard").Code)

	require.NoError(t, app.repo.UpdateUserStatus(context.Background(), user.ID, models.StatusBlocked))

	t.Run("api client", func(t *testing.T) {
		api := &client{t: t, app: app, cookies: map[string]*http.Cookie{"_session": c.cookies["_session"]}}
		rec := api.getJSON("/dashboard")

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "blocked")
	})

	rec := c.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
	assert.Nil(t, c.cookies["_session"])

	rec = c.get("/auth/login")
	assert.Contains(t, rec.Body.String(), "Your account has been blocked.")
}

func TestDeleteUserRemovesFiles(t *testing.T) {
	app, _ := newTestApp(t)
	require.NoError(t, app.auth.EnsureAdmin(context.Background(), "admin@example.com", "lantern-quay-93"))

	admin := newClient(t, app)
	require.Equal(t, http.StatusSeeOther, admin.login("admin@example.com", "lantern-quay-93").Code)

	rec := admin.postMultipart("/user", map[string]string{
		"email":     "new@example.com",
		"password":  "violet-harbor-42",
		"user_type": "customer",
	}, map[string]string{"photo": "me.jpg"})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	user, err := app.repo.GetUserByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, user.Photo)
	file := filepath.Join(app.files.Dir(), filepath.Base(*user.Photo))
	_, err = os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, admin.get("/"+*user.Photo).Code)

	rec = admin.postForm("/user/"+strconv.FormatInt(user.ID, 10), url.Values{"_method": {http.MethodDelete}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}
