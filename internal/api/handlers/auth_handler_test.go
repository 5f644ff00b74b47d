package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novapay/rag-chat-backend/internal/auth"
)

func newAuthApp(t *testing.T) (*fiber.App, *AuthHandler) {
	t.Helper()
	gate := auth.NewGate("admin", "s3cret", auth.NewMemoryStore(time.Hour))
	handler := NewAuthHandler(gate, "admin_session", false)

	app := fiber.New()
	app.Post("/auth/login", handler.Login)
	app.Get("/auth/check", handler.Check)
	app.Post("/auth/logout", handler.Logout)
	app.Get("/analytics/protected", handler.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app, handler
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(t *testing.T, res *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range res.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginSetsSessionCookie(t *testing.T) {
	app, _ := newAuthApp(t)

	res, err := app.Test(jsonRequest("POST", "/auth/login", `{"username":"admin","password":"s3cret"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	cookie := sessionCookie(t, res, "admin_session")
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cookie.Expires, 5*time.Second)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app, _ := newAuthApp(t)

	res, err := app.Test(jsonRequest("POST", "/auth/login", `{"username":"admin","password":"nope"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Nil(t, sessionCookie(t, res, "admin_session"))
}

func TestCheckReflectsSessionState(t *testing.T) {
	app, _ := newAuthApp(t)

	// No cookie.
	res, err := app.Test(httptest.NewRequest("GET", "/auth/check", nil))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	// After login.
	loginRes, err := app.Test(jsonRequest("POST", "/auth/login", `{"username":"admin","password":"s3cret"}`))
	require.NoError(t, err)
	loginRes.Body.Close()
	cookie := sessionCookie(t, loginRes, "admin_session")
	require.NotNil(t, cookie)

	req := httptest.NewRequest("GET", "/auth/check", nil)
	req.AddCookie(cookie)
	res, err = app.Test(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	var body map[string]bool
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body["authenticated"])
}

func TestLogoutInvalidatesSession(t *testing.T) {
	app, _ := newAuthApp(t)

	loginRes, err := app.Test(jsonRequest("POST", "/auth/login", `{"username":"admin","password":"s3cret"}`))
	require.NoError(t, err)
	loginRes.Body.Close()
	cookie := sessionCookie(t, loginRes, "admin_session")
	require.NotNil(t, cookie)

	logoutReq := httptest.NewRequest("POST", "/auth/logout", nil)
	logoutReq.AddCookie(cookie)
	logoutRes, err := app.Test(logoutReq)
	require.NoError(t, err)
	logoutRes.Body.Close()
	assert.Equal(t, http.StatusOK, logoutRes.StatusCode)

	checkReq := httptest.NewRequest("GET", "/auth/check", nil)
	checkReq.AddCookie(cookie)
	checkRes, err := app.Test(checkReq)
	require.NoError(t, err)
	checkRes.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, checkRes.StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	app, _ := newAuthApp(t)

	res, err := app.Test(httptest.NewRequest("GET", "/analytics/protected", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode, string(body))

	loginRes, err := app.Test(jsonRequest("POST", "/auth/login", `{"username":"admin","password":"s3cret"}`))
	require.NoError(t, err)
	loginRes.Body.Close()
	cookie := sessionCookie(t, loginRes, "admin_session")
	require.NotNil(t, cookie)

	req := httptest.NewRequest("GET", "/analytics/protected", nil)
	req.AddCookie(cookie)
	res, err = app.Test(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
