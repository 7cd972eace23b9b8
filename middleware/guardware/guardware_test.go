package guardware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridge "github.com/goliatone/go-auth-bridge"
)

type stubResolver struct {
	res *bridge.Resolution
	err error

	token   string
	account string
}

func (s *stubResolver) ResolveUser(_ context.Context, req bridge.Request) (*bridge.Resolution, error) {
	s.token = bridge.BearerToken(req.Header("Authorization"))
	if s.token == "" {
		s.token = req.Input("api_token")
	}
	s.account = req.Header("X-Account-Id")
	return s.res, s.err
}

func newResolution() *bridge.Resolution {
	return &bridge.Resolution{
		User: &bridge.User{},
		Payload: &bridge.Payload{
			ExternalID: "u1",
			Permissions: bridge.AccessMap{
				"acct-1": {"docs": {"docs.write"}},
			},
			Roles: bridge.AccessMap{
				"acct-1": {"docs": {"editor"}},
			},
		},
		Scope: bridge.Scope{AccountID: "acct-1", AppKey: "docs"},
	}
}

func newApp(resolver Resolver, required bool, handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(New(Config{Guard: resolver, Required: required}))

	final := func(c *fiber.Ctx) error {
		payload := AccessorFrom(c).CurrentPayload()
		if payload == nil {
			return c.SendString("anonymous")
		}
		return c.SendString(payload.ExternalID)
	}

	app.Get("/", append(handlers, final)...)
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()

	res, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	_ = res.Body.Close()

	return res, string(body)
}

func TestNew_ResolvesUser(t *testing.T) {
	resolver := &stubResolver{res: newResolution()}
	app := newApp(resolver, true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	req.Header.Set("X-Account-Id", "acct-1")

	res, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "u1", body)
	assert.Equal(t, "tok-1", resolver.token)
	assert.Equal(t, "acct-1", resolver.account)
}

func TestNew_ReadsInputToken(t *testing.T) {
	resolver := &stubResolver{res: newResolution()}
	app := newApp(resolver, true)

	res, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/?api_token=tok-q", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "tok-q", resolver.token)
}

func TestNew_AnonymousPassThrough(t *testing.T) {
	app := newApp(&stubResolver{}, false)

	res, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "anonymous", body)
}

func TestNew_AnonymousRequired(t *testing.T) {
	app := newApp(&stubResolver{}, true)

	res, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Bearer", res.Header.Get("WWW-Authenticate"))
}

func TestNew_AuthenticationFailure(t *testing.T) {
	err := bridge.AuthFailure(bridge.ErrTokenExpired, "token is expired", nil, map[string]any{"exp": 1})
	app := newApp(&stubResolver{err: err}, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")

	res, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Bearer", res.Header.Get("WWW-Authenticate"))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Equal(t, map[string]string{"error": "Unauthorized"}, decoded)
	assert.NotContains(t, body, "expired")
}

func TestNew_StoreFailure(t *testing.T) {
	err := bridge.ErrSyncFailed.Clone()
	err.Source = errors.New("db down")
	app := newApp(&stubResolver{err: err}, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")

	res, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Empty(t, res.Header.Get("WWW-Authenticate"))
	assert.NotContains(t, body, "db down")
}

func TestNew_Filter(t *testing.T) {
	resolver := &stubResolver{err: bridge.ErrUnauthenticated.Clone()}

	app := fiber.New()
	app.Use(New(Config{
		Guard:  resolver,
		Filter: func(c *fiber.Ctx) bool { return c.Path() == "/healthz" },
	}))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	res, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name       string
		permission string
		res        *bridge.Resolution
		status     int
	}{
		{name: "granted", permission: "docs.write", res: newResolution(), status: http.StatusOK},
		{name: "denied", permission: "docs.delete", res: newResolution(), status: http.StatusForbidden},
		{name: "anonymous", permission: "docs.write", res: nil, status: http.StatusUnauthorized},
		{
			name:       "no context",
			permission: "docs.write",
			res: func() *bridge.Resolution {
				r := newResolution()
				r.Scope = bridge.Scope{}
				return r
			}(),
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(&stubResolver{res: tt.res}, false, RequirePermission(tt.permission))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer tok")

			res, _ := doRequest(t, app, req)
			assert.Equal(t, tt.status, res.StatusCode)
		})
	}
}

func TestRequireRole(t *testing.T) {
	app := newApp(&stubResolver{res: newResolution()}, false, RequireRole("editor"))
	res, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)

	app = newApp(&stubResolver{res: newResolution()}, false, RequireRole("owner"))
	res, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.JSONEq(t, `{"error":"Forbidden"}`, body)
}

func TestRequirePermission_CustomErrorHandler(t *testing.T) {
	handler := func(c *fiber.Ctx, err error) error {
		return c.Status(http.StatusTeapot).SendString(bridge.ErrorReason(err))
	}
	app := newApp(&stubResolver{res: newResolution()}, false, RequirePermission("nope", handler))

	res, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, res.StatusCode)
	assert.Equal(t, "Forbidden", body)
}

func TestNew_PanicsWithoutGuard(t *testing.T) {
	assert.Panics(t, func() {
		New(Config{})
	})
}
