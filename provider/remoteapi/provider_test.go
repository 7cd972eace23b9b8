package remoteapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridge "github.com/goliatone/go-auth-bridge"
)

func TestProvider_AuthenticateEnvelope(t *testing.T) {
	var gotAuth, gotAccept, gotAccount string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotAccount = r.Header.Get("X-Account-Id")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":42,"email":"a@b.c","name":"A","plan":"pro"}}`))
	}))
	t.Cleanup(server.Close)

	provider, err := New(Config{BaseURL: server.URL + "/"})
	require.NoError(t, err)

	payload, err := provider.Authenticate(context.Background(), "tok-1", map[string]string{
		"X-Account-Id": "acct-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "acct-1", gotAccount)

	assert.Equal(t, "42", payload.ExternalID)
	assert.Equal(t, "a@b.c", payload.Email)
	assert.Equal(t, "A", payload.DisplayName)
	assert.Equal(t, bridge.StatusActive, payload.Status)
	assert.Equal(t, "pro", payload.Metadata["plan"])
}

func TestProvider_AuthenticateBareObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u-1","display_name":"Bare","status":"suspended",
			"roles":{"acct-1":{"app-1":["admin"]}}}`))
	}))
	t.Cleanup(server.Close)

	provider, err := New(Config{BaseURL: server.URL, UserEndpoint: "/api/user"})
	require.NoError(t, err)

	payload, err := provider.Authenticate(context.Background(), "tok", nil)
	require.NoError(t, err)

	assert.Equal(t, "u-1", payload.ExternalID)
	assert.Equal(t, "Bare", payload.DisplayName)
	assert.Equal(t, "suspended", payload.Status)
	assert.True(t, payload.HasRole("admin", "acct-1", "app-1"))
}

func TestProvider_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"nope"}`, reason: "user endpoint returned 401"},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, reason: "user endpoint returned 500"},
		{name: "array body", status: http.StatusOK, body: `[{"id":1}]`, reason: "unexpected user payload shape"},
		{name: "scalar body", status: http.StatusOK, body: `"user"`, reason: "unexpected user payload shape"},
		{name: "data not object", status: http.StatusOK, body: `{"data":[1,2]}`, reason: "unexpected user payload shape"},
		{name: "invalid json", status: http.StatusOK, body: `{`, reason: "unexpected user payload shape"},
		{name: "trailing data", status: http.StatusOK, body: `{"id":1}{"id":2}`, reason: "unexpected user payload shape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			provider, err := New(Config{BaseURL: server.URL})
			require.NoError(t, err)

			_, err = provider.Authenticate(context.Background(), "tok", nil)
			require.Error(t, err)
			assert.True(t, bridge.HasTextCode(err, bridge.TextCodeRemoteAuthRejected))
			assert.True(t, bridge.IsAuthenticationError(err))
			assert.Equal(t, tt.reason, bridge.ErrorReason(err))
		})
	}
}

func TestProvider_LargeNumericIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":` + r.Header.Get("X-User") + `,"login_count":3}}`))
	}))
	t.Cleanup(server.Close)

	provider, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	first, err := provider.Authenticate(context.Background(), "tok-a", map[string]string{"X-User": "1234567890123456789"})
	require.NoError(t, err)

	second, err := provider.Authenticate(context.Background(), "tok-b", map[string]string{"X-User": "1234567890123456790"})
	require.NoError(t, err)

	assert.Equal(t, "1234567890123456789", first.ExternalID)
	assert.Equal(t, "1234567890123456790", second.ExternalID)
	assert.NotEqual(t, first.ExternalID, second.ExternalID)
	assert.Equal(t, json.Number("3"), first.Metadata["login_count"])
}

func TestProvider_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"a@b.c"}`))
	}))
	t.Cleanup(server.Close)

	provider, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Authenticate(context.Background(), "tok", nil)
	require.Error(t, err)
	assert.True(t, bridge.HasTextCode(err, bridge.TextCodeMissingExternalID))
	assert.True(t, bridge.IsAuthenticationError(err))
}

func TestProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	provider, err := New(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = provider.Authenticate(context.Background(), "tok", nil)
	require.Error(t, err)
	assert.True(t, bridge.HasTextCode(err, bridge.TextCodeRemoteAuthRejected))
	assert.Equal(t, "user endpoint unreachable", bridge.ErrorReason(err))
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "  "})
	require.Error(t, err)
	assert.True(t, bridge.IsConfigurationError(err))
}

func TestProvider_CacheKeyPrefix(t *testing.T) {
	provider, err := New(Config{BaseURL: "https://api.example.test", UserEndpoint: "me"})
	require.NoError(t, err)

	assert.Equal(t, "remote_api", provider.CacheKeyPrefix())
	assert.Equal(t, "https://api.example.test/me", provider.Endpoint())
}

func TestConfigFromBridge(t *testing.T) {
	cfg := bridge.DefaultConfig()
	cfg.RemoteAPI.BaseURL = " https://api.example.test "
	cfg.RemoteAPI.HTTPTimeout = 9

	rc := ConfigFromBridge(cfg)
	assert.Equal(t, "https://api.example.test", rc.BaseURL)
	assert.Equal(t, 9*time.Second, rc.Timeout)
	assert.Equal(t, 2*time.Second, rc.ConnectTimeout)
}
