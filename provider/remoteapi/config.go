package remoteapi

import (
	"net/http"
	"strings"
	"time"

	bridge "github.com/goliatone/go-auth-bridge"
)

// Config holds the remote user endpoint options.
type Config struct {
	// BaseURL of the remote API. Required.
	BaseURL string

	// UserEndpoint is appended to BaseURL.
	// Default: "/api/user".
	UserEndpoint string

	// Timeout bounds the whole request.
	// Default: 5 seconds.
	Timeout time.Duration

	// ConnectTimeout bounds connection setup.
	// Default: 2 seconds.
	ConnectTimeout time.Duration

	// HTTPClient overrides the client built from the timeouts.
	HTTPClient *http.Client

	Logger bridge.Logger
}

// ConfigFromBridge maps the bridge configuration section.
func ConfigFromBridge(cfg bridge.Config) Config {
	timeout, connect := cfg.RemoteAPI.Timeouts()
	return Config{
		BaseURL:        strings.TrimSpace(cfg.RemoteAPI.BaseURL),
		UserEndpoint:   strings.TrimSpace(cfg.RemoteAPI.UserEndpoint),
		Timeout:        timeout,
		ConnectTimeout: connect,
	}
}

func (c Config) endpoint() string {
	path := c.UserEndpoint
	if path == "" {
		path = bridge.DefaultUserEndpoint
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(c.BaseURL, "/") + path
}
