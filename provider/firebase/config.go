package firebase

import (
	"net/http"
	"strings"
	"time"

	bridge "github.com/goliatone/go-auth-bridge"
)

// Config holds Firebase token verification options.
type Config struct {
	// ProjectID is the tenant namespace tokens must be issued for. Required.
	ProjectID string

	// JWKSURL is the published signing key set.
	// Default: bridge.DefaultFirebaseJWKSURL.
	JWKSURL string

	// IssuerPrefix is prepended to ProjectID to build the expected issuer.
	// Default: "https://securetoken.google.com/".
	IssuerPrefix string

	// ClockSkew is the tolerance for exp and iat checks. Zero means no
	// tolerance.
	// Default (nil): 60 seconds.
	ClockSkew *time.Duration

	// JWKSCacheTTL is how long fetched keys are cached.
	// Default: 1 hour.
	JWKSCacheTTL time.Duration

	// HTTPClient is used for key set fetches.
	HTTPClient *http.Client

	// Cache is the shared store for key material (optional).
	Cache bridge.Cache

	// Keys overrides the key source (optional, mostly for tests).
	Keys KeySource

	// ClaimsMapper customizes claim mapping (optional).
	ClaimsMapper ClaimsMapper

	Metrics *bridge.Metrics
	Logger  bridge.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// ConfigFromBridge maps the bridge configuration section.
// The HTTP client is left unset for the caller to provide.
func ConfigFromBridge(cfg bridge.Config) Config {
	skew := cfg.Firebase.ClockSkew()
	return Config{
		ProjectID:    strings.TrimSpace(cfg.Firebase.ProjectID),
		JWKSURL:      strings.TrimSpace(cfg.Firebase.JWKSURL),
		IssuerPrefix: cfg.Firebase.IssuerPrefix,
		ClockSkew:    &skew,
		JWKSCacheTTL: cfg.Firebase.KeyCacheTTL(),
	}
}

func (c Config) jwksURL() string {
	if c.JWKSURL == "" {
		return bridge.DefaultFirebaseJWKSURL
	}
	return c.JWKSURL
}
