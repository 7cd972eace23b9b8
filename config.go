package bridge

import (
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"gopkg.in/yaml.v3"
)

const (
	ProviderFirebase  = "firebase"
	ProviderRemoteAPI = "remote_api"

	DefaultAccountHeader      = "X-Account-Id"
	DefaultAppHeader          = "X-App-Key"
	DefaultFirebaseJWKSURL    = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	DefaultFirebaseIssuer     = "https://securetoken.google.com/"
	DefaultClockSkewSeconds   = 60
	DefaultJWKSCacheTTL       = 3600
	DefaultUserEndpoint       = "/api/user"
	DefaultHTTPTimeout        = 5
	DefaultConnectTimeout     = 2
	DefaultAuthCacheTTL       = 300
	DefaultGuardInputKey      = "api_token"
	DefaultGuardStorageKey    = "api_token"
	DefaultServerAddr         = ":8080"
	DefaultMetricsPath        = "/metrics"
	DefaultCacheDriver        = "memory"
	DefaultDatabaseDriver     = "sqlite"
	DefaultDatabaseDSN        = "file:authbridge.db?cache=shared"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultAuthCacheKeyPrefix = "authbridge"
)

// Config holds the bridge options.
type Config struct {
	// Provider is the registry name of the active provider.
	Provider string `yaml:"provider" json:"provider"`
	// CacheTTL is the authentication cache TTL in seconds, 0 disables it.
	CacheTTL  int             `yaml:"cache_ttl" json:"cache_ttl"`
	Headers   HeadersConfig   `yaml:"headers" json:"headers"`
	Firebase  FirebaseConfig  `yaml:"firebase" json:"firebase"`
	RemoteAPI RemoteAPIConfig `yaml:"remote_api" json:"remote_api"`
	Guard     GuardConfig     `yaml:"guard" json:"guard"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// HeadersConfig names the request headers carrying the account and app
// context.
type HeadersConfig struct {
	Account string `yaml:"account" json:"account"`
	App     string `yaml:"app" json:"app"`
}

// FirebaseConfig configures ID token verification. ClockSkewSeconds of 0
// disables the tolerance.
type FirebaseConfig struct {
	ProjectID        string `yaml:"project_id" json:"project_id"`
	JWKSURL          string `yaml:"jwks_url" json:"jwks_url"`
	IssuerPrefix     string `yaml:"issuer_prefix" json:"issuer_prefix"`
	ClockSkewSeconds int    `yaml:"clock_skew_seconds" json:"clock_skew_seconds"`
	JWKSCacheTTL     int    `yaml:"jwks_cache_ttl" json:"jwks_cache_ttl"`
}

// RemoteAPIConfig configures the remote user endpoint. Timeouts are in
// seconds.
type RemoteAPIConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	UserEndpoint   string `yaml:"user_endpoint" json:"user_endpoint"`
	HTTPTimeout    int    `yaml:"http_timeout" json:"http_timeout"`
	ConnectTimeout int    `yaml:"connect_timeout" json:"connect_timeout"`
}

// GuardConfig names the query/form input and storage key for the token.
type GuardConfig struct {
	InputKey   string `yaml:"input_key" json:"input_key"`
	StorageKey string `yaml:"storage_key" json:"storage_key"`
}

// CacheConfig selects the shared cache store, "memory" or "redis".
type CacheConfig struct {
	Driver   string `yaml:"driver" json:"driver"`
	RedisURL string `yaml:"redis_url" json:"redis_url"`
}

// DatabaseConfig selects the users store, "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"-"`
}

// ServerConfig configures the HTTP listener of the serve command.
type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	MetricsPath string `yaml:"metrics_path" json:"metrics_path"`
}

// LogConfig sets the zap log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderFirebase,
		CacheTTL: DefaultAuthCacheTTL,
		Headers: HeadersConfig{
			Account: DefaultAccountHeader,
			App:     DefaultAppHeader,
		},
		Firebase: FirebaseConfig{
			JWKSURL:          DefaultFirebaseJWKSURL,
			IssuerPrefix:     DefaultFirebaseIssuer,
			ClockSkewSeconds: DefaultClockSkewSeconds,
			JWKSCacheTTL:     DefaultJWKSCacheTTL,
		},
		RemoteAPI: RemoteAPIConfig{
			UserEndpoint:   DefaultUserEndpoint,
			HTTPTimeout:    DefaultHTTPTimeout,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Guard: GuardConfig{
			InputKey:   DefaultGuardInputKey,
			StorageKey: DefaultGuardStorageKey,
		},
		Cache: CacheConfig{
			Driver: DefaultCacheDriver,
		},
		Database: DatabaseConfig{
			Driver: DefaultDatabaseDriver,
			DSN:    DefaultDatabaseDSN,
		},
		Server: ServerConfig{
			Addr:        DefaultServerAddr,
			MetricsPath: DefaultMetricsPath,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Validate checks option ranges. Provider specific requirements are
// checked when the provider is built.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Provider, validation.Required),
		validation.Field(&c.CacheTTL, validation.Min(0)),
	)
	if err == nil {
		err = validation.ValidateStruct(&c.Firebase,
			validation.Field(&c.Firebase.ClockSkewSeconds, validation.Min(0)),
			validation.Field(&c.Firebase.JWKSCacheTTL, validation.Min(0)),
		)
	}
	if err == nil {
		err = validation.ValidateStruct(&c.RemoteAPI,
			validation.Field(&c.RemoteAPI.HTTPTimeout, validation.Min(0)),
			validation.Field(&c.RemoteAPI.ConnectTimeout, validation.Min(0)),
		)
	}
	if err == nil {
		err = validation.ValidateStruct(&c.Cache,
			validation.Field(&c.Cache.Driver, validation.In("memory", "redis")),
		)
	}
	if err == nil && c.Cache.Driver == "redis" {
		err = validation.Validate(c.Cache.RedisURL, validation.Required.Error("cache.redis_url is required for the redis driver"))
	}
	if err == nil {
		err = validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.In("postgres", "sqlite")),
		)
	}
	if err != nil {
		return ConfigError("invalid configuration: %s", err.Error())
	}
	return nil
}

// AuthCacheTTL returns the authentication cache TTL.
func (c Config) AuthCacheTTL() time.Duration {
	return seconds(c.CacheTTL)
}

// ContextHeaderNames returns the configured account and app header names.
func (c Config) ContextHeaderNames() (string, string) {
	account := strings.TrimSpace(c.Headers.Account)
	if account == "" {
		account = DefaultAccountHeader
	}
	app := strings.TrimSpace(c.Headers.App)
	if app == "" {
		app = DefaultAppHeader
	}
	return account, app
}

// ClockSkew returns the configured tolerance for time based claims.
func (c FirebaseConfig) ClockSkew() time.Duration {
	return seconds(c.ClockSkewSeconds)
}

// KeyCacheTTL returns how long fetched keys stay cached.
func (c FirebaseConfig) KeyCacheTTL() time.Duration {
	if c.JWKSCacheTTL <= 0 {
		return seconds(DefaultJWKSCacheTTL)
	}
	return seconds(c.JWKSCacheTTL)
}

// Timeouts returns the overall and connect timeouts for remote calls.
func (c RemoteAPIConfig) Timeouts() (time.Duration, time.Duration) {
	overall := c.HTTPTimeout
	if overall <= 0 {
		overall = DefaultHTTPTimeout
	}
	connect := c.ConnectTimeout
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	return seconds(overall), seconds(connect)
}

// LoadConfig reads a YAML file on top of DefaultConfig. Environment
// variables referenced as ${NAME} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, ConfigError("unable to read config %s: %s", path, err.Error())
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return cfg, ConfigError("unable to parse config %s: %s", path, err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
