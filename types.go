package bridge

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Provider authenticates a bearer token against an identity source and
// returns the normalized payload.
type Provider interface {
	// Authenticate verifies token. headers holds the resolved context
	// headers (name to value) that remote providers forward upstream.
	// Failures are authentication errors, see IsAuthenticationError.
	Authenticate(ctx context.Context, token string, headers map[string]string) (*Payload, error)
	// CacheKeyPrefix namespaces authentication cache entries.
	CacheKeyPrefix() string
}

// ProviderFunc adapts a function into a Provider with a fixed prefix.
type ProviderFunc struct {
	Prefix string
	Fn     func(ctx context.Context, token string, headers map[string]string) (*Payload, error)
}

// Authenticate satisfies the Provider interface.
func (p ProviderFunc) Authenticate(ctx context.Context, token string, headers map[string]string) (*Payload, error) {
	if p.Fn == nil {
		return nil, ErrUnauthenticated.Clone()
	}
	return p.Fn(ctx, token, headers)
}

// CacheKeyPrefix satisfies the Provider interface.
func (p ProviderFunc) CacheKeyPrefix() string {
	return p.Prefix
}

// Cache is the shared key value store backing the authentication and key
// material caches.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value for ttl. A zero ttl stores nothing.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Store persists local identity records.
type Store interface {
	// FindByExternalID returns nil, nil when no record matches.
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	// Create inserts a record. Returns ErrDuplicateExternalID on collision.
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
}

// Request exposes the inbound request values the guard reads.
type Request interface {
	Header(name string) string
	Cookie(name string) string
	Input(name string) string
}

// Scope is the account/app context resolved from request headers.
type Scope struct {
	AccountID string `json:"account_id,omitempty"`
	AppKey    string `json:"app_key,omitempty"`
}

// IsZero reports whether neither account nor app are set.
func (s Scope) IsZero() bool {
	return s.AccountID == "" && s.AppKey == ""
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHBRIDGE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHBRIDGE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHBRIDGE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger { return defLogger{} }

// NopLogger returns a logger that discards everything.
func NopLogger() Logger { return nopLogger{} }
