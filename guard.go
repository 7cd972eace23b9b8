package bridge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-auth-bridge"

// Guard resolves the local user behind a bearer token.
type Guard struct {
	provider      Provider
	synchronizer  *Synchronizer
	cache         Cache
	cacheTTL      time.Duration
	accountHeader string
	appHeader     string
	inputKey      string
	storageKey    string
	logger        Logger
	metrics       *Metrics
	tracer        trace.Tracer
}

type GuardOption func(*Guard)

// WithGuardCache sets the store used for the authentication cache.
func WithGuardCache(c Cache) GuardOption {
	return func(g *Guard) {
		g.cache = c
	}
}

func WithGuardLogger(l Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithGuardMetrics(m *Metrics) GuardOption {
	return func(g *Guard) {
		g.metrics = m
	}
}

func WithGuardTracer(t trace.Tracer) GuardOption {
	return func(g *Guard) {
		if t != nil {
			g.tracer = t
		}
	}
}

// NewGuard creates a guard for provider. The provider is built once by the
// caller and held for the lifetime of the guard.
func NewGuard(cfg Config, provider Provider, synchronizer *Synchronizer, opts ...GuardOption) (*Guard, error) {
	if provider == nil {
		return nil, ConfigError("guard requires an auth provider")
	}
	if synchronizer == nil {
		return nil, ConfigError("guard requires an identity synchronizer")
	}

	account, app := cfg.ContextHeaderNames()

	g := &Guard{
		provider:      provider,
		synchronizer:  synchronizer,
		cacheTTL:      cfg.AuthCacheTTL(),
		accountHeader: account,
		appHeader:     app,
		inputKey:      strings.TrimSpace(cfg.Guard.InputKey),
		storageKey:    strings.TrimSpace(cfg.Guard.StorageKey),
		logger:        DefaultLogger(),
		tracer:        otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g, nil
}

// Provider returns the active auth provider.
func (g *Guard) Provider() Provider {
	return g.provider
}

// ResolveUser authenticates the request and synchronizes the local user.
// It returns nil, nil when the request carries no token.
func (g *Guard) ResolveUser(ctx context.Context, req Request) (*Resolution, error) {
	ctx, span := g.tracer.Start(ctx, "bridge.resolve_user")
	defer span.End()

	token := g.ExtractToken(req)
	if token == "" {
		span.SetAttributes(attribute.Bool("authbridge.anonymous", true))
		return nil, nil
	}

	headers, scope := g.ContextHeaders(req)
	span.SetAttributes(
		attribute.String("authbridge.provider", g.provider.CacheKeyPrefix()),
		attribute.String("authbridge.account_id", scope.AccountID),
		attribute.String("authbridge.app_key", scope.AppKey),
	)

	payload, err := g.authenticate(ctx, token, headers, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, AuthOutcome(err))
		return nil, err
	}

	user, err := g.synchronizer.Sync(ctx, payload, scope)
	if err != nil {
		g.logger.Error("identity sync failed for %s: %s", payload.ExternalID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync")
		return nil, err
	}

	return &Resolution{
		User:    user,
		Payload: payload,
		Scope:   scope,
	}, nil
}

func (g *Guard) authenticate(ctx context.Context, token string, headers map[string]string, span trace.Span) (*Payload, error) {
	prefix := g.provider.CacheKeyPrefix()

	var key string
	if g.cacheEnabled() {
		key = CacheKey(prefix, token, headers)
		if payload, ok := g.cached(ctx, key); ok {
			g.metrics.ObserveCacheLookup("hit")
			span.SetAttributes(attribute.Bool("authbridge.cache_hit", true))
			return payload, nil
		}
		g.metrics.ObserveCacheLookup("miss")
	} else {
		g.metrics.ObserveCacheLookup("bypass")
	}

	payload, err := g.provider.Authenticate(ctx, token, headers)
	if err == nil {
		err = payload.Validate()
	}
	g.metrics.ObserveAuthentication(prefix, err)

	if err != nil {
		if !IsAuthenticationError(err) {
			err = AuthFailure(ErrUnauthenticated, "authentication failed", err)
		}
		g.logger.Info("authentication failed: provider=%s outcome=%s reason=%s details=%s",
			prefix, AuthOutcome(err), ErrorReason(err), print.MaybePrettyJSON(errorMetadata(err)))
		return nil, err
	}

	if key != "" {
		g.store(ctx, key, payload)
	}

	return payload, nil
}

func (g *Guard) cacheEnabled() bool {
	return g.cache != nil && g.cacheTTL > 0
}

func (g *Guard) cached(ctx context.Context, key string) (*Payload, bool) {
	raw, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Error("auth cache read failed: %s", err)
		return nil, false
	}
	if !ok || len(raw) == 0 {
		return nil, false
	}

	payload := &Payload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		g.logger.Error("auth cache entry is corrupt, ignoring: %s", err)
		return nil, false
	}
	if payload.Validate() != nil {
		return nil, false
	}

	return payload, true
}

func (g *Guard) store(ctx context.Context, key string, payload *Payload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error("unable to encode payload for cache: %s", err)
		return
	}
	if err := g.cache.Put(ctx, key, raw, g.cacheTTL); err != nil {
		g.logger.Error("auth cache write failed: %s", err)
	}
}

// ExtractToken reads the bearer token from the Authorization header, then
// the configured input field, then the configured cookie.
func (g *Guard) ExtractToken(req Request) string {
	if req == nil {
		return ""
	}

	if token := BearerToken(req.Header("Authorization")); token != "" {
		return token
	}

	if g.inputKey != "" {
		if token := strings.TrimSpace(req.Input(g.inputKey)); token != "" {
			return token
		}
	}

	if g.storageKey != "" {
		if token := strings.TrimSpace(req.Cookie(g.storageKey)); token != "" {
			return token
		}
	}

	return ""
}

// ContextHeaders resolves the configured account/app headers.
func (g *Guard) ContextHeaders(req Request) (map[string]string, Scope) {
	headers := map[string]string{}
	scope := Scope{}
	if req == nil {
		return headers, scope
	}

	if v := strings.TrimSpace(req.Header(g.accountHeader)); v != "" {
		headers[g.accountHeader] = v
		scope.AccountID = v
	}
	if v := strings.TrimSpace(req.Header(g.appHeader)); v != "" {
		headers[g.appHeader] = v
		scope.AppKey = v
	}

	return headers, scope
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Fingerprint hashes the provider prefix, token and sorted context headers.
func Fingerprint(prefix, token string, headers map[string]string) string {
	pairs := make([]string, 0, len(headers))
	for name, value := range headers {
		pairs = append(pairs, strings.ToLower(name)+":"+value)
	}
	sort.Strings(pairs)

	h := sha256.New()
	h.Write([]byte(prefix))
	h.Write([]byte{'|'})
	h.Write([]byte(token))
	for _, p := range pairs {
		h.Write([]byte{'|'})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey is the authentication cache key for a token under prefix.
func CacheKey(prefix, token string, headers map[string]string) string {
	return DefaultAuthCacheKeyPrefix + ":" + prefix + ":" + Fingerprint(prefix, token, headers)
}

func errorMetadata(err error) map[string]any {
	meta := map[string]any{"error": err.Error()}
	if rich := asRichError(err); rich != nil && len(rich.Metadata) > 0 {
		for k, v := range rich.Metadata {
			meta[k] = v
		}
	}
	return meta
}
