package jwks

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	bridge "github.com/goliatone/go-auth-bridge"
)

const (
	// DefaultCacheTTL is how long a fetched key set stays valid.
	DefaultCacheTTL = time.Hour

	cacheKeyPrefix  = "authbridge:jwks:"
	maxResponseSize = 1 << 20
)

// Config configures a KeySet.
type Config struct {
	// URL of the published key set.
	URL string

	// CacheTTL defaults to one hour.
	CacheTTL time.Duration

	// HTTPClient defaults to bridge.NewHTTPClient with default timeouts.
	HTTPClient *http.Client

	// Cache is the shared store for the raw key set. When nil the set is
	// only kept in process.
	Cache bridge.Cache

	Metrics *bridge.Metrics
	Logger  bridge.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

type parsedSet struct {
	digest  string
	keys    map[string]any
	expires time.Time
}

// KeySet fetches and caches verification keys indexed by kid. A miss or an
// expired entry triggers a full refetch; sets are never merged.
type KeySet struct {
	url      string
	cacheTTL time.Duration
	client   *http.Client
	cache    bridge.Cache
	metrics  *bridge.Metrics
	logger   bridge.Logger
	now      func() time.Time

	mu     sync.Mutex
	parsed *parsedSet
}

// New creates a KeySet.
func New(cfg Config) (*KeySet, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, bridge.ConfigError("jwks: url is required")
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = bridge.NewHTTPClient(0, 0)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = bridge.NopLogger()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &KeySet{
		url:      url,
		cacheTTL: ttl,
		client:   client,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      now,
	}, nil
}

// URL returns the key set location.
func (s *KeySet) URL() string {
	return s.url
}

// Keys returns the current key set, fetching it when the cached copy is
// missing or expired.
func (s *KeySet) Keys(ctx context.Context) (map[string]any, error) {
	if keys, ok := s.cachedKeys(ctx); ok {
		return keys, nil
	}

	body, err := s.fetch(ctx)
	s.metrics.ObserveJWKSFetch(err)
	if err != nil {
		return nil, err
	}

	keys, err := s.parse(body)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, s.cacheKey(), body, s.cacheTTL); err != nil {
			s.logger.Error("jwks cache write failed: %s", err)
		}
	}

	return keys, nil
}

// Key returns the verification key for kid. An unknown kid is an invalid
// token, never a reason to try other keys.
func (s *KeySet) Key(ctx context.Context, kid string) (any, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}

	key, ok := keys[kid]
	if !ok || key == nil {
		return nil, bridge.AuthFailure(bridge.ErrInvalidToken, fmt.Sprintf("unknown kid: %s", kid), nil,
			map[string]any{"kid": kid})
	}

	return key, nil
}

func (s *KeySet) cachedKeys(ctx context.Context) (map[string]any, bool) {
	if s.cache == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.parsed != nil && s.now().Before(s.parsed.expires) {
			return s.parsed.keys, true
		}
		return nil, false
	}

	raw, ok, err := s.cache.Get(ctx, s.cacheKey())
	if err != nil {
		s.logger.Error("jwks cache read failed: %s", err)
		return nil, false
	}
	if !ok || len(raw) == 0 {
		return nil, false
	}

	keys, err := s.parse(raw)
	if err != nil {
		s.logger.Error("cached jwks is unusable, refetching: %s", err)
		return nil, false
	}

	return keys, true
}

func (s *KeySet) fetch(ctx context.Context) ([]byte, error) {
	ctx, span := otel.Tracer("github.com/goliatone/go-auth-bridge/jwks").Start(ctx, "jwks.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("jwks.url", s.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, s.fetchError("unable to build key set request", err, 0)
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, s.fetchError("key set endpoint unreachable", err, 0)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		span.SetStatus(codes.Error, "status")
		return nil, s.fetchError(fmt.Sprintf("key set endpoint returned %d", res.StatusCode), nil, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, s.fetchError("unable to read key set", err, res.StatusCode)
	}

	s.logger.Debug("fetched jwks from %s", s.url)

	return body, nil
}

func (s *KeySet) parse(body []byte) (map[string]any, error) {
	digest := sha256.Sum256(body)
	hash := hex.EncodeToString(digest[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parsed != nil && s.parsed.digest == hash {
		if s.cache != nil || s.now().Before(s.parsed.expires) {
			return s.parsed.keys, nil
		}
	}

	var doc struct {
		Keys json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, s.fetchError("key set is not a JSON object", err, 0)
	}

	list := bytes.TrimSpace(doc.Keys)
	if len(list) == 0 || list[0] != '[' {
		return nil, s.fetchError("key set has no keys array", nil, 0)
	}

	set, err := keyfunc.NewJSON(body)
	if err != nil {
		return nil, s.fetchError("unable to parse key set", err, 0)
	}

	keys := set.ReadOnlyKeys()
	s.parsed = &parsedSet{
		digest:  hash,
		keys:    keys,
		expires: s.now().Add(s.cacheTTL),
	}

	return keys, nil
}

func (s *KeySet) cacheKey() string {
	digest := sha256.Sum256([]byte(s.url))
	return cacheKeyPrefix + hex.EncodeToString(digest[:8])
}

func (s *KeySet) fetchError(reason string, cause error, status int) error {
	meta := map[string]any{"url": s.url}
	if status > 0 {
		meta["status"] = status
	}
	return bridge.AuthFailure(bridge.ErrKeyFetch, reason, cause, meta)
}
