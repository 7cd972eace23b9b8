package firebase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	bridge "github.com/goliatone/go-auth-bridge"
	"github.com/goliatone/go-auth-bridge/jwks"
)

// DefaultClockSkew is the tolerance applied to exp and iat.
const DefaultClockSkew = 60 * time.Second

// KeySource resolves a verification key by kid.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// Verifier validates ID tokens signed with keys from a KeySource.
type Verifier struct {
	keys         KeySource
	issuerPrefix string
	skew         time.Duration
	now          func() time.Time
	parser       *jwt.Parser
}

// NewVerifier creates a token verifier. When cfg.Keys is nil a jwks.KeySet
// is built from the configured URL.
func NewVerifier(cfg Config) (*Verifier, error) {
	keys := cfg.Keys
	if keys == nil {
		set, err := jwks.New(jwks.Config{
			URL:        cfg.jwksURL(),
			CacheTTL:   cfg.JWKSCacheTTL,
			HTTPClient: cfg.HTTPClient,
			Cache:      cfg.Cache,
			Metrics:    cfg.Metrics,
			Logger:     cfg.Logger,
			Now:        cfg.Now,
		})
		if err != nil {
			return nil, err
		}
		keys = set
	}

	prefix := cfg.IssuerPrefix
	if prefix == "" {
		prefix = bridge.DefaultFirebaseIssuer
	}

	skew := DefaultClockSkew
	if cfg.ClockSkew != nil {
		skew = max(*cfg.ClockSkew, 0)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Verifier{
		keys:         keys,
		issuerPrefix: prefix,
		skew:         skew,
		now:          now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Verify checks the token structure, signature and claims for namespace.
// Claims are checked in order and the first failure is returned.
func (v *Verifier) Verify(ctx context.Context, token, namespace string) (*Claims, error) {
	token = strings.TrimSpace(token)
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, invalid("token must have three segments", nil)
	}

	kid, err := headerKeyID(segments[0])
	if err != nil {
		return nil, err
	}

	key, err := v.keys.Key(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return nil, invalid("token signature or encoding is invalid", err)
	}

	if err := v.validateClaims(claims, namespace); err != nil {
		return nil, err
	}

	return claims, nil
}

func (v *Verifier) validateClaims(claims *Claims, namespace string) error {
	now := v.now().Unix()
	skew := int64(v.skew / time.Second)

	if claims.ExpiresAt == nil {
		return invalid("missing exp claim", nil)
	}
	if !numericClaim(claims, "exp") {
		return invalid("exp claim is not numeric", nil)
	}
	if now-claims.ExpiresAt.Unix() > skew {
		return bridge.AuthFailure(bridge.ErrTokenExpired, "token is expired", nil, map[string]any{
			"exp": claims.ExpiresAt.Unix(),
		})
	}

	if claims.IssuedAt == nil {
		return invalid("missing iat claim", nil)
	}
	if !numericClaim(claims, "iat") {
		return invalid("iat claim is not numeric", nil)
	}
	if claims.IssuedAt.Unix() > now+skew {
		return invalid("token issued in the future", nil)
	}

	expected := v.issuerPrefix + namespace
	if claims.Issuer != expected {
		return bridge.AuthFailure(bridge.ErrInvalidToken, "issuer mismatch", nil, map[string]any{
			"issuer":   claims.Issuer,
			"expected": expected,
		})
	}

	if len(claims.Audience) != 1 || claims.Audience[0] != namespace {
		return bridge.AuthFailure(bridge.ErrInvalidToken, "audience mismatch", nil, map[string]any{
			"audience": []string(claims.Audience),
			"expected": namespace,
		})
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return invalid("missing sub claim", nil)
	}

	return nil
}

// numericClaim reports whether the raw claim was a JSON number. Quoted
// numbers decode into jwt.NumericDate too, so the typed field is not enough.
func numericClaim(claims *Claims, name string) bool {
	switch claims.Raw[name].(type) {
	case float64, json.Number:
		return true
	default:
		return false
	}
}

func headerKeyID(segment string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
	if err != nil {
		return "", invalid("token header is not base64url", err)
	}

	var header struct {
		Kid any `json:"kid"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return "", invalid("token header is not JSON", err)
	}

	kid, ok := header.Kid.(string)
	if !ok || kid == "" {
		return "", invalid("missing kid", nil)
	}

	return kid, nil
}

func invalid(reason string, cause error) error {
	return bridge.AuthFailure(bridge.ErrInvalidToken, reason, cause)
}
