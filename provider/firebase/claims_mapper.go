package firebase

import (
	"context"
	"strings"
	"time"

	bridge "github.com/goliatone/go-auth-bridge"
)

// ClaimsMapper transforms verified claims into a bridge payload.
type ClaimsMapper interface {
	Map(ctx context.Context, claims *Claims) (*bridge.Payload, error)
}

// FirebaseClaimsMapper is the default mapper.
type FirebaseClaimsMapper struct {
	// PermissionsClaimKey overrides the custom claim holding permissions.
	// Default: "permissions".
	PermissionsClaimKey string

	// RolesClaimKey overrides the custom claim holding roles.
	// Default: "roles".
	RolesClaimKey string
}

// Map implements ClaimsMapper.
func (m *FirebaseClaimsMapper) Map(_ context.Context, claims *Claims) (*bridge.Payload, error) {
	if claims == nil {
		return nil, bridge.AuthFailure(bridge.ErrInvalidToken, "no claims to map", nil)
	}

	email := strings.TrimSpace(claims.Email)
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = email
	}

	payload := &bridge.Payload{
		ExternalID:  claims.Subject,
		Email:       email,
		DisplayName: name,
		AvatarURL:   strings.TrimSpace(claims.Picture),
		Status:      bridge.StatusActive,
		Metadata:    m.metadata(claims),
		Permissions: bridge.ParseAccessMap(m.claim(claims, m.PermissionsClaimKey, "permissions", claims.Permissions)),
		Roles:       bridge.ParseAccessMap(m.claim(claims, m.RolesClaimKey, "roles", claims.Roles)),
	}

	if claims.EmailVerified {
		payload.EmailVerifiedAt = verifiedAt(claims)
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return payload, nil
}

func (m *FirebaseClaimsMapper) metadata(claims *Claims) map[string]any {
	metadata := map[string]any{
		"firebase_uid": claims.Subject,
	}
	if claims.UserID != "" && claims.UserID != claims.Subject {
		metadata["firebase_uid"] = claims.UserID
	}
	if claims.Firebase.SignInProvider != "" {
		metadata["sign_in_provider"] = claims.Firebase.SignInProvider
	}
	if claims.Firebase.Tenant != "" {
		metadata["tenant"] = claims.Firebase.Tenant
	}
	if len(claims.Firebase.Identities) > 0 {
		metadata["identities"] = claims.Firebase.Identities
	}
	if claims.AuthTime > 0 {
		metadata["auth_time"] = claims.AuthTime
	}
	return metadata
}

func (m *FirebaseClaimsMapper) claim(claims *Claims, override, key string, fallback any) any {
	if override != "" && override != key && claims.Raw != nil {
		if val, ok := claims.Raw[override]; ok {
			return val
		}
	}
	return fallback
}

// verifiedAt derives a stable timestamp from the token so repeated syncs of
// the same token produce the same payload.
func verifiedAt(claims *Claims) *time.Time {
	var ts time.Time
	switch {
	case claims.AuthTime > 0:
		ts = time.Unix(claims.AuthTime, 0).UTC()
	case claims.IssuedAt != nil:
		ts = claims.IssuedAt.Time.UTC()
	default:
		return nil
	}
	return &ts
}
