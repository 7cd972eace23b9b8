package firebase

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the claims of a Firebase ID token.
type Claims struct {
	jwt.RegisteredClaims
	UserID        string         `json:"user_id,omitempty"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"email_verified,omitempty"`
	Name          string         `json:"name,omitempty"`
	Picture       string         `json:"picture,omitempty"`
	AuthTime      int64          `json:"auth_time,omitempty"`
	Firebase      FirebaseClaim  `json:"firebase"`
	Permissions   any            `json:"permissions,omitempty"`
	Roles         any            `json:"roles,omitempty"`
	Raw           map[string]any `json:"-"`
}

// FirebaseClaim is the provider specific "firebase" claim.
type FirebaseClaim struct {
	SignInProvider string         `json:"sign_in_provider,omitempty"`
	Tenant         string         `json:"tenant,omitempty"`
	Identities     map[string]any `json:"identities,omitempty"`
}

// UnmarshalJSON captures both known and raw claims for custom mapping.
func (c *Claims) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type alias Claims
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*c = Claims(decoded)
	c.Raw = raw
	return nil
}
