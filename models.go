package bridge

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the local record mirroring a remote identity
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name              *string        `bun:"name" json:"name,omitempty"`
	Email             *string        `bun:"email" json:"email,omitempty"`
	PasswordHash      string         `bun:"password_hash" json:"-"`
	ExternalUserID    *string        `bun:"external_user_id,unique" json:"external_user_id,omitempty"`
	AvatarURL         string         `bun:"avatar_url" json:"avatar_url,omitempty"`
	ExternalAccountID string         `bun:"external_account_id" json:"external_account_id,omitempty"`
	ExternalAccounts  []string       `bun:"external_accounts,type:jsonb" json:"external_accounts,omitempty"`
	ExternalApps      []string       `bun:"external_apps,type:jsonb" json:"external_apps,omitempty"`
	ExternalStatus    string         `bun:"external_status" json:"external_status,omitempty"`
	ExternalPayload   map[string]any `bun:"external_payload,type:jsonb" json:"external_payload,omitempty"`
	ExternalSyncedAt  *time.Time     `bun:"external_synced_at,nullzero" json:"external_synced_at,omitempty"`
	LastSeenAt        *time.Time     `bun:"last_seen_at,nullzero" json:"last_seen_at,omitempty"`
	CreatedAt         *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// GetExternalUserID returns the external id or an empty string.
func (u *User) GetExternalUserID() string {
	if u == nil || u.ExternalUserID == nil {
		return ""
	}
	return *u.ExternalUserID
}

// GetEmail returns the email or an empty string.
func (u *User) GetEmail() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}

// GetName returns the name or an empty string.
func (u *User) GetName() string {
	if u == nil || u.Name == nil {
		return ""
	}
	return *u.Name
}

// HasAccount reports whether the account was seen for this user.
func (u *User) HasAccount(account string) bool {
	return u != nil && containsString(u.ExternalAccounts, account)
}

// HasApp reports whether the app was seen for this user.
func (u *User) HasApp(app string) bool {
	return u != nil && containsString(u.ExternalApps, app)
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// mergeUnique appends values missing from dst, preserving order.
func mergeUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" || containsString(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
