package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StatusActive is the status assigned to identities the upstream provider
// considers enabled.
const StatusActive = "active"

// AccessMap holds values keyed by account id and then app key.
type AccessMap map[string]map[string][]string

// Lookup returns the values registered for account and app.
func (m AccessMap) Lookup(account, app string) []string {
	if m == nil || account == "" || app == "" {
		return nil
	}
	apps, ok := m[account]
	if !ok {
		return nil
	}
	return apps[app]
}

// Contains reports whether value is listed for account and app.
func (m AccessMap) Contains(account, app, value string) bool {
	for _, v := range m.Lookup(account, app) {
		if v == value {
			return true
		}
	}
	return false
}

// Accounts returns the account ids present in the map.
func (m AccessMap) Accounts() []string {
	out := make([]string, 0, len(m))
	for account := range m {
		out = append(out, account)
	}
	return out
}

func (m AccessMap) clone() AccessMap {
	if m == nil {
		return nil
	}
	out := make(AccessMap, len(m))
	for account, apps := range m {
		inner := make(map[string][]string, len(apps))
		for app, values := range apps {
			inner[app] = append([]string(nil), values...)
		}
		out[account] = inner
	}
	return out
}

// Payload is the provider independent identity produced by a successful
// authentication.
type Payload struct {
	ExternalID      string         `json:"external_id"`
	Email           string         `json:"email,omitempty"`
	DisplayName     string         `json:"display_name,omitempty"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at,omitempty"`
	AvatarURL       string         `json:"avatar_url,omitempty"`
	Status          string         `json:"status,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Permissions     AccessMap      `json:"permissions,omitempty"`
	Roles           AccessMap      `json:"roles,omitempty"`
}

// Validate checks the payload invariants.
func (p *Payload) Validate() error {
	if p == nil || strings.TrimSpace(p.ExternalID) == "" {
		return ErrMissingExternalID.Clone()
	}
	return nil
}

// Clone returns a deep copy of the payload.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := *p
	if p.EmailVerifiedAt != nil {
		t := *p.EmailVerifiedAt
		out.EmailVerifiedAt = &t
	}
	if p.Metadata != nil {
		out.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	out.Permissions = p.Permissions.clone()
	out.Roles = p.Roles.clone()
	return &out
}

// HasPermission reports whether the payload grants name for account/app.
func (p *Payload) HasPermission(name, account, app string) bool {
	if p == nil {
		return false
	}
	return p.Permissions.Contains(account, app, name)
}

// HasRole reports whether the payload grants the role for account/app.
func (p *Payload) HasRole(name, account, app string) bool {
	if p == nil {
		return false
	}
	return p.Roles.Contains(account, app, name)
}

// Snapshot serializes the payload into a generic JSON object.
func (p *Payload) Snapshot() (map[string]any, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var knownPayloadKeys = map[string]struct{}{
	"id":                {},
	"external_id":       {},
	"email":             {},
	"name":              {},
	"display_name":      {},
	"avatar_url":        {},
	"avatar":            {},
	"picture":           {},
	"email_verified_at": {},
	"status":            {},
	"permissions":       {},
	"roles":             {},
}

// PayloadFromMap builds a payload from a decoded JSON user object. Keys not
// part of the payload contract are kept in Metadata.
func PayloadFromMap(data map[string]any) (*Payload, error) {
	if data == nil {
		return nil, ErrMissingExternalID.Clone()
	}

	p := &Payload{
		ExternalID:  firstString(data, "id", "external_id"),
		Email:       firstString(data, "email"),
		DisplayName: firstString(data, "name", "display_name"),
		AvatarURL:   firstString(data, "avatar_url", "avatar", "picture"),
		Status:      firstString(data, "status"),
		Metadata:    map[string]any{},
	}

	if p.Status == "" {
		p.Status = StatusActive
	}

	if raw := firstString(data, "email_verified_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			ts = ts.UTC()
			p.EmailVerifiedAt = &ts
		}
	}

	p.Permissions = ParseAccessMap(data["permissions"])
	p.Roles = ParseAccessMap(data["roles"])

	for k, v := range data {
		if _, ok := knownPayloadKeys[k]; ok {
			continue
		}
		p.Metadata[k] = v
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// ParseAccessMap converts a decoded {account: {app: [values]}} structure.
// Malformed branches are skipped.
func ParseAccessMap(raw any) AccessMap {
	switch typed := raw.(type) {
	case AccessMap:
		return typed.clone()
	case map[string]map[string][]string:
		return AccessMap(typed).clone()
	case map[string]any:
		out := AccessMap{}
		for account, appsRaw := range typed {
			apps, ok := appsRaw.(map[string]any)
			if !ok {
				continue
			}
			inner := map[string][]string{}
			for app, valuesRaw := range apps {
				inner[app] = toStrings(valuesRaw)
			}
			out[account] = inner
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

func toStrings(raw any) []string {
	switch typed := raw.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, v := range typed {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if typed == "" {
			return nil
		}
		return []string{typed}
	default:
		return nil
	}
}

func firstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		raw, ok := data[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case int, int64:
			return fmt.Sprintf("%d", v)
		}
	}
	return ""
}
