package bridge_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridge "github.com/goliatone/go-auth-bridge"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestPayloadFromMap(t *testing.T) {
	data := decode(t, `{
		"id": 42,
		"email": "jane@example.com",
		"name": "Jane",
		"avatar": "https://cdn.example.com/jane.png",
		"email_verified_at": "2024-01-02T03:04:05+02:00",
		"permissions": {"acct-1": {"docs": ["docs.read", "", 7]}},
		"roles": {"acct-1": {"docs": "editor"}, "broken": ["x"]},
		"plan": "pro"
	}`)

	p, err := bridge.PayloadFromMap(data)
	require.NoError(t, err)

	assert.Equal(t, "42", p.ExternalID)
	assert.Equal(t, "jane@example.com", p.Email)
	assert.Equal(t, "Jane", p.DisplayName)
	assert.Equal(t, "https://cdn.example.com/jane.png", p.AvatarURL)
	assert.Equal(t, bridge.StatusActive, p.Status)
	require.NotNil(t, p.EmailVerifiedAt)
	assert.Equal(t, time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC), *p.EmailVerifiedAt)
	assert.Equal(t, bridge.AccessMap{"acct-1": {"docs": {"docs.read"}}}, p.Permissions)
	assert.Equal(t, bridge.AccessMap{"acct-1": {"docs": {"editor"}}}, p.Roles)
	assert.Equal(t, map[string]any{"plan": "pro"}, p.Metadata)
}

func TestPayloadFromMap_Aliases(t *testing.T) {
	p, err := bridge.PayloadFromMap(map[string]any{
		"external_id":  "ext-1",
		"display_name": "Display",
		"picture":      "https://example.com/p.png",
		"status":       "suspended",
	})
	require.NoError(t, err)

	assert.Equal(t, "ext-1", p.ExternalID)
	assert.Equal(t, "Display", p.DisplayName)
	assert.Equal(t, "https://example.com/p.png", p.AvatarURL)
	assert.Equal(t, "suspended", p.Status)
	assert.Nil(t, p.Permissions)
}

func TestPayloadFromMap_MissingID(t *testing.T) {
	for _, data := range []map[string]any{
		nil,
		{},
		{"id": ""},
		{"id": "   "},
		{"id": nil, "email": "x@y.com"},
	} {
		_, err := bridge.PayloadFromMap(data)
		require.Error(t, err)
		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeMissingExternalID))
	}
}

func TestPayload_Clone(t *testing.T) {
	verified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &bridge.Payload{
		ExternalID:      "u1",
		EmailVerifiedAt: &verified,
		Metadata:        map[string]any{"k": "v"},
		Permissions:     bridge.AccessMap{"a": {"b": {"c"}}},
	}

	c := p.Clone()
	require.Equal(t, p, c)

	c.Metadata["k"] = "changed"
	c.Permissions["a"]["b"][0] = "changed"
	*c.EmailVerifiedAt = verified.Add(time.Hour)

	assert.Equal(t, "v", p.Metadata["k"])
	assert.Equal(t, "c", p.Permissions["a"]["b"][0])
	assert.Equal(t, verified, *p.EmailVerifiedAt)

	var nilPayload *bridge.Payload
	assert.Nil(t, nilPayload.Clone())
	assert.False(t, nilPayload.HasPermission("c", "a", "b"))
	assert.False(t, nilPayload.HasRole("c", "a", "b"))
}

func TestPayload_Snapshot(t *testing.T) {
	snapshot, err := testPayload("fb1").Snapshot()
	require.NoError(t, err)

	assert.Equal(t, "fb1", snapshot["external_id"])
	assert.Equal(t, "fb1@example.com", snapshot["email"])
	assert.NotContains(t, snapshot, "metadata")
	assert.Equal(t, map[string]any{"acct-1": map[string]any{"docs": []any{"docs.read"}}}, snapshot["permissions"])
}

func TestAccessMap(t *testing.T) {
	m := bridge.AccessMap{"a1": {"app": {"x", "y"}}}

	assert.Equal(t, []string{"x", "y"}, m.Lookup("a1", "app"))
	assert.Nil(t, m.Lookup("a1", ""))
	assert.Nil(t, m.Lookup("", "app"))
	assert.Nil(t, m.Lookup("a2", "app"))
	assert.True(t, m.Contains("a1", "app", "y"))
	assert.False(t, m.Contains("a1", "app", "z"))
	assert.Equal(t, []string{"a1"}, m.Accounts())

	var empty bridge.AccessMap
	assert.Nil(t, empty.Lookup("a1", "app"))
}

func TestParseAccessMap(t *testing.T) {
	assert.Nil(t, bridge.ParseAccessMap(nil))
	assert.Nil(t, bridge.ParseAccessMap("scalar"))
	assert.Nil(t, bridge.ParseAccessMap(map[string]any{"a": "not-a-map"}))

	typed := map[string]map[string][]string{"a": {"b": {"c"}}}
	parsed := bridge.ParseAccessMap(typed)
	assert.Equal(t, bridge.AccessMap(typed), parsed)

	parsed["a"]["b"][0] = "changed"
	assert.Equal(t, "c", typed["a"]["b"][0])
}
