package bridge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridge "github.com/goliatone/go-auth-bridge"
	"github.com/goliatone/go-auth-bridge/cache"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()

	m, err := bridge.NewMetrics(registry)
	require.NoError(t, err)

	m.ObserveAuthentication("firebase:proj", nil)
	m.ObserveAuthentication("firebase:proj", bridge.ErrTokenExpired.Clone())
	m.ObserveCacheLookup("hit")
	m.ObserveJWKSFetch(errors.New("503"))
	m.ObserveSync("created")

	count, err := testutil.GatherAndCount(registry, "authbridge_authentications_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, name := range []string{"authbridge_cache_lookups_total", "authbridge_jwks_fetches_total", "authbridge_syncs_total"} {
		count, err = testutil.GatherAndCount(registry, name)
		require.NoError(t, err)
		assert.Equal(t, 1, count, name)
	}

	_, err = bridge.NewMetrics(registry)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *bridge.Metrics
	assert.NotPanics(t, func() {
		m.ObserveAuthentication("p", nil)
		m.ObserveCacheLookup("miss")
		m.ObserveJWKSFetch(nil)
		m.ObserveSync("updated")
	})
}

func TestGuard_RecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := bridge.NewMetrics(registry)
	require.NoError(t, err)

	store := newMapStore()
	synchronizer := bridge.NewSynchronizer(bridge.SynchronizerConfig{
		Store:      store,
		Logger:     bridge.NopLogger(),
		Metrics:    metrics,
		Credential: func() (string, error) { return "placeholder", nil },
	})

	p := &countingProvider{prefix: "firebase:proj", payload: testPayload("fb1")}
	guard, err := bridge.NewGuard(bridge.DefaultConfig(), p, synchronizer,
		bridge.WithGuardCache(cache.NewMemory()),
		bridge.WithGuardMetrics(metrics),
		bridge.WithGuardLogger(bridge.NopLogger()),
	)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := guard.ResolveUser(context.Background(), bearer("tok"))
		require.NoError(t, err)
	}

	count, err := testutil.GatherAndCount(registry, "authbridge_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(registry, "authbridge_syncs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAuthOutcome(t *testing.T) {
	assert.Equal(t, "ok", bridge.AuthOutcome(nil))
	assert.Equal(t, "expired", bridge.AuthOutcome(bridge.ErrTokenExpired.Clone()))
	assert.Equal(t, "invalid", bridge.AuthOutcome(bridge.ErrInvalidToken.Clone()))
	assert.Equal(t, "key_fetch", bridge.AuthOutcome(bridge.ErrKeyFetch.Clone()))
	assert.Equal(t, "rejected", bridge.AuthOutcome(bridge.ErrRemoteAuthRejected.Clone()))
	assert.Equal(t, "missing_id", bridge.AuthOutcome(bridge.ErrMissingExternalID.Clone()))
	assert.Equal(t, "error", bridge.AuthOutcome(errors.New("x")))
}
