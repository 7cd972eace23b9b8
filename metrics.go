package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records bridge outcomes in Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	authentications *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	jwksFetches     *prometheus.CounterVec
	syncs           *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		authentications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authbridge_authentications_total",
				Help: "Total number of authentication attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authbridge_cache_lookups_total",
				Help: "Total number of authentication cache lookups by result",
			},
			[]string{"result"},
		),
		jwksFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authbridge_jwks_fetches_total",
				Help: "Total number of signing key set fetches by outcome",
			},
			[]string{"outcome"},
		),
		syncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authbridge_syncs_total",
				Help: "Total number of identity synchronizations by result",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.authentications,
		m.cacheLookups,
		m.jwksFetches,
		m.syncs,
	}
}

// ObserveAuthentication records an authentication outcome. outcome is
// derived from err: ok, expired, invalid, key_fetch, rejected or error.
func (m *Metrics) ObserveAuthentication(provider string, err error) {
	if m == nil {
		return
	}
	m.authentications.WithLabelValues(provider, AuthOutcome(err)).Inc()
}

// ObserveCacheLookup records a cache hit, miss or bypass.
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveJWKSFetch records a key set fetch.
func (m *Metrics) ObserveJWKSFetch(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jwksFetches.WithLabelValues(outcome).Inc()
}

// ObserveSync records a synchronization result.
func (m *Metrics) ObserveSync(result string) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(result).Inc()
}

// AuthOutcome classifies an authentication error for logs and metrics.
func AuthOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTokenExpiredError(err):
		return "expired"
	case IsInvalidTokenError(err):
		return "invalid"
	case HasTextCode(err, TextCodeKeyFetch):
		return "key_fetch"
	case HasTextCode(err, TextCodeRemoteAuthRejected):
		return "rejected"
	case HasTextCode(err, TextCodeMissingExternalID):
		return "missing_id"
	default:
		return "error"
	}
}
