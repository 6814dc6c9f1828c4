package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for the resolution layer.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	keySetFetches   *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance. Call [Metrics.Register] to
// attach the collectors to a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arclight_auth_requests_total",
				Help: "Total number of authentication attempts by resolver method and outcome",
			},
			[]string{"method", "outcome"},
		),
		keySetFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arclight_auth_keyset_fetches_total",
				Help: "Total number of outbound key-set fetches by result",
			},
			[]string{"result"},
		),
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arclight_auth_resolve_duration_seconds",
				Help:    "Identity resolution latency by resolver method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// Register registers all collectors with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.requestsTotal, m.keySetFetches, m.resolveDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// observeRequest records one authentication attempt. The outcome label is
// "ok" on success or the error code category (e.g., "MAL", "UNAVAIL").
func (m *Metrics) observeRequest(method Method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(string(method), outcome).Inc()
	m.resolveDuration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
}

// observeKeySetFetch records one outbound key-set fetch with result "ok"
// or "error".
func (m *Metrics) observeKeySetFetch(result string) {
	if m == nil {
		return
	}
	m.keySetFetches.WithLabelValues(result).Inc()
}
