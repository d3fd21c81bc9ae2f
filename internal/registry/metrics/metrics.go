package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry cache.
type Metrics struct {
	CacheRequests *prometheus.CounterVec
	CircuitOpen   prometheus.Gauge
}

// New registers the registry metrics on reg; nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "penmatch_registry_cache_requests_total",
			Help: "Registry cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"
		CircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "penmatch_registry_cache_circuit_open",
			Help: "1 while the cache breaker bypasses Redis",
		}),
	}
}

func (m *Metrics) RecordCacheHit()   { m.inc("hit") }
func (m *Metrics) RecordCacheMiss()  { m.inc("miss") }
func (m *Metrics) RecordCacheError() { m.inc("error") }

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}

func (m *Metrics) inc(result string) {
	if m != nil {
		m.CacheRequests.WithLabelValues(result).Inc()
	}
}
