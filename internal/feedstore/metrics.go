// ABOUTME: Prometheus instrumentation for the feed store worker
// ABOUTME: A nil *Metrics is valid and records nothing

package feedstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	targetLocal     = "local"
	targetDelegated = "delegated"
)

// Metrics holds the store's collectors.
type Metrics struct {
	inserts   *prometheus.CounterVec
	retrieves *prometheus.CounterVec
	returned  prometheus.Histogram
	slot      prometheus.Gauge
}

// NewMetrics registers the store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		inserts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedstore_inserts_total",
			Help: "Insert requests by target and result",
		}, []string{"target", "result"}),
		retrieves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedstore_retrieves_total",
			Help: "Retrieve requests by target and result",
		}, []string{"target", "result"}),
		returned: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedstore_items_returned",
			Help:    "Items rendered per successful retrieve",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		slot: f.NewGauge(prometheus.GaugeOpts{
			Name: "feedstore_slot",
			Help: "Current value of the shared slot counter",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) observeInsert(target string, err error) {
	if m == nil {
		return
	}
	m.inserts.WithLabelValues(target, result(err)).Inc()
}

func (m *Metrics) observeRetrieve(target string, n int, err error) {
	if m == nil {
		return
	}
	m.retrieves.WithLabelValues(target, result(err)).Inc()
	if err == nil {
		m.returned.Observe(float64(n))
	}
}

func (m *Metrics) setSlot(slot uint64) {
	if m == nil {
		return
	}
	m.slot.Set(float64(slot))
}
