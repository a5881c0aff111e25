package normalform

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the work of normal form passes, labelled by generator name.
// A nil *Metrics records nothing.
type Metrics struct {
	concepts     *prometheus.CounterVec
	components   *prometheus.CounterVec
	changes      *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		concepts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dnf",
			Name:      "concepts_processed_total",
			Help:      "Concepts handed to the change processor.",
		}, []string{"generator"}),
		components: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dnf",
			Name:      "components_generated_total",
			Help:      "Properties generated across all concepts.",
		}, []string{"generator"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dnf",
			Name:      "changes_total",
			Help:      "Normal form changes reported, by kind.",
		}, []string{"generator", "kind"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dnf",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of one normal form pass.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"generator", "outcome"}),
	}
	reg.MustRegister(m.concepts, m.components, m.changes, m.passDuration)
	return m
}

func (m *Metrics) conceptDone(generator string, generated int) {
	if m == nil {
		return
	}
	m.concepts.WithLabelValues(generator).Inc()
	m.components.WithLabelValues(generator).Add(float64(generated))
}

func (m *Metrics) changesReported(generator string, added, removed int) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(generator, "added").Add(float64(added))
	m.changes.WithLabelValues(generator, "removed").Add(float64(removed))
}

func (m *Metrics) passFinished(generator, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.WithLabelValues(generator, outcome).Observe(elapsed.Seconds())
}
