package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for widget rendering.
type Metrics struct {
	Renders        *prometheus.CounterVec // labels: status={over_goal,near_goal,under_goal}
	RenderErrors   *prometheus.CounterVec // labels: reason={not_found,invalid_data,sink,internal}
	RenderDuration prometheus.Histogram
}

// NewMetrics creates and registers all widget metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.Renders, m.RenderErrors, m.RenderDuration)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build several without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "energy_goal",
			Name:      "renders_total",
			Help:      "Widgets rendered, by goal status.",
		}, []string{"status"}),
		RenderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "energy_goal",
			Name:      "render_errors_total",
			Help:      "Failed widget renders, by reason.",
		}, []string{"reason"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energy_goal",
			Name:      "render_duration_seconds",
			Help:      "Time to load the data table and render one widget.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}
