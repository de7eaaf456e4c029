package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects task metrics of a run. As a run is too short to be scraped, the metrics
// are written in the text format of the node exporters' textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	tasks    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics returns metrics registered in a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rnxfetch_tasks_total",
			Help: "The number of finished tasks by final state.",
		}, []string{"state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rnxfetch_task_duration_seconds",
			Help:    "Time spent per task.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	m.registry.MustRegister(m.tasks, m.duration)
	return m
}

// Observe counts the outcome o.
func (m *Metrics) Observe(o Outcome) {
	m.tasks.WithLabelValues(o.State.String()).Inc()
	m.duration.Observe(o.Duration.Seconds())
}

// WriteTextfile writes the metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
