// Package observability wires the orchestrator's Prometheus metrics:
// traffic and errors per pipeline stage plus dispatch latency.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	JobsSubmitted  prometheus.Counter
	JobsTerminal   *prometheus.CounterVec
	JobDuration    prometheus.Histogram
	Downloads      prometheus.Counter
	DownloadErrors prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "jobs_submitted_total",
			Help: "Jobs accepted by the orchestrator.",
		}),
		JobsTerminal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_terminal_total",
			Help: "Jobs reaching a terminal state, by status.",
		}, []string{"status"}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "job_dispatch_duration_seconds",
			Help:    "Dispatch pipeline latency from processing to terminal.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600, 1800},
		}),
		Downloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "downloads_total",
			Help: "Successful result downloads.",
		}),
		DownloadErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "download_errors_total",
			Help: "Failed result downloads.",
		}),
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
