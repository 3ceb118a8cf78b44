package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP holds the Prometheus collectors of the API server.
type HTTP struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AnalysesTotal   *prometheus.CounterVec
}

// NewHTTP registers the collectors on reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	factory := promauto.With(reg)
	return &HTTP{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"method", "path", "status"}),
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analyses_created_total",
			Help: "Analysis creation attempts by outcome.",
		}, []string{"outcome"}), // created, invalid, scrape_failed, llm_failed, error
	}
}

func (m *HTTP) IncAnalyses(outcome string) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}
