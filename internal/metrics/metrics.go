package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes counters/histograms for the chat pipeline and HTTP layer.
// All observers are safe on a nil receiver.
type Metrics struct {
	registry     *prometheus.Registry
	chatOutcomes *prometheus.CounterVec
	modelLatency *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoice_assistant",
			Subsystem: "chat",
			Name:      "outcomes_total",
			Help:      "Chat requests by outcome (clarification, invoice or error kind)",
		}, []string{"outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "invoice_assistant",
			Subsystem: "chat",
			Name:      "model_latency_seconds",
			Help:      "Latency of the model round trip",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"provider"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoice_assistant",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(m.chatOutcomes, m.modelLatency, m.httpRequests)
	return m
}

// ObserveChat counts one chat request by outcome
func (m *Metrics) ObserveChat(outcome string) {
	if m == nil {
		return
	}
	m.chatOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveModelLatency records how long the model call took
func (m *Metrics) ObserveModelLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.modelLatency.WithLabelValues(provider).Observe(seconds)
}

// ObserveRequest counts a finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
