package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the API and the usage worker
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	WorkerMessagesTotal *prometheus.CounterVec
	WorkerBatchDuration prometheus.Histogram

	WebhooksReceivedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all instruments on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		WorkerMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_usage_messages_total",
			Help: "Usage stream messages by stream and outcome",
		}, []string{"stream", "outcome"}),
		WorkerBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "atlas_usage_batch_duration_seconds",
			Help:    "Usage worker batch processing time",
			Buckets: prometheus.DefBuckets,
		}),
		WebhooksReceivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_webhooks_received_total",
			Help: "Webhook deliveries by platform and outcome",
		}, []string{"platform", "outcome"}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WorkerMessagesTotal,
		m.WorkerBatchDuration,
		m.WebhooksReceivedTotal,
	)

	return m
}

// Handler exposes the registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
