// Package metrics provides Prometheus metrics for chatrecall
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for chatrecall
type Metrics struct {
	registry *prometheus.Registry

	// Dispatcher metrics
	EventsTotal     *prometheus.CounterVec
	ArchivedTotal   prometheus.Counter
	KeywordsPerAsk  prometheus.Histogram
	ExcerptMessages *prometheus.HistogramVec

	// Completion gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	// Transport metrics
	TransportUpdatesTotal *prometheus.CounterVec
}

// New creates all metrics on a dedicated registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.EventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrecall_events_total",
			Help: "Total number of inbound chat events by outcome",
		},
		[]string{"outcome"},
	)

	m.ArchivedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrecall_archived_messages_total",
			Help: "Total number of messages written to the archive",
		},
	)

	m.KeywordsPerAsk = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatrecall_keywords_per_question",
			Help:    "Number of keywords extracted per question",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 13},
		},
	)

	m.ExcerptMessages = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrecall_excerpt_messages",
			Help:    "Number of messages handed to the completion gateway",
			Buckets: []float64{0, 5, 10, 25, 50, 80, 100, 250, 500},
		},
		[]string{"mode"},
	)

	m.GatewayRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrecall_gateway_requests_total",
			Help: "Total number of completion gateway calls",
		},
		[]string{"provider", "status"},
	)

	m.GatewayRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrecall_gateway_request_duration_seconds",
			Help:    "Duration of completion gateway calls in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)

	m.TransportUpdatesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrecall_transport_updates_total",
			Help: "Total number of updates received from chat transports",
		},
		[]string{"transport", "status"},
	)

	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordEvent counts a handled inbound event
func (m *Metrics) RecordEvent(outcome string) {
	m.EventsTotal.WithLabelValues(outcome).Inc()
}

// RecordGatewayCall records a completion call with its status
func (m *Metrics) RecordGatewayCall(provider, status string, duration time.Duration) {
	m.GatewayRequestsTotal.WithLabelValues(provider, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordExcerpt records the size of an excerpt sent to the gateway
func (m *Metrics) RecordExcerpt(mode string, messages int) {
	m.ExcerptMessages.WithLabelValues(mode).Observe(float64(messages))
}

// RecordTransportUpdate counts an update received from a transport
func (m *Metrics) RecordTransportUpdate(transport, status string) {
	m.TransportUpdatesTotal.WithLabelValues(transport, status).Inc()
}
