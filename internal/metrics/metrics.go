// Package metrics collects and exposes Prometheus metrics for the HTTP surface and provider calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics interface used by services, tasks and handlers.
type Recorder interface {
	RecordHTTPRequest(route, method string, status int, duration time.Duration)
	RecordProviderCall(provider, endpoint string, status int, duration time.Duration)
	RecordReconcile(outcome string)
	RecordSuggestions(count int)
}

// Collector is the Prometheus implementation of [Recorder].
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	providerCalls    *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	reconciles       *prometheus.CounterVec
	suggestionsTotal prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmix_http_requests_total",
			Help: "HTTP requests served, by route, method and status code",
		}, []string{"route", "method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brandmix_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmix_provider_calls_total",
			Help: "Outbound provider calls, by provider, endpoint and status code",
		}, []string{"provider", "endpoint", "status_code"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brandmix_provider_call_duration_seconds",
			Help:    "Outbound provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brandmix_reconciliations_total",
			Help: "Playlist reconciliations, by outcome",
		}, []string{"outcome"}),
		suggestionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brandmix_suggestions_parsed_total",
			Help: "Song suggestions parsed from language model output",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.providerCalls,
		c.providerLatency,
		c.reconciles,
		c.suggestionsTotal,
	)

	return c
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordProviderCall records one outbound call. A status of 0 means the transport failed.
func (c *Collector) RecordProviderCall(provider, endpoint string, status int, duration time.Duration) {
	c.providerCalls.WithLabelValues(provider, endpoint, strconv.Itoa(status)).Inc()
	c.providerLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordReconcile records a finished reconciliation: created, updated or failed.
func (c *Collector) RecordReconcile(outcome string) {
	c.reconciles.WithLabelValues(outcome).Inc()
}

// RecordSuggestions adds count parsed suggestions.
func (c *Collector) RecordSuggestions(count int) {
	c.suggestionsTotal.Add(float64(count))
}

// RegisterPendingStates exposes a gauge backed by fn, typically the OAuth state store's length.
func RegisterPendingStates(reg prometheus.Registerer, fn func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "brandmix_oauth_pending_states",
		Help: "OAuth states issued and not yet consumed or expired",
	}, func() float64 { return float64(fn()) }))
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Useful in tests and one-off CLI commands.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordProviderCall(string, string, int, time.Duration) {}
func (Nop) RecordReconcile(string) {}
func (Nop) RecordSuggestions(int) {}
