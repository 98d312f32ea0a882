// Package metrics exposes the gateway's Prometheus instruments on a private
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tool call outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeDenied = "denied"
)

// Login-customer resolution sources.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheOverride = "override"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	// ToolCalls counts tool invocations by tool and outcome
	ToolCalls *prometheus.CounterVec
	// ToolCallDuration tracks handler latency by tool
	ToolCallDuration *prometheus.HistogramVec
	// DiscoveryProbeFailures counts isolated manager-probe or child-listing failures
	DiscoveryProbeFailures prometheus.Counter
	// LoginCustomerCache counts resolver lookups by result
	LoginCustomerCache *prometheus.CounterVec
	// Mutations counts dispatched mutate batches by validate-only flag
	Mutations *prometheus.CounterVec
	// HTTPRequestsTotal counts HTTP requests by route, method and status
	HTTPRequestsTotal *prometheus.CounterVec
	// RequestLatency tracks HTTP request latency
	RequestLatency *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"tool", "outcome"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"tool"},
		),
		DiscoveryProbeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discovery_probe_failures_total",
				Help:      "Manager probes or child listings skipped during discovery",
			},
		),
		LoginCustomerCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_customer_cache_total",
				Help:      "Login-customer resolutions by result",
			},
			[]string{"result"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Mutate batches sent to the advertising API",
			},
			[]string{"validate_only"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}

	registry.MustRegister(
		m.ToolCalls,
		m.ToolCallDuration,
		m.DiscoveryProbeFailures,
		m.LoginCustomerCache,
		m.Mutations,
		m.HTTPRequestsTotal,
		m.RequestLatency,
	)

	return m
}

// Handler returns a Prometheus handler for these metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordToolCall records one tool invocation
func (m *Metrics) RecordToolCall(tool, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(durationSeconds)
}

// RecordProbeFailure records a skipped discovery branch
func (m *Metrics) RecordProbeFailure() {
	if m == nil {
		return
	}
	m.DiscoveryProbeFailures.Inc()
}

// RecordLoginCustomer records how a login customer was resolved
func (m *Metrics) RecordLoginCustomer(result string) {
	if m == nil {
		return
	}
	m.LoginCustomerCache.WithLabelValues(result).Inc()
}

// RecordMutation records a dispatched mutate batch
func (m *Metrics) RecordMutation(validateOnly bool) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(strconv.FormatBool(validateOnly)).Inc()
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(route, method, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.RequestLatency.WithLabelValues(route, method).Observe(durationSeconds)
}
