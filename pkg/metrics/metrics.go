package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing, which keeps unit tests free of registries.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	EntitlementDecisions *prometheus.CounterVec
	PaymentEvents        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zubari_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zubari_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		EntitlementDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zubari_entitlement_decisions_total",
				Help: "Quota gate decisions by capability and outcome",
			},
			[]string{"capability", "outcome"},
		),
		PaymentEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zubari_payment_events_total",
				Help: "Payment intent lifecycle events",
			},
			[]string{"plan", "event"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EntitlementDecisions,
		m.PaymentEvents,
	)
	return m
}

func (m *Metrics) ObserveDecision(capability, outcome string) {
	if m == nil {
		return
	}
	m.EntitlementDecisions.WithLabelValues(capability, outcome).Inc()
}

func (m *Metrics) ObservePayment(plan, event string) {
	if m == nil {
		return
	}
	m.PaymentEvents.WithLabelValues(plan, event).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
