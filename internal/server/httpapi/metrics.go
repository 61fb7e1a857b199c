package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the HTTP layer's Prometheus instruments.
type Metrics struct {
	AuthRequests    *prometheus.CounterVec
	GateDecisions   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry returns a private registry preloaded with the Go runtime and
// process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// NewMetrics creates the orgchart metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgchart_auth_requests_total",
				Help: "Register and login attempts by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgchart_gate_decisions_total",
				Help: "Request gate decisions for protected routes",
			},
			[]string{"decision"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgchart_http_request_duration_seconds",
				Help:    "HTTP request latency by method, route and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(m.AuthRequests, m.GateDecisions, m.RequestDuration)
	return m
}
