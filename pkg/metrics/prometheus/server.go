// Package prometheus implements the metrics interfaces on a Prometheus
// registry and serves them over an optional /metrics endpoint.
package prometheus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidsha/gammarpc/pkg/metrics"
)

// serverMetrics is the Prometheus implementation of metrics.ServerMetrics.
type serverMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	activeConnections      prometheus.Gauge
	requests               *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
}

// NewServerMetrics registers the server collectors on reg and returns the
// recorder.
func NewServerMetrics(reg prometheus.Registerer) metrics.ServerMetrics {
	return &serverMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gammarpc_connections_accepted_total",
			Help: "Total number of accepted client connections",
		}),
		connectionsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gammarpc_connections_closed_total",
			Help: "Total number of closed client connections",
		}),
		connectionsForceClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "gammarpc_connections_force_closed_total",
			Help: "Total number of connections force-closed at shutdown",
		}),
		activeConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gammarpc_active_connections",
			Help: "Current number of active client connections",
		}),
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammarpc_requests_total",
				Help: "Total number of requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gammarpc_request_duration_milliseconds",
				Help: "Request processing duration in milliseconds",
				Buckets: []float64{
					0.05, // in-memory find
					0.1,
					0.5,
					1,
					5,
					10,
					50,
					100, // slow handlers
					500,
				},
			},
			[]string{"operation"},
		),
	}
}

func (m *serverMetrics) RecordConnectionAccepted()    { m.connectionsAccepted.Inc() }
func (m *serverMetrics) RecordConnectionClosed()      { m.connectionsClosed.Inc() }
func (m *serverMetrics) RecordConnectionForceClosed() { m.connectionsForceClosed.Inc() }

func (m *serverMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *serverMetrics) RecordRequest(operation string, duration time.Duration, outcome string) {
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).
		Observe(float64(duration.Microseconds()) / 1000.0)
}

// NewRegistry creates a Prometheus registry preloaded with the standard
// Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// NewHTTPServer returns an HTTP server exposing reg on /metrics at the
// given port. The caller owns its lifecycle.
func NewHTTPServer(port int, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
