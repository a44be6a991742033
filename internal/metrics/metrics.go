// Package metrics exposes Prometheus instrumentation for the notification
// fan-out pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectedSessions tracks live WebSocket sessions per tenant.
	ConnectedSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "schoolstream",
		Subsystem: "realtime",
		Name:      "connected_sessions",
		Help:      "Number of live WebSocket sessions currently registered.",
	}, []string{"tenant"})

	// EventsEmitted counts domain events handed to the emitter.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolstream",
		Subsystem: "realtime",
		Name:      "events_emitted_total",
		Help:      "Domain events passed through the event emitter.",
	}, []string{"module"})

	// Deliveries counts per-session live deliveries.
	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolstream",
		Subsystem: "realtime",
		Name:      "deliveries_total",
		Help:      "Live event deliveries to individual sessions.",
	})

	// DroppedDeliveries counts sends abandoned because a session's buffer was full.
	DroppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolstream",
		Subsystem: "realtime",
		Name:      "dropped_deliveries_total",
		Help:      "Live deliveries dropped due to a full session send buffer.",
	})

	// DurableWriteFailures counts failed notification-store appends.
	DurableWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolstream",
		Subsystem: "notifications",
		Name:      "durable_write_failures_total",
		Help:      "Durable notification appends that failed (best-effort path).",
	})
)

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
