// Package observability exposes the broadcast path's counters through
// Prometheus. Metrics are registered on an injected registry so tests
// can use a fresh one.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsPublished   prometheus.Counter
	Deliveries        prometheus.Counter
	DroppedDeliveries prometheus.Counter
	ActiveConnections prometheus.Gauge
	Subscriptions     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgboard_change_events_total",
			Help: "Change events accepted by the dispatcher.",
		}),
		Deliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgboard_deliveries_total",
			Help: "Broadcast payloads enqueued on subscriber connections.",
		}),
		DroppedDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "msgboard_dropped_deliveries_total",
			Help: "Broadcast payloads dropped because a subscriber's outbound path was full or closed.",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "msgboard_active_connections",
			Help: "Currently open websocket sessions.",
		}),
		Subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "msgboard_subscriptions",
			Help: "Currently registered subscriptions.",
		}),
	}
}
