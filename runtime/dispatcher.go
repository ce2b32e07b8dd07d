package runtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"msgboard/contract"
	"msgboard/domain"
	"msgboard/observability"
)

// Dispatcher fans one committed change event out to every connection
// subscribed to the event's resource at publish time.
//
// It is best-effort per recipient: a full or closed outbound path costs
// that single delivery and nothing else. The run loop is a single
// goroutine, so deliveries reach each connection's queue in publish
// order.
type Dispatcher struct {
	log      *slog.Logger
	registry contract.IRegistry
	events   chan domain.ChangeEvent
	metrics  *observability.Metrics
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry, bufferSize int, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		log:      log,
		registry: registry,
		events:   make(chan domain.ChangeEvent, bufferSize),
		metrics:  metrics,
	}
}

// Publish enqueues the event for fan-out. The channel is buffered for
// bursts; if the dispatcher has stopped draining (shutdown), the event
// is dropped with a warning rather than blocking the mutation path.
func (d *Dispatcher) Publish(evt domain.ChangeEvent) {
	select {
	case d.events <- evt:
	default:
		d.log.Warn("event channel full, dropping change event",
			"kind", evt.Kind, "resource", evt.Resource, "id", evt.Data.ID)
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-d.events:
			d.fanout(evt)
		case <-ctx.Done():
			d.log.Debug("context done, stopping dispatcher")
			return nil
		}
	}
}

// fanout serializes the broadcast envelope once and offers the shared
// payload to every subscriber. Offer never blocks, so one saturated
// consumer cannot delay the rest.
func (d *Dispatcher) fanout(evt domain.ChangeEvent) {
	d.metrics.EventsPublished.Inc()

	payload, err := json.Marshal(domain.Broadcast{Action: evt.Kind, Data: evt.Data})
	if err != nil {
		d.log.Error("marshal broadcast", "error", err)
		return
	}

	for _, sink := range d.registry.SubscribersFor(evt.Resource) {
		if sink.Offer(payload) {
			d.metrics.Deliveries.Inc()
		} else {
			d.metrics.DroppedDeliveries.Inc()
		}
	}
}
