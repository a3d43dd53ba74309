package integration

import (
	"context"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/metrics"

	"github.com/rs/zerolog"
)

// Dispatcher publishes committed events. Delivery is best effort: failures
// are logged and counted, never returned.
type Dispatcher struct {
	publisher domain.MessagePublisher
	logger    zerolog.Logger
}

func NewDispatcher(publisher domain.MessagePublisher, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch publishes evts in order. A cancelled context abandons the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, evts []events.Event) {
	if d == nil || d.publisher == nil {
		return
	}
	for _, e := range evts {
		key, body, ok := MessageFor(e)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			d.logger.Warn().Err(err).Str("routing_key", key).Str("booking_id", e.AggregateID()).
				Msg("context done after commit, integration event not published")
			metrics.IncPublish(key, metrics.OutcomeAbandoned)
			continue
		}
		if err := d.publisher.PublishJSON(ctx, key, body); err != nil {
			d.logger.Error().Err(err).Str("routing_key", key).Str("booking_id", e.AggregateID()).
				Msg("failed to publish integration event")
			metrics.IncPublish(key, metrics.OutcomeFailed)
			continue
		}
		metrics.IncPublish(key, metrics.OutcomeOK)
		d.logger.Debug().Str("routing_key", key).Str("booking_id", e.AggregateID()).Msg("integration event published")
	}
}
