package alerting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dispatcher fans one alert out to every configured channel. Delivery is
// best effort, at most one attempt per channel per alert creation; a failing
// channel never blocks the others, and every attempt completes before
// Dispatch returns.
type Dispatcher struct {
	channels []Channel
	logger   zerolog.Logger
}

// NewDispatcher wires the channel set.
func NewDispatcher(channels []Channel, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch attempts delivery on every channel and returns the number of
// successful deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, summary AlertSummary) int {
	delivered := 0
	for _, channel := range d.channels {
		deliveryID := uuid.NewString()
		if err := d.deliver(ctx, channel, summary); err != nil {
			d.logger.Error().Err(err).
				Str("channel", channel.Name()).
				Str("delivery_id", deliveryID).
				Int64("alert_id", summary.ID).
				Msg("alert delivery failed")
			continue
		}
		delivered++
		d.logger.Debug().
			Str("channel", channel.Name()).
			Str("delivery_id", deliveryID).
			Int64("alert_id", summary.ID).
			Msg("alert delivered")
	}
	return delivered
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, summary AlertSummary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel %s panicked: %v", channel.Name(), r)
		}
	}()
	return channel.Send(ctx, summary)
}
