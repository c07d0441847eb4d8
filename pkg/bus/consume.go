package bus

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/netrasat/groundcore/internal/logger"
)

// Handler processes one delivery. The delivery is acknowledged whether or
// not the handler errors: failed messages are re-emitted as dead letters by
// the handler itself, never redelivered.
type Handler func(ctx context.Context, d amqp.Delivery) error

// Consume reads a queue until the context ends or the channel closes.
// Prefetch is 1 so a slow worker never hoards messages.
func (b *Bus) Consume(ctx context.Context, queue string, h Handler) error {
	ch, err := b.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrNotConnected
			}
			if err := h(ctx, d); err != nil {
				logger.Warn("message handler failed",
					logger.Queue(queue), logger.Err(err))
			}
			if err := d.Ack(false); err != nil {
				logger.Error("ack failed", logger.Queue(queue), logger.Err(err))
			}
		}
	}
}
