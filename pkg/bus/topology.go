package bus

import (
	"fmt"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange names. Raw packets are routed by packet name; decoded rows fan
// out to every `#` binding. The RABBITMQ_EXCHANGE and
// RABBITMQ_OUTPUT_EXCHANGE environment overrides carried over from the
// previous deployment are still honored.
var (
	ExchangeRaw     = exchangeName("RABBITMQ_EXCHANGE", "telemetry.raw")
	ExchangeDecoded = exchangeName("RABBITMQ_OUTPUT_EXCHANGE", "telemetry.decoded")
)

func exchangeName(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// Queue names. All of these sit on the default exchange and are addressed
// directly by name, except the two decoded fan-out queues.
const (
	QueueDBPersistence = "q.decoded.db_persistence"
	QueueAlerts        = "q.decoded.alerts"

	QueueAlertDetected = "alert.detected"
	QueueAlertNotify   = "alert.notify"

	QueueDecoderNotFound = "decoder.not_found"
	QueueDecoderFailed   = "decoder.failed"

	// QueuePersistenceFailed parks decoded envelopes the sink could not
	// write, preserved for operator replay.
	QueuePersistenceFailed = "persistence.failed"
)

// PacketQueue returns the per-packet raw queue name.
func PacketQueue(packet string) string {
	return "pkt." + packet
}

// DeclareTopology creates the durable exchanges, the decoded fan-out queues,
// and the fixed direct queues. Declarations are idempotent; every worker runs
// this on startup so ordering between services does not matter.
func DeclareTopology(ch *amqp.Channel) error {
	for _, ex := range []string{ExchangeRaw, ExchangeDecoded} {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	for _, q := range []string{QueueDBPersistence, QueueAlerts} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, "#", ExchangeDecoded, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	for _, q := range []string{
		QueueAlertDetected, QueueAlertNotify,
		QueueDecoderNotFound, QueueDecoderFailed,
		QueuePersistenceFailed,
	} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	return nil
}

// DeclarePacketQueues creates and binds one raw queue per packet name.
func DeclarePacketQueues(ch *amqp.Channel, packets []string) error {
	for _, packet := range packets {
		q := PacketQueue(packet)
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, packet, ExchangeRaw, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}
