// Package health consumes raw health packets from the bus, decodes their
// payloads against the schema registry, and publishes the decoded rows to
// the decoded exchange. Packets that cannot be decoded become dead letters.
package health

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/decoder"
	"github.com/netrasat/groundcore/pkg/decoder/schemas"
	"github.com/netrasat/groundcore/pkg/metrics"
)

type publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

// Worker decodes raw health packets.
type Worker struct {
	bus      *bus.Bus
	packets  []string
	pipeline *metrics.PipelineMetrics
}

// FilterHealthPackets keeps the packet names carrying health telemetry.
func FilterHealthPackets(packets []string) []string {
	var out []string
	for _, p := range packets {
		if strings.Contains(p, "__HEALTH_") {
			out = append(out, p)
		}
	}
	return out
}

// New returns a worker consuming the health subset of the given packets.
func New(b *bus.Bus, packets []string, pm *metrics.PipelineMetrics) *Worker {
	return &Worker{bus: b, packets: FilterHealthPackets(packets), pipeline: pm}
}

// Run consumes every health packet queue until the context ends. The first
// consumer failure tears the worker down.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.bus.Channel()
	if err != nil {
		return err
	}
	if err := bus.DeclareTopology(ch); err != nil {
		ch.Close()
		return err
	}
	if err := bus.DeclarePacketQueues(ch, w.packets); err != nil {
		ch.Close()
		return err
	}
	ch.Close()

	pub, err := w.bus.NewPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	logger.Info("health consumer started", logger.Rows(len(w.packets)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(w.packets))
	var wg sync.WaitGroup
	for _, packet := range w.packets {
		queue := bus.PacketQueue(packet)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- w.bus.Consume(ctx, queue, func(ctx context.Context, d amqp.Delivery) error {
				return w.process(ctx, pub, d.Body)
			})
		}()
	}

	err = <-errCh
	cancel()
	wg.Wait()
	return err
}

// rawRecord is the slice of a streamed packet record the decoder needs.
type rawRecord struct {
	Packet string `json:"__packet"`
	Buffer string `json:"buffer"`
}

// process decodes one raw packet and publishes the result. Failures are
// converted to dead letters; the returned error only covers bus publishes.
func (w *Worker) process(ctx context.Context, pub publisher, body []byte) error {
	var rec rawRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		logger.Warn("unparseable raw packet record", logger.Err(err))
		return nil
	}
	if rec.Buffer == "" {
		logger.Warn("raw packet record without buffer", logger.Packet(rec.Packet))
		return nil
	}

	payload, err := decodeBuffer(rec.Buffer)
	if err != nil {
		w.pipeline.RecordDecodeFailure(rec.Packet)
		return pub.Publish(ctx, "", bus.QueueDecoderFailed,
			bus.NewDeadLetter(rec.Packet, rec.Buffer, fmt.Errorf("decode buffer: %w", err)))
	}
	payloadHex := hex.EncodeToString(payload)

	core := schemas.CoreName(rec.Packet)
	schema, ok := schemas.Lookup(core)
	if !ok {
		logger.Warn("no schema for packet", logger.Packet(rec.Packet))
		w.pipeline.RecordSchemaMiss(rec.Packet)
		return pub.Publish(ctx, "", bus.QueueDecoderNotFound,
			bus.NewDeadLetter(rec.Packet, payloadHex, nil))
	}

	start := time.Now()
	res, err := decoder.Decode(schema, payload)
	if err != nil {
		logger.Warn("decode failed", logger.Packet(rec.Packet), logger.Err(err))
		w.pipeline.RecordDecodeFailure(rec.Packet)
		return pub.Publish(ctx, "", bus.QueueDecoderFailed,
			bus.NewDeadLetter(rec.Packet, payloadHex, err))
	}
	for _, warning := range res.Warnings {
		logger.Warn("decode warning", logger.Packet(rec.Packet), "warning", warning)
	}
	if len(res.Rows) == 0 {
		logger.Debug("decode produced no rows", logger.Packet(rec.Packet))
		return nil
	}

	envelope := bus.NewDecodedEnvelope(rec.Packet, res.Rows)
	if err := pub.Publish(ctx, bus.ExchangeDecoded, rec.Packet, envelope); err != nil {
		return err
	}
	w.pipeline.RecordDecoded(rec.Packet, time.Since(start))
	logger.Debug("published decoded rows",
		logger.Packet(rec.Packet), logger.Rows(len(res.Rows)))
	return nil
}

// decodeBuffer converts the stream's base64 buffer (possibly wrapped across
// lines) to bytes.
func decodeBuffer(b64 string) ([]byte, error) {
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(b64)
	return base64.StdEncoding.DecodeString(clean)
}
