// Package sink drains the decoded telemetry queue into the PostgreSQL
// per-packet tables, and the decoder dead-letter queues into their fixed
// tables.
package sink

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/decoder/schemas"
	"github.com/netrasat/groundcore/pkg/metrics"
	"github.com/netrasat/groundcore/pkg/store"
)

type publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

// Worker persists decoded telemetry and dead letters.
type Worker struct {
	bus      *bus.Bus
	store    *store.Store
	pipeline *metrics.PipelineMetrics
}

// New returns a sink worker writing to the given store.
func New(b *bus.Bus, st *store.Store, pm *metrics.PipelineMetrics) *Worker {
	return &Worker{bus: b, store: st, pipeline: pm}
}

// Run consumes the persistence and dead-letter queues until the context
// ends. The first consumer failure tears the worker down.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.bus.Channel()
	if err != nil {
		return err
	}
	if err := bus.DeclareTopology(ch); err != nil {
		ch.Close()
		return err
	}
	ch.Close()

	pub, err := w.bus.NewPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	logger.Info("db sink started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumers := map[string]bus.Handler{
		bus.QueueDBPersistence: func(ctx context.Context, d amqp.Delivery) error {
			return w.handleDecoded(ctx, pub, d)
		},
		bus.QueueDecoderNotFound: w.handleNotFound,
		bus.QueueDecoderFailed:   w.handleFailed,
	}

	errCh := make(chan error, len(consumers))
	var wg sync.WaitGroup
	for queue, handler := range consumers {
		queue, handler := queue, handler
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- w.bus.Consume(ctx, queue, handler)
		}()
	}

	err = <-errCh
	cancel()
	wg.Wait()
	return err
}

// handleDecoded writes one decoded envelope into its packet table. An
// insert failure parks the whole envelope on the persistence dead-letter
// queue before the message is acked, so the rows survive for replay.
func (w *Worker) handleDecoded(ctx context.Context, pub publisher, d amqp.Delivery) error {
	var env bus.DecodedEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		logger.Warn("unparseable decoded envelope", logger.Err(err))
		return nil
	}
	if len(env.Data) == 0 {
		return nil
	}

	table := schemas.CoreName(env.Meta.PacketName)
	if err := w.store.InsertRows(ctx, table, env.Data); err != nil {
		w.pipeline.RecordPersistFailure(table)
		logger.Warn("insert failed, dead-lettering envelope",
			logger.Table(table), logger.Err(err))
		return pub.Publish(ctx, "", bus.QueuePersistenceFailed,
			bus.NewPersistFailure(env, err))
	}
	w.pipeline.RecordPersisted(table, len(env.Data))
	logger.Debug("persisted decoded rows",
		logger.Table(table), logger.Rows(len(env.Data)))
	return nil
}

func (w *Worker) handleNotFound(ctx context.Context, d amqp.Delivery) error {
	dl, ok := parseDeadLetter(d.Body)
	if !ok {
		return nil
	}
	return w.store.InsertNotFound(ctx, dl.PacketName, dl.PayloadHex)
}

func (w *Worker) handleFailed(ctx context.Context, d amqp.Delivery) error {
	dl, ok := parseDeadLetter(d.Body)
	if !ok {
		return nil
	}
	return w.store.InsertFailed(ctx, dl.PacketName, dl.PayloadHex, dl.Error)
}

func parseDeadLetter(body []byte) (bus.DeadLetter, bool) {
	var dl bus.DeadLetter
	if err := json.Unmarshal(body, &dl); err != nil {
		logger.Warn("unparseable dead letter", logger.Err(err))
		return bus.DeadLetter{}, false
	}
	return dl, true
}
