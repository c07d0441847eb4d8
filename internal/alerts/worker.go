package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/store"
)

// Worker persists detections and forwards them to the notifier queue with
// their database id and engine time attached.
type Worker struct {
	bus   *bus.Bus
	store *store.Store
}

// NewWorker returns an alert worker writing to the given store.
func NewWorker(b *bus.Bus, st *store.Store) *Worker {
	return &Worker{bus: b, store: st}
}

// Run consumes the detected queue until the context ends.
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

	logger.Info("alert worker started")

	return w.bus.Consume(ctx, bus.QueueAlertDetected, func(ctx context.Context, d amqp.Delivery) error {
		return w.process(ctx, pub, d.Body)
	})
}

func (w *Worker) process(ctx context.Context, pub publisher, body []byte) error {
	var det Detection
	if err := json.Unmarshal(body, &det); err != nil {
		logger.Warn("unparseable detection", logger.Err(err))
		return nil
	}

	a := alertRow(det)
	if err := w.store.InsertAlert(ctx, a); err != nil {
		// notification still goes out, just without a db id
		logger.Error("store alert failed", logger.Metric(det.Metric), logger.Err(err))
	} else {
		det.DBID = a.ID
		logger.Info("alert stored",
			logger.AlertID(a.ID), logger.Metric(det.Metric), logger.Severity(det.Severity))
	}

	det.EngineTime = time.Now().UTC().Format(time.RFC3339)

	if err := pub.Publish(ctx, "", bus.QueueAlertNotify, det); err != nil {
		return fmt.Errorf("forward detection: %w", err)
	}
	return nil
}

// alertRow maps a wire detection onto the alerts table.
func alertRow(det Detection) *store.Alert {
	a := &store.Alert{
		PacketName:   det.MatchedPacketName,
		SourcePacket: det.RawPacketName,
		SourceTime:   det.Timestamp,
		Submodule:    det.SubmoduleName,
		SubmoduleID:  det.SubmoduleID,
		QueueID:      det.QueueID,
		MetricName:   det.Metric,
		Value:        det.Value,
		Percent:      det.SeverityPercent,
		Severity:     det.Severity,
		Reason:       det.Reason,
		Status:       det.Status,
	}
	if det.Min != nil {
		a.Min = *det.Min
	}
	if det.Max != nil {
		a.Max = *det.Max
	}
	return a
}
