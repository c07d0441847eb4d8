// Package ingest streams live telemetry from the mission-control WebSocket
// endpoint and forwards each packet record verbatim onto the raw exchange,
// routed by its packet name.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/config"
	"github.com/netrasat/groundcore/pkg/metrics"
)

// publisher is the slice of bus.Publisher the ingestor needs.
type publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

// Ingestor owns the stream subscription and the forwarding loop.
type Ingestor struct {
	cfg      config.IngestConfig
	bus      *bus.Bus
	pipeline *metrics.PipelineMetrics
}

// New returns an ingestor forwarding onto the given bus.
func New(cfg config.IngestConfig, b *bus.Bus, pm *metrics.PipelineMetrics) *Ingestor {
	return &Ingestor{cfg: cfg, bus: b, pipeline: pm}
}

// Run declares the raw topology and streams until the context ends,
// reconnecting after every stream failure.
func (ing *Ingestor) Run(ctx context.Context) error {
	ch, err := ing.bus.Channel()
	if err != nil {
		return err
	}
	if err := bus.DeclareTopology(ch); err != nil {
		ch.Close()
		return err
	}
	if err := bus.DeclarePacketQueues(ch, ing.cfg.Packets); err != nil {
		ch.Close()
		return err
	}
	ch.Close()

	pub, err := ing.bus.NewPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	logger.Info("telemetry ingest started",
		logger.URL(ing.cfg.URL), logger.Rows(len(ing.cfg.Packets)))

	for {
		err := ing.streamOnce(ctx, pub)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("telemetry stream dropped, reconnecting",
			logger.URL(ing.cfg.URL), logger.Err(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ing.cfg.ReconnectWait):
		}
	}
}

// streamOnce runs one connection lifecycle: dial, subscribe, add packets,
// forward records until the stream breaks.
func (ing *Ingestor) streamOnce(ctx context.Context, pub publisher) error {
	endpoint, err := ing.dialURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	// unblock reads when the context ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := ing.subscribe(conn); err != nil {
		return err
	}
	logger.Info("subscribed to telemetry stream", logger.Rows(len(ing.cfg.Packets)))

	for {
		var frame serverFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("read stream: %w", err)
		}

		switch frame.Type {
		case framePing, frameWelcome, frameConfirm:
			continue
		case frameDisconnect:
			return fmt.Errorf("stream server disconnected")
		}

		recs, err := frame.records()
		if err != nil {
			logger.Warn("bad stream frame", logger.Err(err))
			continue
		}
		for _, rec := range recs {
			if err := ing.forward(ctx, pub, rec); err != nil {
				return err
			}
		}
	}
}

// subscribe performs the channel handshake and sends the packet list.
func (ing *Ingestor) subscribe(conn *websocket.Conn) error {
	if err := conn.WriteJSON(subscribeCommand()); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	// the confirm may be preceded by welcome and ping frames
	for {
		var frame serverFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("await subscription: %w", err)
		}
		if frame.Type == frameConfirm {
			break
		}
		if frame.Type == frameReject {
			return fmt.Errorf("stream subscription rejected")
		}
	}

	add, err := addPacketsCommand(ing.cfg.Scope, ing.cfg.Password, ing.cfg.Packets)
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(add); err != nil {
		return fmt.Errorf("send packet list: %w", err)
	}
	return nil
}

// forward publishes one record verbatim onto the raw exchange.
func (ing *Ingestor) forward(ctx context.Context, pub publisher, rec map[string]any) error {
	name, ok := packetName(rec)
	if !ok {
		logger.Warn("stream record without packet name, dropped")
		return nil
	}

	if err := pub.Publish(ctx, bus.ExchangeRaw, name, rec); err != nil {
		return fmt.Errorf("forward %s: %w", name, err)
	}
	ing.pipeline.RecordIngested(name)
	logger.Debug("forwarded raw packet", logger.Packet(name))
	return nil
}

// dialURL appends the scope and authorization query parameters.
func (ing *Ingestor) dialURL() (string, error) {
	u, err := url.Parse(ing.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	q := u.Query()
	q.Set("scope", ing.cfg.Scope)
	if ing.cfg.Password != "" {
		q.Set("authorization", ing.cfg.Password)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
