package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/decoder"
	"github.com/netrasat/groundcore/pkg/metrics"
	"github.com/netrasat/groundcore/pkg/store"
)

type publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

// Detection is the wire form of one raised alert. The worker attaches DBID
// and EngineTime before forwarding it to the notifier.
type Detection struct {
	Timestamp         string   `json:"timestamp"`
	RawPacketName     string   `json:"raw_packet_name"`
	MatchedPacketName string   `json:"matched_packet_name"`
	SubmoduleID       string   `json:"submodule_id"`
	SubmoduleName     string   `json:"submodule_name"`
	QueueID           int      `json:"queue_id"`
	Metric            string   `json:"metric"`
	Value             float64  `json:"value"`
	Min               *float64 `json:"min"`
	Max               *float64 `json:"max"`
	Severity          string   `json:"severity"`
	SeverityPercent   float64  `json:"severity_percent"`
	Reason            string   `json:"reason"`
	Status            string   `json:"status"`

	DBID       int64  `json:"db_id,omitempty"`
	EngineTime string `json:"engine_time,omitempty"`
}

// Builder consumes decoded telemetry and raises detections.
type Builder struct {
	bus      *bus.Bus
	cfg      *Config
	index    map[int]*PacketRule
	pipeline *metrics.PipelineMetrics
}

// NewBuilder returns a builder evaluating against the given rule config.
func NewBuilder(b *bus.Bus, cfg *Config, pm *metrics.PipelineMetrics) *Builder {
	return &Builder{bus: b, cfg: cfg, index: cfg.queueIndex(), pipeline: pm}
}

// Run consumes the decoded alert queue until the context ends.
func (b *Builder) Run(ctx context.Context) error {
	ch, err := b.bus.Channel()
	if err != nil {
		return err
	}
	if err := bus.DeclareTopology(ch); err != nil {
		ch.Close()
		return err
	}
	ch.Close()

	pub, err := b.bus.NewPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	logger.Info("alert builder started", logger.Rows(len(b.index)))

	return b.bus.Consume(ctx, bus.QueueAlerts, func(ctx context.Context, d amqp.Delivery) error {
		return b.process(ctx, pub, d.Body)
	})
}

func (b *Builder) process(ctx context.Context, pub publisher, body []byte) error {
	var env bus.DecodedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		logger.Warn("unparseable decoded envelope", logger.Err(err))
		return nil
	}

	for _, det := range b.Evaluate(env) {
		if err := pub.Publish(ctx, "", bus.QueueAlertDetected, det); err != nil {
			return fmt.Errorf("publish detection: %w", err)
		}
		b.pipeline.RecordAlert(det.Severity)
		logger.Info("alert detected",
			logger.Metric(det.Metric), logger.Severity(det.Severity),
			logger.Value(det.Value), logger.Packet(det.RawPacketName))
	}
	return nil
}

// Evaluate checks every instance of a decoded envelope against the rule for
// its queue id and returns the detections.
func (b *Builder) Evaluate(env bus.DecodedEnvelope) []Detection {
	var out []Detection

	for _, row := range env.Data {
		queueID, ok := rowInt(row, "Queue_ID")
		if !ok {
			continue
		}
		rule, ok := b.index[int(queueID)]
		if !ok {
			continue
		}

		thresholds := b.cfg.Thresholds
		if rule.Thresholds != nil {
			thresholds = *rule.Thresholds
		}

		submoduleID := rowLabel(row, "Submodule_ID")

		for metric, limits := range rule.Metrics {
			value, ok := rowFloat(row, metric)
			if !ok {
				continue
			}

			severity, percent, reason, hit := evaluateMetric(value, limits, thresholds)
			if !hit {
				continue
			}

			out = append(out, Detection{
				Timestamp:         env.Meta.TimestampUTC,
				RawPacketName:     env.Meta.PacketName,
				MatchedPacketName: rule.PacketName,
				SubmoduleID:       submoduleID,
				SubmoduleName:     b.cfg.submoduleName(submoduleID),
				QueueID:           rule.QueueID,
				Metric:            metric,
				Value:             value,
				Min:               limits.Min,
				Max:               limits.Max,
				Severity:          severity,
				SeverityPercent:   percent,
				Reason:            reason,
				Status:            store.StatusIdentified,
			})
		}
	}
	return out
}

// evaluateMetric grades one value. Out-of-bounds is always RED 100; inside
// the bounds the severity follows the percent of range consumed.
func evaluateMetric(value float64, limits MetricLimits, th Thresholds) (severity string, percent float64, reason string, ok bool) {
	if limits.Min != nil && value < *limits.Min {
		return "RED", 100, "Value below minimum limit", true
	}
	if limits.Max != nil && value > *limits.Max {
		return "RED", 100, "Value above maximum limit", true
	}
	if limits.Min == nil || limits.Max == nil || *limits.Max == *limits.Min {
		return "", 0, "", false
	}

	span := *limits.Max - *limits.Min
	distance := math.Min(value-*limits.Min, *limits.Max-value)
	percent = math.Round(100*(1-distance/span)*100) / 100

	switch {
	case percent >= th.RedPercent:
		return "RED", percent, "Reached 100% operational limit", true
	case percent >= th.AmberPercent:
		return "AMBER", percent, "Above 90% operational limit", true
	case percent >= th.YellowPercent:
		return "YELLOW", percent, "Above 80% operational limit", true
	}
	return "", 0, "", false
}

// Decoded rows arrive with json.Number values after a wire round trip and
// native ints or floats when evaluated in-process; the coercions below
// accept both.

func rowInt(row *decoder.Row, key string) (int64, bool) {
	v, ok := row.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func rowFloat(row *decoder.Row, key string) (float64, bool) {
	v, ok := row.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// rowLabel renders a row value as its decimal or string label.
func rowLabel(row *decoder.Row, key string) string {
	v, ok := row.Get(key)
	if !ok {
		return ""
	}
	switch n := v.(type) {
	case string:
		return n
	case json.Number:
		return n.String()
	case int64:
		return strconv.FormatInt(n, 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
