package bridgelog

import (
	"context"
	"fmt"
)

// Counters are the per-topic message and byte tallies.
type Counters struct {
	RxMsgs  int64 `json:"rx_msgs"`
	RxBytes int64 `json:"rx_bytes"`
	TxMsgs  int64 `json:"tx_msgs"`
	TxBytes int64 `json:"tx_bytes"`
}

// IsZero reports whether nothing has been counted.
func (c Counters) IsZero() bool {
	return c.RxMsgs == 0 && c.RxBytes == 0 && c.TxMsgs == 0 && c.TxBytes == 0
}

// Add returns the element-wise sum.
func (c Counters) Add(o Counters) Counters {
	return Counters{
		RxMsgs:  c.RxMsgs + o.RxMsgs,
		RxBytes: c.RxBytes + o.RxBytes,
		TxMsgs:  c.TxMsgs + o.TxMsgs,
		TxBytes: c.TxBytes + o.TxBytes,
	}
}

// Totals rebuilds per-topic counters from the logs, matching the bridge's
// direction semantics: commands are received from A, uplinks transmitted to
// B, downlinks received from B, telemetry transmitted to A.
func (s *Store) Totals(ctx context.Context, station string) (map[string]Counters, error) {
	totals := make(map[string]Counters, len(LogicalTopics))
	for _, t := range LogicalTopics {
		totals[t] = Counters{}
	}

	msgs, bytes, err := s.sum(ctx, &cosmosCommandLog{}, station, DirectionAtoB)
	if err != nil {
		return nil, err
	}
	totals[TopicCosmosCommand] = Counters{RxMsgs: msgs, RxBytes: bytes}

	msgs, bytes, err = s.sum(ctx, &satosUplinkLog{}, station, DirectionAtoB)
	if err != nil {
		return nil, err
	}
	totals[TopicSatosUplink] = Counters{TxMsgs: msgs, TxBytes: bytes}

	msgs, bytes, err = s.sum(ctx, &satosDownlinkLog{}, station, DirectionBtoA)
	if err != nil {
		return nil, err
	}
	totals[TopicSatosDownlink] = Counters{RxMsgs: msgs, RxBytes: bytes}

	msgs, bytes, err = s.sum(ctx, &cosmosTelemetryLog{}, station, DirectionBtoA)
	if err != nil {
		return nil, err
	}
	totals[TopicCosmosTelemetry] = Counters{TxMsgs: msgs, TxBytes: bytes}

	return totals, nil
}

func (s *Store) sum(ctx context.Context, model any, station, direction string) (int64, int64, error) {
	var row struct {
		Msgs  int64
		Bytes int64
	}
	err := s.db.WithContext(ctx).Model(model).
		Select("COUNT(id) AS msgs, COALESCE(SUM(bytes), 0) AS bytes").
		Where("station_id = ? AND direction = ?", station, direction).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("sum totals: %w", err)
	}
	return row.Msgs, row.Bytes, nil
}
