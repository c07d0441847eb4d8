package schemas

import "github.com/netrasat/groundcore/pkg/decoder"

// Fault detection, isolation and recovery logs. Each instance is a ring of
// eight 32-bit packed log entries plus the write index and a millisecond
// epoch stamp.
func init() {
	register(fdirQueue("HEALTH_FDIR_DATA_QUEUE_0", 0))
	register(fdirQueue("HEALTH_FDIR_DATA_QUEUE_1", 1))
	register(fdirQueue("HEALTH_FDIR_DATA_QUEUE_2", 2))
}

func fdirQueue(name string, queue int) *decoder.Schema {
	fields := make([]decoder.Field, 0, 10)
	for _, entry := range []string{
		"Entry_1", "Entry_2", "Entry_3", "Entry_4",
		"Entry_5", "Entry_6", "Entry_7", "Entry_8",
	} {
		fields = append(fields, decoder.Field{
			Name:      entry,
			Type:      decoder.U32,
			Transform: decoder.FDIRLogEntry,
		})
	}
	fields = append(fields,
		decoder.Field{Name: "Write_Index", Type: decoder.U16},
		decoder.Field{Name: "epoch_time_utc", RawName: "epoch_time_in_ms", Type: decoder.U64, Transform: decoder.EpochMilli64},
	)

	return &decoder.Schema{
		Name:            name,
		ExpectedQueueID: queue,
		Header:          headerAt25(),
		Segment:         fields,
		SegmentLen:      42,
	}
}
