package schemas

import "github.com/netrasat/groundcore/pkg/decoder"

// GNSS receiver status interpretations: zero means valid.
var (
	gnssClockStatus = map[int64]string{
		0: "Clock model status VALID",
		1: "Clock model status INVALID",
	}
	gnssUTCStatus = map[int64]string{
		0: "UTC time VALID",
		1: "UTC time INVALID",
	}
	gnssPosStatus = map[int64]string{
		0: "GNSS position VALID",
		1: "GNSS position INVALID",
	}
)

func init() {
	register(&decoder.Schema{
		Name:            "HEALTH_GNSS_DATA",
		ExpectedQueueID: 0,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "Year", Type: decoder.U16},
			{Name: "Month", Type: decoder.U8},
			{Name: "Day", Type: decoder.U8},
			{Name: "Hour", Type: decoder.U8},
			{Name: "Minute", Type: decoder.U8},
			{Name: "Millisec", Type: decoder.U16},
			{Name: "Reserved", Type: decoder.U8},
			{Name: "Clk_Model_Recv_Sts", Type: decoder.U8, Map: gnssClockStatus},
			{Name: "UTC_Known_Recv_Sts", Type: decoder.U8, Map: gnssUTCStatus},
			{Name: "Pos_Sts", Type: decoder.U8, Map: gnssPosStatus},
			{Name: "LNA_Fail_Recv_Sts", Type: decoder.U8},
			{Name: "CPU_Overload_Recv_Sts", Type: decoder.U8},
			{Name: "Antenna_Gain_State", Type: decoder.U8},
			{Name: "Compo_HW_Fail_Sts", Type: decoder.U8},
			{Name: "Antenna_Current", Type: decoder.F32},
			{Name: "Antenna_Voltage", Type: decoder.F32},
			{Name: "Receiver_Voltage", Type: decoder.F32},
			{Name: "Temperature", Type: decoder.F32},
		},
		SegmentLen: 32,
	})

	register(boardTemp("HEALTH_SENSORS_TEMP_GPS_DATA"))
	register(boardTemp("HEALTH_SENSORS_TEMP_SPW02_DATA"))

	register(&decoder.Schema{
		Name:            "HEALTH_SENSORS_HSC_PS_DATA",
		ExpectedQueueID: -1,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "Vbus_Voltage", Type: decoder.F32},
			{Name: "Vshunt_Voltage", Type: decoder.F32},
			{Name: "Current", Type: decoder.F32},
			{Name: "Power", Type: decoder.U32},
			{Name: "Timestamp", Type: decoder.U32, Transform: decoder.EpochSec32},
		},
		SegmentLen: 20,
	})
}

// boardTemp is the two-field board temperature shape shared by the GPS and
// SpaceWire sensor queues.
func boardTemp(name string) *decoder.Schema {
	return &decoder.Schema{
		Name:            name,
		ExpectedQueueID: -1,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "Temperature", Type: decoder.F32},
			{Name: "temp_epoch_time", Type: decoder.U32, Transform: decoder.EpochSec32},
		},
		SegmentLen: 8,
	}
}
