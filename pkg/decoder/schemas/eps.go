package schemas

import "github.com/netrasat/groundcore/pkg/decoder"

// epsSubsystems labels the units whose temperatures the smart energy switch
// channels report.
var epsSubsystems = map[int64]string{
	0:  "Hold and Release Module",
	1:  "Primary On - Board Controller",
	2:  "Secondary On - Board Controller",
	3:  "Primary Payload Server",
	4:  "Secondary Payload Server",
	5:  "Primary GPS",
	6:  "Secondary GPS",
	7:  "Primary ADCS",
	8:  "Reserved",
	9:  "Primary UHF",
	10: "Reserved",
	11: "Primary S-BAND",
	12: "Reserved",
	13: "Primary X-BAND",
	14: "Secondary X-BAND",
	15: "Primary Edge Server",
	16: "Secondary Edge Server",
	17: "Primary Thruster",
	18: "Reserved",
	19: "MSI",
	20: "SES - A",
	21: "SES - B",
	22: "SAS - A",
	23: "Burn Wire - 1",
	24: "SAS - B",
	25: "Burn Wire - 2",
	26: "Avionics",
	27: "Reserved",
	28: "Reserved",
}

func init() {
	register(&decoder.Schema{
		Name:            "HEALTH_EPS_SES_TEMP",
		ExpectedQueueID: 1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "Epoch_Time_UTC", Type: decoder.U64, Transform: decoder.EpochSec64},
			{Name: "SES_A_Subsystem_ID", Type: decoder.U8, Map: epsSubsystems},
			{Name: "SES_A_Temperature_C", Type: decoder.U8, Transform: decoder.TempU8Sentinel},
			{Name: "SES_B_Subsystem_ID", Type: decoder.U8, Map: epsSubsystems},
			{Name: "SES_B_Temperature_C", Type: decoder.U8, Transform: decoder.TempU8Sentinel},
		},
		SegmentLen: 12,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_EPS_GET_SES_TEMP_HM",
		ExpectedQueueID: 1,
		Header:          headerAt25Packed(),
		Segment: []decoder.Field{
			{Name: "Epoch_Time_Human", RawName: "Epoch_Time_Raw", Type: decoder.U64, Transform: decoder.EpochSec64},
			{Name: "SES_A_Subsystem_ID", Type: decoder.U8, Map: epsSubsystems},
			{Name: "SES_A_Temperature_C", Type: decoder.U8, Transform: decoder.TempU8Sentinel},
			{Name: "SES_B_Subsystem_ID", Type: decoder.U8, Map: epsSubsystems},
			{Name: "SES_B_Temperature_C", Type: decoder.U8, Transform: decoder.TempU8Sentinel},
		},
		SegmentLen: 12,
	})
}
