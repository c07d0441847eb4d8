package schemas

import "github.com/netrasat/groundcore/pkg/decoder"

var thrusterFSMStates = map[int64]string{
	0: "PRPLSN_PWR_OFF_STATE",
	1: "STANDBY",
	2: "THRML_CTDNG",
	3: "FIRING",
	4: "SAFE",
	5: "COMSISNG",
}

var thrusterEvents = map[int64]string{
	1:    "PRPLSN_TANK_TH_CTDNG_TMR_EXPRY",
	2:    "PRPLSN_HM_PRDCTY_TMR_EXPRY",
	9000: "PWR_ON_NTF",
	9001: "PWR_OFF_NTF",
	9007: "ADCS_ANOMALY_OCCURED",
	9008: "OBC_FIRINIG_START_NTFY",
	9010: "FIRINIG_STOP_NTFY",
}

var thrusterErrors = map[int64]string{
	0:  "NO_ERR",
	5:  "INVALID_PARAM_ERR",
	6:  "INVALID_MODE_ERR",
	9:  "COMM_ERR",
	15: "COMISNG_ERR",
	16: "NOT_POWERED_ERR",
}

func init() {
	register(&decoder.Schema{
		Name:            "HEALTH_THRUSTER_DATA_QUEUE_0",
		ExpectedQueueID: 0,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "TIME", Type: decoder.U32},
			{Name: "Tank_On_Off_Status", Type: decoder.U8},
			{Name: "Tank_Temperature", Type: decoder.F32},
		},
		SegmentLen: 9,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_THRUSTER_DATA_QUEUE_1",
		ExpectedQueueID: 1,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "Current_FSM_State", Type: decoder.U8, Map: thrusterFSMStates},
			{Name: "Current_Event", Type: decoder.U16, Map: thrusterEvents},
			{Name: "FSM_Error_Status", Type: decoder.U8, Map: thrusterErrors},
			{Name: "state_utc_time", Type: decoder.U32},
		},
		SegmentLen: 8,
	})
}
