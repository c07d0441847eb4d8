package schemas

import "github.com/netrasat/groundcore/pkg/decoder"

var obcFSMStates = map[int64]string{
	0: "obc init state",
	1: "obc active power critical state",
	2: "obc active power safe state",
	3: "obc active power normal state",
	4: "obc power save state",
	5: "obc reset state",
	6: "obc error state",
}

var obcResetCauses = map[int64]string{
	0: "Unknown reset",
	1: "Low power reset",
	2: "Window watchdog reset",
	3: "Independent watchdog reset",
	4: "Software reset",
	5: "Power ON power down reset",
	6: "External reset pin reset",
	7: "Brownout reset",
}

var obcTaskStatus = map[int64]string{
	0: "SUCCESS",
	1: "IPC_Fail_Count",
}

func init() {
	register(&decoder.Schema{
		Name:            "HEALTH_OBC",
		ExpectedQueueID: -1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "Timestamp", Type: decoder.U64, Transform: decoder.EpochSec64},
			{Name: "FSM_State_Code", Type: decoder.U8, Map: obcFSMStates},
			{Name: "Number_of_Resets", Type: decoder.U8},
			{Name: "IO_Errors", Type: decoder.U16},
			{Name: "System_Errors", Type: decoder.U8},
			{Name: "CPU_Utilisation", Type: decoder.F32},
			{Name: "IRAM_Rem_Heap", Type: decoder.U32},
			{Name: "ERAM_Rem_Heap", Type: decoder.U32},
			{Name: "Uptime", Type: decoder.U32},
			{Name: "Reset_Cause_Code", Type: decoder.U8, Map: obcResetCauses},
			{Name: "Task_Count", Type: decoder.U8},
		},
		Var: &decoder.VarArray{
			CountFrom:  "Task_Count",
			NamePrefix: "Task_",
			Type:       decoder.U16,
			Map:        obcTaskStatus,
		},
	})
}
