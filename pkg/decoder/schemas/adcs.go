package schemas

import "github.com/netrasat/groundcore/pkg/decoder"

// Attitude determination and control packets. Most are the 11-byte vector
// shape: operation status, 32-bit epoch, three little-endian int16 axes.

var adcsEstimationModes = map[int64]string{
	1: "ADCS_EST_MODE_RAW",
	2: "ADCS_EST_MODE_FG_WO_IMU",
	3: "ADCS_EST_MODE_FG",
	4: "ADCS_EST_MODE_KALMAN",
	5: "ADCS_EST_MODE_KALMAN_B",
}

var adcsControlModes = map[int64]string{
	4: "ADCS_CTRL_MODE_THREE_AXIS",
	5: "SUN_POINTING",
	6: "NADIR_POINTING",
	7: "TARGET_TRACKING",
	8: "FINE_SUN_POINTING",
}

// vec3 builds the common 11-byte three-axis segment.
func vec3(name string, queue int, hdr decoder.Header, scale float64, x, y, z string) *decoder.Schema {
	return &decoder.Schema{
		Name:            name,
		ExpectedQueueID: queue,
		Header:          hdr,
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: x, Type: decoder.I16, Scale: scale},
			{Name: y, Type: decoder.I16, Scale: scale},
			{Name: z, Type: decoder.I16, Scale: scale},
		},
		SegmentLen: 11,
	}
}

func init() {
	register(vec3("HEALTH_ADCS_CSS_VECTOR", 7, headerAt26(), 0.001,
		"Sun_Vector_X", "Sun_Vector_Y", "Sun_Vector_Z"))
	register(vec3("HEALTH_ADCS_EST_RATES", -1, headerAt26(), 0.01,
		"Est_Rate_X", "Est_Rate_Y", "Est_Rate_Z"))
	register(vec3("HEALTH_ADCS_IGRF_MOD_VEC", -1, headerAt26(), 0.01,
		"IGRF_Mod_Vector_X", "IGRF_Mod_Vector_Y", "IGRF_Mod_Vector_Z"))
	register(vec3("HEALTH_ADCS_MAG_FIELD_VEC", -1, headerAt26(), 0.01,
		"Mag_Field_X", "Mag_Field_Y", "Mag_Field_Z"))
	register(vec3("HEALTH_ADCS_MGTRQR_CMD", -1, headerAt26(), 0,
		"MGTRQR_Cmd_X", "MGTRQR_Cmd_Y", "MGTRQR_Cmd_Z"))
	register(vec3("HEALTH_ADCS_NADAR_VEC", -1, headerAt26(), 0.001,
		"NADAR_Vector_X", "NADAR_Vector_Y", "NADAR_Vector_Z"))
	register(vec3("HEALTH_ADCS_POS_ERR", -1, headerAt26(), 0.01,
		"Position_X_Error", "Position_Y_Error", "Position_Z_Error"))
	register(vec3("HEALTH_ADCS_QUAT_ERR_VEC", -1, headerAt26(), 0.01,
		"Quaternion_Error_Q1", "Quaternion_Error_Q2", "Quaternion_Error_Q3"))
	register(vec3("HEALTH_ADCS_RATE_SENSOR_MEASURE", -1, headerAt26(), 0.01,
		"Measured_Rate_X", "Measured_Rate_Y", "Measured_Rate_Z"))
	register(vec3("HEALTH_ADCS_RATE_SENSOR_TEMP", -1, headerAt26(), 0,
		"Rate_Sensor_Temperature_X", "Rate_Sensor_Temperature_Y", "Rate_Sensor_Temperature_Z"))
	register(vec3("HEALTH_ADCS_RAW_MAG_MEASURE", -1, headerAt26(), 0,
		"Raw_Mag_Measure_X", "Raw_Mag_Measure_Y", "Raw_Mag_Measure_Z"))
	register(vec3("HEALTH_ADCS_RAW_RATE_SENSOR_MEASURE", -1, headerAt25(), 0,
		"Raw_Rate_Sensor_X", "Raw_Rate_Sensor_Y", "Raw_Rate_Sensor_Z"))
	register(vec3("HEALTH_ADCS_FSS_VECTOR", -1, headerAt25(), 0.001,
		"SUN_X", "SUN_Y", "SUN_Z"))

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_MISC_CURRENT",
		ExpectedQueueID: -1,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Cube_Star_Current", Type: decoder.I16, Scale: 0.1},
			{Name: "Magnetorquer_Current", Type: decoder.I16, Scale: 0.1},
			{Name: "MCU_Temperature", Type: decoder.I16, Scale: 0.1},
		},
		SegmentLen: 11,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_POS_LLH",
		ExpectedQueueID: -1,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Geocentric_Longitude", Type: decoder.I16, Scale: 0.01},
			{Name: "Geocentric_Latitude", Type: decoder.I16, Scale: 0.01},
			{Name: "Geocentric_Altitude", Type: decoder.U16, Scale: 0.1},
		},
		SegmentLen: 11,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_RAW_FSS_SNS",
		ExpectedQueueID: -1,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "FSS_RAW_X", Type: decoder.I16},
			{Name: "FSS_RAW_Y", Type: decoder.I16},
			{Name: "FSS_Capture_Status", Type: decoder.U8},
			{Name: "FSS_Capture_Result", Type: decoder.U8},
		},
		SegmentLen: 11,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_TEMP",
		ExpectedQueueID: -1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "MCU_Temperature", Type: decoder.I16},
			{Type: decoder.I32}, // reserved
		},
		SegmentLen: 11,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_CMD_ATTITUDE_ANGLE",
		ExpectedQueueID: -1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Commanded_Roll", Type: decoder.F64, Scale: 0.01},
			{Name: "Commanded_Pitch", Type: decoder.F64, Scale: 0.01},
			{Name: "Commanded_Yaw", Type: decoder.F64, Scale: 0.01},
			{Name: "Quaternion_4_Check", Type: decoder.F64},
		},
		SegmentLen: 37,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_EST_ATTITUDE_ANGLE",
		ExpectedQueueID: -1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Est_Quaternion_1", Type: decoder.F64},
			{Name: "Est_Quaternion_2", Type: decoder.F64},
			{Name: "Est_Quaternion_3", Type: decoder.F64},
			{Name: "Est_Quaternion_4", Type: decoder.F64},
		},
		SegmentLen: 37,
	})

	register(posVel("HEALTH_ADCS_SAT_POS_ECI_FRAME", headerAt25(),
		"Sat_Pos_ECI_X", "Sat_Pos_ECI_Y", "Sat_Pos_ECI_Z"))
	register(posVel("HEALTH_ADCS_SAT_POS_ECEF_FRAME", headerAt26(),
		"Sat_Pos_ECEF_X", "Sat_Pos_ECEF_Y", "Sat_Pos_ECEF_Z"))
	register(posVel("HEALTH_ADCS_SAT_VEL_ECI_FRAME", headerAt26(),
		"Sat_Vel_ECI_X", "Sat_Vel_ECI_Y", "Sat_Vel_ECI_Z"))

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_SENSOR_CURRENT",
		ExpectedQueueID: -1,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Nadir_Sensor_3V3_Current", Type: decoder.U16, Scale: 0.1},
			{Name: "FSS_3V3_Current", Type: decoder.U16, Scale: 0.1},
			{Name: "Nadir_SRAM_Current", Type: decoder.U16, Scale: 0.1},
			{Name: "FSS_SRAM_Current", Type: decoder.U16, Scale: 0.1},
		},
		SegmentLen: 13,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_CURRENT_STATE",
		ExpectedQueueID: -1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "operation_status", Type: decoder.U8},
			{Name: "epoch_time_human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Estimation_Mode", Type: decoder.U8, Map: adcsEstimationModes},
			{Name: "Control_Mode", Type: decoder.U8, Map: adcsControlModes},
			{Name: "Wheel_Momentum", Type: decoder.Bytes, Size: 6, Transform: decoder.ADCSStatePacked},
			{Name: "State_Validity", Type: decoder.U8, Transform: decoder.ADCSValidityByte},
			{Name: "State_Flags", Type: decoder.U8, Transform: decoder.ADCSFlagsByte},
		},
		SegmentLen: 15,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_MEAS_RW_SPEED",
		ExpectedQueueID: -1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Num_Reaction_Wheels", Type: decoder.U8},
			{Name: "Reaction_Wheel_Speed_1", Type: decoder.I16},
			{Name: "Reaction_Wheel_Speed_2", Type: decoder.I16},
			{Name: "Reaction_Wheel_Speed_3", Type: decoder.I16},
			{Name: "Reaction_Wheel_Speed_4", Type: decoder.I16},
		},
		SegmentLen: 14,
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_RW_CURRENT",
		ExpectedQueueID: -1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Number_of_Reaction_Wheels", Type: decoder.U8},
		},
		Var: &decoder.VarArray{
			CountFrom:  "Number_of_Reaction_Wheels",
			NamePrefix: "Reaction_Wheel_Current_",
			Type:       decoder.U16,
			Scale:      0.1,
		},
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_RW_SPEED_CMD",
		ExpectedQueueID: -1,
		Header:          headerAt26(),
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Number_of_Reaction_Wheels", Type: decoder.U8},
		},
		Var: &decoder.VarArray{
			CountFrom:  "Number_of_Reaction_Wheels",
			NamePrefix: "Reaction_Wheel_Speed_Cmd_",
			Type:       decoder.I16,
		},
	})

	register(&decoder.Schema{
		Name:            "HEALTH_ADCS_RAW_STAR_TRKR_MEAS",
		ExpectedQueueID: -1,
		Header:          headerAt25(),
		Segment: []decoder.Field{
			{Name: "operation_status", Type: decoder.U8},
			{Name: "epoch_time_human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: "Num_Stars_Detected", Type: decoder.U8},
			{Type: decoder.U16}, // reserved
			{Name: "Num_Stars_Identified", Type: decoder.U8},
			{Name: "Capture_Mode", Type: decoder.U8},
		},
		SegmentLen: 10,
	})
}

// posVel builds the 29-byte position/velocity segment: status, epoch, three
// float64 components.
func posVel(name string, hdr decoder.Header, x, y, z string) *decoder.Schema {
	return &decoder.Schema{
		Name:            name,
		ExpectedQueueID: -1,
		Header:          hdr,
		Segment: []decoder.Field{
			{Name: "Operation_Status", Type: decoder.U8},
			{Name: "Epoch_Time_Human", Type: decoder.U32, Transform: decoder.EpochSec32},
			{Name: x, Type: decoder.F64},
			{Name: y, Type: decoder.F64},
			{Name: z, Type: decoder.F64},
		},
		SegmentLen: 29,
	}
}
