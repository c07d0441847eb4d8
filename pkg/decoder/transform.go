package decoder

import (
	"fmt"
	"time"
)

// Transform post-processes a raw field value. Transforms may emit several
// columns derived from the one wire value; companion columns are named by
// suffixing the field name.
type Transform int

const (
	TransformNone Transform = iota

	// EpochSec32 reinterprets a 32-bit seconds counter as a UTC time
	// emitted under the field name. Field.RawName keeps the counter.
	EpochSec32

	// EpochSec64 is EpochSec32 for 64-bit counters. The all-ones value is
	// the not-yet-synchronized sentinel and yields a nil time.
	EpochSec64

	// EpochMilli64 converts a 64-bit millisecond counter to a UTC time.
	EpochMilli64

	// TempU8Sentinel reads a temperature byte: 255 means no reading (nil),
	// anything else is reinterpreted as a signed Celsius value.
	TempU8Sentinel

	// FDIRLogEntry unpacks a 32-bit fault log entry into its bit groups.
	FDIRLogEntry

	// ADCSStatePacked unpacks a 6-byte packed wheel momentum block into
	// three scaled axis columns.
	ADCSStatePacked

	// ADCSValidityByte unpacks the estimator/controller validity bits.
	ADCSValidityByte

	// ADCSFlagsByte unpacks the eclipse and safing flags.
	ADCSFlagsByte
)

const epochSec64Sentinel = ^uint64(0)

// Fault manager bit-group enums, shared by the three FDIR queues.
var (
	fdirSubsystems = map[int64]string{
		0: "RM_HW_GPS", 1: "RM_HW_SBAND", 2: "RM_HW_XBAND1", 3: "RM_HW_XBAND2",
		4: "RM_HW_UHF", 5: "RM_HW_ADCS", 6: "RM_HW_THRU", 7: "RM_HW_EPS",
		8: "RM_HW_PS", 9: "RM_HW_ES", 10: "RM_HW_PS_SSD", 11: "RM_HW_ES_SSD",
		12: "RM_HW_ETH_NW_SW", 13: "RM_HW_EEPROM", 14: "RM_HW_OBC", 15: "RM_HW_MAX",
	}

	fdirHWStates = map[int64]string{
		0: "RM_HW_POWERED_OFF", 1: "RM_HW_BOOTING_FAILED", 2: "RM_HW_POWERED_ON",
		3: "RM_HW_ACTIVE", 4: "RM_HW_FAILED", 5: "RM_HW_RECOVERY",
		6: "RM_HW_CORE_BOARD_PWR_SENS", 7: "RM_HW_MAX_STATE",
	}

	fdirEvents = map[int64]string{
		0: "FDIR_LOGGER_PWR_ON_STS", 1: "FDIR_LOGGER_PWR_OFF_STS",
		2: "FDIR_LOGGER_PWR_ON_REQ", 3: "FDIR_LOGGER_PWR_OFF_REQ",
		4: "FDIR_LOGGER_PWR_RSTR_REQ",
		5: "FDIR_LOGGER_PWR_ON_OFF_RSTR_RDNT_SWTH_ACTV_LIST_RSP",
		6: "FDIR_LOGGER_COMM_CHK_REQ", 7: "FDIR_LOGGER_COMM_CHK_RSP",
		8: "FDIR_LOGGER_RDNT_SW_REQ", 9: "FDIR_LOGGER_ACTV_LIST_REQ",
		10: "FDIR_LOGGER_POWERED_ON", 11: "FDIR_LOGGER_RECV_SEQ_START",
		12: "FDIR_LOGGER_RECV_SEQ_END", 13: "FDIR_LOGGER_RECV_INTL_IPC",
		14: "FDIR_LOGGER_SEQ_FOUR_NO_RDNT", 15: "FDIR_LOGGER_SEQ_FOUR_RDNT_SWITCHED",
		16: "FDIR_LOGGER_GPS_OR_PS_OR_ES_SWAPPED", 17: "FDIR_LOGGER_ERR_RECOVERED",
		18: "FDIR_LOGGER_ERR_SUB_SYSTEM_FAILED", 19: "FDIR_LOGGER_TMR_EXP",
		20: "FDIR_LOGGER_TMR_STOPPED", 21: "FDIR_LOGGER_COMM_CHK_RSP_SUCCESS",
		22: "FDIR_LOGGER_COMM_CHK_RSP_FAIL", 23: "FDIR_LOGGER_BOOT_ERR",
		24: "FDIR_LOGGER_TMR_STARTED", 25: "FDIR_LOGGER_RESET",
		26: "FDIR_LOGGER_INTF_ERR_REQ", 27: "FDIR_OBC1_PWR_ON",
		28: "FDIR_OBC2_PWR_ON",
	}
)

// apply emits the transform's columns for one field into row.
func (t Transform) apply(f Field, v any, row *Row) error {
	name := f.Name
	switch t {
	case EpochSec32:
		sec, ok := v.(int64)
		if !ok {
			return fmt.Errorf("transform %q: expected integer epoch, got %T", name, v)
		}
		if f.RawName != "" {
			row.Set(f.RawName, sec)
		}
		row.Set(name, time.Unix(sec, 0).UTC())
		return nil

	case EpochSec64:
		sec, ok := v.(uint64)
		if !ok {
			return fmt.Errorf("transform %q: expected uint64 epoch, got %T", name, v)
		}
		if f.RawName != "" {
			row.Set(f.RawName, sec)
		}
		if sec == epochSec64Sentinel {
			row.Set(name, nil)
			return nil
		}
		row.Set(name, time.Unix(int64(sec), 0).UTC())
		return nil

	case EpochMilli64:
		ms, ok := v.(uint64)
		if !ok {
			return fmt.Errorf("transform %q: expected uint64 epoch, got %T", name, v)
		}
		if f.RawName != "" {
			row.Set(f.RawName, ms)
		}
		row.Set(name, time.UnixMilli(int64(ms)).UTC())
		return nil

	case TempU8Sentinel:
		raw, ok := v.(int64)
		if !ok {
			return fmt.Errorf("transform %q: expected integer, got %T", name, v)
		}
		if raw == 255 {
			row.Set(name, nil)
			return nil
		}
		row.Set(name, int64(int8(raw)))
		return nil

	case FDIRLogEntry:
		raw, ok := v.(int64)
		if !ok {
			return fmt.Errorf("transform %q: expected integer, got %T", name, v)
		}
		bits := func(start, length uint) int64 {
			return (raw >> start) & ((1 << length) - 1)
		}
		subsystem := bits(2, 5)
		hwState := bits(7, 3)
		event := bits(10, 5)

		row.Set(name, raw)
		row.Set(name+"_Time_Sync", bits(0, 1))
		row.Set(name+"_Is_Recovery", bits(1, 1))
		row.Set(name+"_Subsystem_ID", subsystem)
		row.Set(name+"_Subsystem_ID_Name", mapLabel(fdirSubsystems, subsystem))
		row.Set(name+"_Seq_Or_HW_State", hwState)
		row.Set(name+"_Seq_Or_HW_State_Name", mapLabel(fdirHWStates, hwState))
		row.Set(name+"_Event_Or_Retry", event)
		row.Set(name+"_Event_Name", mapLabel(fdirEvents, event))
		row.Set(name+"_Delta_Time", bits(15, 15))
		row.Set(name+"_Scale", bits(30, 2))
		return nil

	case ADCSStatePacked:
		b, ok := v.([]byte)
		if !ok || len(b) != 6 {
			return fmt.Errorf("transform %q: expected 6 bytes, got %T", name, v)
		}
		for i, axis := range []string{"X", "Y", "Z"} {
			raw := int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
			row.Set(name+"_"+axis, float64(raw)*0.001)
		}
		return nil

	case ADCSValidityByte:
		raw, ok := v.(int64)
		if !ok {
			return fmt.Errorf("transform %q: expected integer, got %T", name, v)
		}
		row.Set(name, raw)
		row.Set(name+"_Est_Valid", raw&1)
		row.Set(name+"_Ctrl_Valid", (raw>>1)&1)
		row.Set(name+"_Mag_Valid", (raw>>2)&1)
		row.Set(name+"_Sun_Valid", (raw>>3)&1)
		return nil

	case ADCSFlagsByte:
		raw, ok := v.(int64)
		if !ok {
			return fmt.Errorf("transform %q: expected integer, got %T", name, v)
		}
		row.Set(name, raw)
		row.Set(name+"_Eclipse", raw&1)
		row.Set(name+"_Momentum_Dump", (raw>>1)&1)
		row.Set(name+"_Safe_Mode", (raw>>2)&1)
		return nil

	default:
		return fmt.Errorf("transform %q: unknown transform %d", name, t)
	}
}

func mapLabel(m map[int64]string, v int64) string {
	if label, ok := m[v]; ok {
		return label
	}
	return fmt.Sprintf("UNKNOWN_%d", v)
}
