package decoder

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sunVector mirrors the common three-axis health shape: 26 skipped header
// bytes, submodule/queue/count, then 11-byte instances.
func sunVector() *Schema {
	return &Schema{
		Name:            "HEALTH_ADCS_CSS_VECTOR",
		ExpectedQueueID: 7,
		Header: Header{
			SkipBytes: 26,
			Fields: []Field{
				{Name: "Submodule_ID", Type: U8},
				{Name: "Queue_ID", Type: U8},
				{Name: "Number_of_Instances", Type: U16},
			},
		},
		Segment: []Field{
			{Name: "Operation_Status", Type: U8},
			{Name: "Epoch_Time_Human", Type: U32, Transform: EpochSec32},
			{Name: "Sun_Vector_X", Type: I16, Scale: 0.001},
			{Name: "Sun_Vector_Y", Type: I16, Scale: 0.001},
			{Name: "Sun_Vector_Z", Type: I16, Scale: 0.001},
		},
		SegmentLen: 11,
	}
}

type payloadBuilder struct{ buf bytes.Buffer }

func (b *payloadBuilder) pad(n int) *payloadBuilder {
	b.buf.Write(bytes.Repeat([]byte{0xCC}, n))
	return b
}

func (b *payloadBuilder) u8(v uint8) *payloadBuilder {
	b.buf.WriteByte(v)
	return b
}

func (b *payloadBuilder) u16(v uint16) *payloadBuilder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *payloadBuilder) u32(v uint32) *payloadBuilder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *payloadBuilder) u64(v uint64) *payloadBuilder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *payloadBuilder) done() []byte { return b.buf.Bytes() }

func sunVectorPayload(count uint16, instances int) []byte {
	b := new(payloadBuilder).pad(26).u8(1).u8(7).u16(count)
	for i := 0; i < instances; i++ {
		b.u8(0).u32(1700000000).u16(0).u16(0).u16(0x3FF0)
	}
	return b.done()
}

func TestDecodeSunVector(t *testing.T) {
	res, err := Decode(sunVector(), sunVectorPayload(1, 1))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 1, res.Declared)

	row := res.Rows[0]
	sub, _ := row.Get("Submodule_ID")
	assert.Equal(t, int64(1), sub)
	q, _ := row.Get("Queue_ID")
	assert.Equal(t, int64(7), q)

	op, _ := row.Get("Operation_Status")
	assert.Equal(t, int64(0), op)

	epoch, _ := row.Get("Epoch_Time_Human")
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), epoch)

	z, _ := row.Get("Sun_Vector_Z")
	assert.InDelta(t, 16.368, z, 1e-9)

	assert.Equal(t, []string{
		"Submodule_ID", "Queue_ID", "Number_of_Instances", "Instance_Index",
		"Operation_Status", "Epoch_Time_Human",
		"Sun_Vector_X", "Sun_Vector_Y", "Sun_Vector_Z",
	}, row.Columns())
}

func TestDecodeHexToleratesSpacesAndCase(t *testing.T) {
	raw := sunVectorPayload(1, 1)
	h := hex.EncodeToString(raw)
	spaced := "  " + h[:10] + " " + h[10:]

	res, err := DecodeHex(sunVector(), spaced)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

func TestDecodeHexRejectsBadInput(t *testing.T) {
	_, err := DecodeHex(sunVector(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHex)
}

func TestZeroInstances(t *testing.T) {
	res, err := Decode(sunVector(), sunVectorPayload(0, 0))
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, 0, res.Declared)
}

func TestHeaderTruncatedFails(t *testing.T) {
	_, err := Decode(sunVector(), make([]byte, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestTruncatedTailKeepsCompleteInstances(t *testing.T) {
	// declares 3 instances but carries only 1
	res, err := Decode(sunVector(), sunVectorPayload(3, 1))
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Equal(t, 3, res.Declared)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "truncated after 1 of 3")
}

func TestQueueMismatchWarns(t *testing.T) {
	payload := new(payloadBuilder).pad(26).u8(1).u8(3).u16(1).
		u8(0).u32(1700000000).u16(0).u16(0).u16(0).done()

	res, err := Decode(sunVector(), payload)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1, "queue mismatch must not drop rows")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "queue id 3, expected 7")
}

func TestStrideIsAuthoritative(t *testing.T) {
	// schema consumes 5 of an 8-byte stride; the second instance must
	// still decode from the stride boundary
	s := &Schema{
		Name:            "SHORT",
		ExpectedQueueID: -1,
		Header: Header{
			Fields: []Field{{Name: "Number_of_Instances", Type: U16}},
		},
		Segment: []Field{
			{Name: "A", Type: U8},
			{Name: "B", Type: U32},
		},
		SegmentLen: 8,
	}

	payload := new(payloadBuilder).u16(2).
		u8(0x11).u32(1).u8(0xFF).u16(0xFFFF).
		u8(0x22).u32(2).u8(0xFF).u16(0xFFFF).
		done()

	res, err := Decode(s, payload)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	a0, _ := res.Rows[0].Get("A")
	a1, _ := res.Rows[1].Get("A")
	assert.Equal(t, int64(0x11), a0)
	assert.Equal(t, int64(0x22), a1)

	// one stride warning per instance
	assert.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "consumed 5 bytes, stride is 8")
}

func TestMapMissYieldsUnknown(t *testing.T) {
	s := &Schema{
		Name:            "MAPPED",
		ExpectedQueueID: -1,
		Header:          Header{Fields: []Field{{Name: "Number_of_Instances", Type: U16}}},
		Segment: []Field{
			{Name: "Mode", Type: U8, Map: map[int64]string{1: "SAFE"}},
		},
		SegmentLen: 1,
	}

	res, err := Decode(s, new(payloadBuilder).u16(2).u8(1).u8(9).done())
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	n0, _ := res.Rows[0].Get("Mode_Name")
	assert.Equal(t, "SAFE", n0)
	n1, _ := res.Rows[1].Get("Mode_Name")
	assert.Equal(t, "UNKNOWN_9", n1)
}

func TestEpoch64Sentinel(t *testing.T) {
	s := &Schema{
		Name:            "EPOCH64",
		ExpectedQueueID: -1,
		Header:          Header{Fields: []Field{{Name: "Number_of_Instances", Type: U16}}},
		Segment: []Field{
			{Name: "Epoch_Time_UTC", Type: U64, Transform: EpochSec64},
		},
		SegmentLen: 8,
	}

	res, err := Decode(s, new(payloadBuilder).u16(2).
		u64(0xFFFFFFFFFFFFFFFF).u64(1700000000).done())
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	utc0, ok := res.Rows[0].Get("Epoch_Time_UTC")
	require.True(t, ok, "sentinel still emits the time column")
	assert.Nil(t, utc0)

	utc1, _ := res.Rows[1].Get("Epoch_Time_UTC")
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), utc1)
}

func TestEpochRawCompanion(t *testing.T) {
	s := &Schema{
		Name:            "EPOCHMS",
		ExpectedQueueID: -1,
		Header:          Header{Fields: []Field{{Name: "Number_of_Instances", Type: U16}}},
		Segment: []Field{
			{Name: "epoch_time_utc", RawName: "epoch_time_in_ms", Type: U64, Transform: EpochMilli64},
		},
		SegmentLen: 8,
	}

	res, err := Decode(s, new(payloadBuilder).u16(1).u64(1700000000000).done())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	raw, _ := row.Get("epoch_time_in_ms")
	assert.Equal(t, uint64(1700000000000), raw)
	utc, _ := row.Get("epoch_time_utc")
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), utc)

	// raw counter comes first
	assert.Equal(t, []string{
		"Number_of_Instances", "Instance_Index",
		"epoch_time_in_ms", "epoch_time_utc",
	}, row.Columns())
}

func TestTempSentinel(t *testing.T) {
	s := &Schema{
		Name:            "TEMP",
		ExpectedQueueID: -1,
		Header:          Header{Fields: []Field{{Name: "Number_of_Instances", Type: U16}}},
		Segment: []Field{
			{Name: "Temp", Type: U8, Transform: TempU8Sentinel},
		},
		SegmentLen: 1,
	}

	res, err := Decode(s, new(payloadBuilder).u16(3).u8(255).u8(25).u8(0xF6).done())
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)

	t0, _ := res.Rows[0].Get("Temp")
	assert.Nil(t, t0)
	t1, _ := res.Rows[1].Get("Temp")
	assert.Equal(t, int64(25), t1)
	t2, _ := res.Rows[2].Get("Temp")
	assert.Equal(t, int64(-10), t2)
}

func TestVarArrayDecode(t *testing.T) {
	s := &Schema{
		Name:            "TASKS",
		ExpectedQueueID: -1,
		Header:          Header{Fields: []Field{{Name: "Number_of_Instances", Type: U16}}},
		Segment: []Field{
			{Name: "Task_Count", Type: U8},
		},
		Var: &VarArray{
			CountFrom:  "Task_Count",
			NamePrefix: "Task_",
			Type:       U16,
			Map:        map[int64]string{0: "SUCCESS", 1: "IPC_Fail_Count"},
		},
	}

	res, err := Decode(s, new(payloadBuilder).u16(1).
		u8(3).u16(0).u16(1).u16(7).done())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	v1, _ := row.Get("Task_1_Name")
	assert.Equal(t, "SUCCESS", v1)
	v2, _ := row.Get("Task_2_Name")
	assert.Equal(t, "IPC_Fail_Count", v2)
	v3, _ := row.Get("Task_3_Name")
	assert.Equal(t, "UNKNOWN_7", v3)
}

func TestVarArrayTruncationStopsWalk(t *testing.T) {
	s := &Schema{
		Name:            "TASKS",
		ExpectedQueueID: -1,
		Header:          Header{Fields: []Field{{Name: "Number_of_Instances", Type: U16}}},
		Segment:         []Field{{Name: "Task_Count", Type: U8}},
		Var: &VarArray{
			CountFrom:  "Task_Count",
			NamePrefix: "Task_",
			Type:       U16,
		},
	}

	// count says 4 items, payload carries 1
	res, err := Decode(s, new(payloadBuilder).u16(1).u8(4).u16(0).done())
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	require.NotEmpty(t, res.Warnings)
}

func TestFDIRLogEntryUnpack(t *testing.T) {
	row := NewRow()
	// time_sync=1, is_rcvy=0, sub_syst_id=5 (ADCS), hw_state=3 (ACTIVE),
	// event=17 (ERR_RECOVERED), delta=100, scale=2
	raw := int64(1) | 5<<2 | 3<<7 | 17<<10 | 100<<15 | 2<<30
	require.NoError(t, FDIRLogEntry.apply(Field{Name: "Entry_1"}, raw, row))

	get := func(k string) any {
		v, ok := row.Get(k)
		require.True(t, ok, k)
		return v
	}
	assert.Equal(t, int64(1), get("Entry_1_Time_Sync"))
	assert.Equal(t, int64(0), get("Entry_1_Is_Recovery"))
	assert.Equal(t, "RM_HW_ADCS", get("Entry_1_Subsystem_ID_Name"))
	assert.Equal(t, "RM_HW_ACTIVE", get("Entry_1_Seq_Or_HW_State_Name"))
	assert.Equal(t, "FDIR_LOGGER_ERR_RECOVERED", get("Entry_1_Event_Name"))
	assert.Equal(t, int64(100), get("Entry_1_Delta_Time"))
	assert.Equal(t, int64(2), get("Entry_1_Scale"))
}

func TestRowJSONPreservesOrder(t *testing.T) {
	row := NewRow()
	row.Set("Zulu", int64(1))
	row.Set("Alpha", 2.5)
	row.Set("Mike", "three")
	row.Set("Missing", nil)

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"Zulu":1,"Alpha":2.5,"Mike":"three","Missing":null}`, string(data))

	var back Row
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"Zulu", "Alpha", "Mike", "Missing"}, back.Columns())
}

func TestRowCloneIsIndependent(t *testing.T) {
	row := NewRow()
	row.Set("A", int64(1))

	clone := row.Clone()
	clone.Set("B", int64(2))

	_, ok := row.Get("B")
	assert.False(t, ok)
	assert.Equal(t, []string{"A"}, row.Columns())
	assert.Equal(t, []string{"A", "B"}, clone.Columns())
}
