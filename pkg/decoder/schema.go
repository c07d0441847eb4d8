// Package decoder turns decrypted telemetry payloads into named, typed rows
// driven by declarative packet schemas. A schema describes a fixed header
// prefix and a repeated segment; the decoder walks the payload instance by
// instance, producing one Row per segment.
package decoder

// FieldType identifies the wire encoding of a field. Multi-byte integers are
// little-endian; floats are IEEE-754 little-endian.
type FieldType int

const (
	U8 FieldType = iota
	U16
	U32
	U64
	I8
	I16
	I32
	F32
	F64
	// Bytes reads Field.Size raw bytes. With an empty Name it skips them.
	Bytes
)

// Field describes one value inside a header or segment.
//
// Processing order per field: read the typed value, resolve Map (emitting
// "<Name>_Name"), apply Transform, then apply Scale. A field with an empty
// Name consumes its bytes without emitting a column.
type Field struct {
	Name string
	Type FieldType

	// RawName, on epoch transforms, additionally emits the unconverted
	// counter under this name, ahead of the converted column.
	RawName string

	// Size is the byte count for Bytes fields; ignored otherwise.
	Size int

	// Scale multiplies the numeric value when non-zero, yielding a float
	// column. Unscaled integer fields stay integers.
	Scale float64

	// Map translates the raw integer to a label emitted as "<Name>_Name".
	// Values absent from the map produce "UNKNOWN_<value>".
	Map map[int64]string

	// Transform post-processes the raw value (epoch conversion, sentinel
	// handling, bitfield unpacking). May emit multiple columns.
	Transform Transform
}

// Header is the fixed prefix common to every instance of a packet. Header
// columns are copied into each emitted row.
type Header struct {
	// SkipBytes are discarded before the header fields are read.
	SkipBytes int
	Fields    []Field
}

// VarArray describes a trailing run of homogeneous items whose count comes
// from an earlier segment field.
type VarArray struct {
	// CountFrom names the segment field holding the item count.
	CountFrom string

	// NamePrefix builds item column names: "<NamePrefix><index>" (1-based).
	NamePrefix string

	Type  FieldType
	Scale float64
	Map   map[int64]string
}

// Schema is the full decode recipe for one packet type.
type Schema struct {
	// Name is the core packet name, without the raw-topic prefix.
	Name string

	// ExpectedQueueID, when >= 0, is checked against the header Queue_ID
	// field; a mismatch is logged by callers but does not fail the decode.
	ExpectedQueueID int

	Header Header

	// Segment lists the fields of one instance, in wire order.
	Segment []Field

	// SegmentLen is the authoritative stride in bytes between instance
	// starts. After decoding an instance the reader repositions to
	// start+SegmentLen regardless of bytes consumed.
	SegmentLen int

	// Var, when set, follows the fixed Segment fields within each
	// instance. Variable-length packets have no meaningful fixed stride;
	// SegmentLen is ignored when Var is non-nil.
	Var *VarArray
}

// QueueID returns the header Queue_ID of a decoded row, if present.
func QueueID(row *Row) (int64, bool) {
	v, ok := row.Get("Queue_ID")
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}
