package decoder

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Result carries the rows decoded from one payload plus everything a consumer
// needs to judge partial decodes.
type Result struct {
	Schema string

	// Declared is the instance count the packet header announced. Rows may
	// be shorter when the payload is truncated or instances fail to parse.
	Declared int

	Rows []*Row

	// Warnings records non-fatal anomalies: queue mismatches, stride
	// drift, dropped instances, truncation.
	Warnings []string
}

func (res *Result) warnf(format string, args ...any) {
	res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
}

// DecodeHex decodes a hex payload string. Spaces are tolerated, case is not
// significant.
func DecodeHex(s *Schema, payloadHex string) (*Result, error) {
	payloadHex = strings.ToLower(strings.ReplaceAll(payloadHex, " ", ""))
	raw, err := hex.DecodeString(payloadHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return Decode(s, raw)
}

// Decode walks the payload per the schema and returns one row per instance.
//
// The header is mandatory: a payload too short for it fails the decode. Per
// instance, a fixed-stride schema repositions to the next stride boundary
// after every instance, so a single bad instance drops only its own row. A
// truncated tail stops the walk with a warning rather than an error.
func Decode(s *Schema, payload []byte) (*Result, error) {
	res := &Result{Schema: s.Name}
	r := newReader(payload)

	if err := r.skip(s.Header.SkipBytes); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	headerRow := NewRow()
	for _, f := range s.Header.Fields {
		if err := decodeField(r, f, headerRow); err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
	}

	declared := 0
	if n, ok := headerRow.Get("Number_of_Instances"); ok {
		if v, isInt := n.(int64); isInt {
			declared = int(v)
		}
	}
	res.Declared = declared

	if s.ExpectedQueueID >= 0 {
		if q, ok := QueueID(headerRow); ok && q != int64(s.ExpectedQueueID) {
			res.warnf("queue id %d, expected %d", q, s.ExpectedQueueID)
		}
	}

	if declared <= 0 {
		return res, nil
	}

	if s.Var != nil {
		decodeVariable(s, r, headerRow, declared, res)
		return res, nil
	}
	decodeFixed(s, r, headerRow, declared, res)
	return res, nil
}

// decodeFixed handles schemas with a fixed per-instance stride. The stride is
// authoritative: after each instance the reader seeks to the next boundary.
func decodeFixed(s *Schema, r *reader, headerRow *Row, declared int, res *Result) {
	base := r.pos
	for i := 0; i < declared; i++ {
		start := base + i*s.SegmentLen
		if start+s.SegmentLen > len(r.buf) {
			res.warnf("payload truncated after %d of %d instances", i, declared)
			return
		}
		r.seek(start)

		row := headerRow.Clone()
		row.Set("Instance_Index", int64(i))

		if err := decodeSegment(r, s.Segment, row); err != nil {
			res.warnf("instance %d dropped: %v", i, err)
			continue
		}

		if consumed := r.pos - start; consumed != s.SegmentLen {
			res.warnf("instance %d consumed %d bytes, stride is %d", i, consumed, s.SegmentLen)
		}
		res.Rows = append(res.Rows, row)
	}
}

// decodeVariable handles schemas whose instances end in a counted item array.
// Without a fixed stride there is no resync point, so the first failure stops
// the walk.
func decodeVariable(s *Schema, r *reader, headerRow *Row, declared int, res *Result) {
	for i := 0; i < declared; i++ {
		row := headerRow.Clone()
		row.Set("Instance_Index", int64(i))

		if err := decodeSegment(r, s.Segment, row); err != nil {
			res.warnf("instance %d stopped decode: %v", i, err)
			return
		}

		count, ok := row.Get(s.Var.CountFrom)
		n, isInt := count.(int64)
		if !ok || !isInt {
			res.warnf("instance %d: count field %q missing", i, s.Var.CountFrom)
			return
		}

		for j := int64(0); j < n; j++ {
			item := Field{
				Name:  s.Var.NamePrefix + strconv.FormatInt(j+1, 10),
				Type:  s.Var.Type,
				Scale: s.Var.Scale,
				Map:   s.Var.Map,
			}
			if err := decodeField(r, item, row); err != nil {
				res.warnf("instance %d item %d stopped decode: %v", i, j+1, err)
				return
			}
		}
		res.Rows = append(res.Rows, row)
	}
}

func decodeSegment(r *reader, fields []Field, row *Row) error {
	for _, f := range fields {
		if err := decodeField(r, f, row); err != nil {
			return err
		}
	}
	return nil
}

// decodeField reads one field and emits its columns. The pipeline is read,
// map, transform, scale.
func decodeField(r *reader, f Field, row *Row) error {
	v, err := r.read(f.Type, f.Size)
	if err != nil {
		return &FieldError{Field: f.Name, Err: err}
	}
	if f.Name == "" {
		return nil
	}

	if f.Map != nil {
		n, ok := v.(int64)
		if !ok {
			return &FieldError{Field: f.Name, Err: fmt.Errorf("map on non-integer value %T", v)}
		}
		row.Set(f.Name, n)
		row.Set(f.Name+"_Name", mapLabel(f.Map, n))
		if f.Transform == TransformNone && f.Scale == 0 {
			return nil
		}
	}

	if f.Transform != TransformNone {
		if err := f.Transform.apply(f, v, row); err != nil {
			return &FieldError{Field: f.Name, Err: err}
		}
		return nil
	}

	if f.Scale != 0 {
		fv, err := toFloat(v)
		if err != nil {
			return &FieldError{Field: f.Name, Err: err}
		}
		row.Set(f.Name, fv*f.Scale)
		return nil
	}

	if b, isBytes := v.([]byte); isBytes {
		row.Set(f.Name, hex.EncodeToString(b))
		return nil
	}
	row.Set(f.Name, v)
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("cannot scale %T", v)
	}
}
