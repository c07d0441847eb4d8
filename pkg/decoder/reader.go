package decoder

import (
	"encoding/binary"
	"fmt"
	"math"
)

// reader walks a payload with absolute repositioning, which the decoder uses
// to resync to the next segment stride after each instance.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) seek(pos int) {
	if pos > len(r.buf) {
		pos = len(r.buf)
	}
	r.pos = pos
}

func (r *reader) skip(n int) error {
	if r.remaining() < n {
		return fmt.Errorf("%w: skip %d with %d remaining", ErrTruncated, n, r.remaining())
	}
	r.pos += n
	return nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// read consumes one value of the given type. Integers come back as int64
// (u64 as uint64 to keep the epoch sentinel intact), floats as float64.
func (r *reader) read(t FieldType, size int) (any, error) {
	switch t {
	case U8:
		b, err := r.bytes(1)
		if err != nil {
			return nil, err
		}
		return int64(b[0]), nil
	case I8:
		b, err := r.bytes(1)
		if err != nil {
			return nil, err
		}
		return int64(int8(b[0])), nil
	case U16:
		b, err := r.bytes(2)
		if err != nil {
			return nil, err
		}
		return int64(binary.LittleEndian.Uint16(b)), nil
	case I16:
		b, err := r.bytes(2)
		if err != nil {
			return nil, err
		}
		return int64(int16(binary.LittleEndian.Uint16(b))), nil
	case U32:
		b, err := r.bytes(4)
		if err != nil {
			return nil, err
		}
		return int64(binary.LittleEndian.Uint32(b)), nil
	case I32:
		b, err := r.bytes(4)
		if err != nil {
			return nil, err
		}
		return int64(int32(binary.LittleEndian.Uint32(b))), nil
	case U64:
		b, err := r.bytes(8)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.Uint64(b), nil
	case F32:
		b, err := r.bytes(4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case F64:
		b, err := r.bytes(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case Bytes:
		b, err := r.bytes(size)
		if err != nil {
			return nil, err
		}
		out := make([]byte, size)
		copy(out, b)
		return out, nil
	default:
		return nil, fmt.Errorf("unknown field type %d", t)
	}
}
