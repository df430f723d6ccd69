package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"

	"msgnet/lib/bytebuf"
)

// All fixed-width values travel big-endian. Host byte order never leaks onto
// the wire; encoding/binary does the swapping.

func AppendBool(b *bytebuf.Buffer, v bool) {
	if v {
		b.PushBack(1)
	} else {
		b.PushBack(0)
	}
}

func AppendUint8(b *bytebuf.Buffer, v uint8) { b.PushBack(v) }

func AppendUint16(b *bytebuf.Buffer, v uint16) {
	b.Append(binary.BigEndian.AppendUint16(nil, v))
}

func AppendInt16(b *bytebuf.Buffer, v int16) { AppendUint16(b, uint16(v)) }

func AppendUint32(b *bytebuf.Buffer, v uint32) {
	b.Append(binary.BigEndian.AppendUint32(nil, v))
}

func AppendInt32(b *bytebuf.Buffer, v int32) { AppendUint32(b, uint32(v)) }

func AppendUint64(b *bytebuf.Buffer, v uint64) {
	b.Append(binary.BigEndian.AppendUint64(nil, v))
}

func AppendInt64(b *bytebuf.Buffer, v int64) { AppendUint64(b, uint64(v)) }

func AppendFloat32(b *bytebuf.Buffer, v float32) {
	AppendUint32(b, math.Float32bits(v))
}

func AppendFloat64(b *bytebuf.Buffer, v float64) {
	AppendUint64(b, math.Float64bits(v))
}

// AppendString writes a 4-octet big-endian byte length followed by the UTF-8
// bytes of s. The prefix counts bytes, not codepoints.
func AppendString(b *bytebuf.Buffer, s string) {
	AppendUint32(b, uint32(len(s)))
	b.Append([]byte(s))
}

// AppendRaw writes data verbatim, without a length prefix.
func AppendRaw(b *bytebuf.Buffer, data []byte) { b.Append(data) }

func (r *Reader) Bool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *Reader) Uint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	return math.Float64frombits(v), err
}

// String reads a length-prefixed UTF-8 string. The byte run is validated;
// invalid leading bytes or truncated continuation sequences fail with
// ErrInvalidUTF8.
func (r *Reader) String() (string, error) {
	length, err := r.Uint32()
	if err != nil {
		return "", errors.Wrap(err, "reading string length")
	}

	b, err := r.take(int(length))
	if err != nil {
		// Undo the length read so the cursor stays at the field start.
		r.off -= 4
		return "", errors.Wrap(err, "reading string bytes")
	}

	if !utf8.Valid(b) {
		return "", errors.Wrapf(ErrInvalidUTF8, "at offset %d", r.off-len(b))
	}

	return string(b), nil
}

// Raw reads the next n bytes verbatim.
func (r *Reader) Raw(n int) ([]byte, error) {
	return r.take(n)
}
