// Package wire implements the substrate's binary message format: fixed-width
// primitives transmitted big-endian, length-prefixed UTF-8 strings, and
// composite payloads concatenating their fields in declaration order.
//
// The format is not self-describing. Readers must know the field schedule in
// advance; schema evolution is out of scope.
package wire

import (
	"msgnet/lib/bytebuf"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated is returned when a read cursor would pass the end of the
	// data.
	ErrTruncated = errors.New("wire: truncated data")
	// ErrInvalidUTF8 is returned when decoded string bytes are not valid
	// UTF-8.
	ErrInvalidUTF8 = errors.New("wire: invalid utf-8 sequence")
)

// Payload is a composite value with a fixed field schedule. AppendTo writes
// the fields in declaration order; ReadFrom consumes them in the same order.
type Payload interface {
	AppendTo(b *bytebuf.Buffer)
	ReadFrom(r *Reader) error
}

// Marshal serializes p into a fresh byte slice.
func Marshal(p Payload) []byte {
	buf := bytebuf.New()
	defer buf.Release()

	p.AppendTo(buf)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// Unmarshal decodes p from data, requiring that every byte is consumed.
func Unmarshal(data []byte, p Payload) error {
	r := NewReader(data)
	if err := p.ReadFrom(r); err != nil {
		return err
	}
	if r.Remaining() > 0 {
		return errors.Wrapf(ErrTruncated, "%d trailing bytes after payload", r.Remaining())
	}
	return nil
}

// Reader is a decoding cursor over a byte slice. Each read advances the
// cursor; reads past the end fail with ErrTruncated and leave the cursor
// untouched.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset reports the cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// take returns the next n bytes and advances the cursor.
func (r *Reader) take(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, errors.Wrapf(ErrTruncated, "need %d bytes at offset %d of %d", n, r.off, len(r.data))
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}
