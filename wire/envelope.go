package wire

import (
	"github.com/pkg/errors"

	"msgnet/lib/bytebuf"
)

// TypeCodeSize is the size of the envelope header: one big-endian int16.
const TypeCodeSize = 2

// EncodeMessage serializes a typed envelope: the big-endian type code
// followed by the payload's fields. Type codes are application-defined; the
// substrate only uses them as dispatch keys.
func EncodeMessage(typeCode int16, p Payload) []byte {
	buf := bytebuf.New()
	defer buf.Release()

	AppendInt16(buf, typeCode)
	p.AppendTo(buf)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// PeelType splits a frame into its type code and the payload bytes that
// follow. Frames shorter than the header fail with ErrTruncated.
func PeelType(frame []byte) (int16, []byte, error) {
	r := NewReader(frame)
	code, err := r.Int16()
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading type code")
	}
	return code, frame[TypeCodeSize:], nil
}

// DecodeMessage peels the type code and decodes the rest of the frame into p.
func DecodeMessage(frame []byte, p Payload) (int16, error) {
	code, rest, err := PeelType(frame)
	if err != nil {
		return 0, err
	}
	return code, Unmarshal(rest, p)
}

// ErrorPayload is the substrate's stock error message.
type ErrorPayload struct {
	Message string
}

var _ Payload = (*ErrorPayload)(nil)

func (e *ErrorPayload) AppendTo(b *bytebuf.Buffer) {
	AppendString(b, e.Message)
}

func (e *ErrorPayload) ReadFrom(r *Reader) error {
	var err error
	e.Message, err = r.String()
	return err
}
