package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgnet/lib/bytebuf"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	b := bytebuf.New()

	AppendBool(b, true)
	AppendUint8(b, 0xFE)
	AppendInt16(b, -2)
	AppendUint16(b, 65535)
	AppendInt32(b, -100000)
	AppendUint32(b, 4000000000)
	AppendInt64(b, math.MinInt64)
	AppendUint64(b, math.MaxUint64)
	AppendFloat32(b, 3.5)
	AppendFloat64(b, -0.25)

	r := NewReader(b.Bytes())

	vb, err := r.Bool()
	require.NoError(t, err)
	assert.True(t, vb)

	v8, err := r.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFE), v8)

	i16, err := r.Int16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)

	u16, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), u16)

	i32, err := r.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-100000), i32)

	u32, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(4000000000), u32)

	i64, err := r.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), i64)

	u64, err := r.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u64)

	f32, err := r.Float32()
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f32)

	f64, err := r.Float64()
	require.NoError(t, err)
	assert.Equal(t, -0.25, f64)

	assert.Zero(t, r.Remaining())
}

func TestBigEndianLayout(t *testing.T) {
	b := bytebuf.New()
	AppendUint32(b, 0x01020304)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, b.Bytes())

	b.Clear()
	AppendInt16(b, 7)
	assert.Equal(t, []byte{0x00, 0x07}, b.Bytes())
}

func TestStringEncoding(t *testing.T) {
	testcases := []struct {
		desc  string
		input string
	}{
		{desc: "ascii", input: "ping"},
		{desc: "empty", input: ""},
		{desc: "multibyte", input: "héllo wörld — ☃"},
		{desc: "4-byte sequences", input: "𝄞 music"},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			b := bytebuf.New()
			AppendString(b, tc.input)

			// Prefix counts UTF-8 bytes, not codepoints.
			assert.Equal(t, 4+len(tc.input), b.Len())

			r := NewReader(b.Bytes())
			got, err := r.String()
			require.NoError(t, err)
			assert.Equal(t, tc.input, got)
			assert.Zero(t, r.Remaining())
		})
	}
}

func TestStringDecodeErrors(t *testing.T) {
	testcases := []struct {
		desc    string
		data    []byte
		wantErr error
	}{
		{desc: "short length prefix", data: []byte{0, 0, 1}, wantErr: ErrTruncated},
		{desc: "body shorter than prefix", data: []byte{0, 0, 0, 5, 'h', 'i'}, wantErr: ErrTruncated},
		{desc: "invalid leading byte", data: []byte{0, 0, 0, 1, 0xFF}, wantErr: ErrInvalidUTF8},
		{desc: "truncated continuation", data: []byte{0, 0, 0, 2, 0xC3, 0x28}, wantErr: ErrInvalidUTF8},
		{desc: "lone continuation byte", data: []byte{0, 0, 0, 1, 0x80}, wantErr: ErrInvalidUTF8},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			r := NewReader(tc.data)
			_, err := r.String()
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{1, 2})

	_, err := r.Uint32()
	assert.ErrorIs(t, err, ErrTruncated)

	// Failed read leaves the cursor in place.
	v, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), v)
}

type chatMessage struct {
	Username string
	Message  string
}

func (m *chatMessage) AppendTo(b *bytebuf.Buffer) {
	AppendString(b, m.Username)
	AppendString(b, m.Message)
}

func (m *chatMessage) ReadFrom(r *Reader) error {
	var err error
	if m.Username, err = r.String(); err != nil {
		return err
	}
	m.Message, err = r.String()
	return err
}

type pingPayload struct{ Text string }

func (p *pingPayload) AppendTo(b *bytebuf.Buffer) { AppendString(b, p.Text) }
func (p *pingPayload) ReadFrom(r *Reader) error {
	var err error
	p.Text, err = r.String()
	return err
}

func TestCompositeRoundTrip(t *testing.T) {
	in := &chatMessage{Username: "A", Message: "hi"}

	data := Marshal(in)

	var out chatMessage
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, *in, out)
}

func TestEnvelopeLayout(t *testing.T) {
	// Type 7 with string payload "ping".
	frame := EncodeMessage(7, &pingPayload{Text: "ping"})

	expected := []byte{0x00, 0x07, 0x00, 0x00, 0x00, 0x04, 'p', 'i', 'n', 'g'}
	assert.Equal(t, expected, frame)
}

func TestEnvelopePeel(t *testing.T) {
	frame := EncodeMessage(-3, &chatMessage{Username: "A", Message: "hi"})

	code, rest, err := PeelType(frame)
	require.NoError(t, err)
	assert.Equal(t, int16(-3), code)

	var msg chatMessage
	require.NoError(t, Unmarshal(rest, &msg))
	assert.Equal(t, "A", msg.Username)
	assert.Equal(t, "hi", msg.Message)
}

func TestEnvelopeTooShort(t *testing.T) {
	_, _, err := PeelType([]byte{0x01})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeMessage(t *testing.T) {
	frame := EncodeMessage(9, &ErrorPayload{Message: "boom"})

	var p ErrorPayload
	code, err := DecodeMessage(frame, &p)
	require.NoError(t, err)
	assert.Equal(t, int16(9), code)
	assert.Equal(t, "boom", p.Message)
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	frame := append(Marshal(&pingPayload{Text: "x"}), 0xAA)

	var p pingPayload
	assert.ErrorIs(t, Unmarshal(frame, &p), ErrTruncated)
}
