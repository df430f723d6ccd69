package transfer

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedReader(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "two chunks",
			input:    "5\r\nHello\r\n6\r\n World\r\n0\r\n\r\n",
			expected: "Hello World",
		},
		{
			desc:     "single zero chunk is empty body",
			input:    "0\r\n\r\n",
			expected: "",
		},
		{
			desc:     "hex sizes",
			input:    "a\r\n0123456789\r\n0\r\n\r\n",
			expected: "0123456789",
		},
		{
			desc:     "chunk extension ignored",
			input:    "5;ext=1\r\nHello\r\n0\r\n\r\n",
			expected: "Hello",
		},
		{
			desc:     "trailers dropped",
			input:    "2\r\nhi\r\n0\r\nExpires: never\r\n\r\n",
			expected: "hi",
		},
		{
			desc:    "bad size line",
			input:   "xyz\r\nHello\r\n",
			wantErr: ErrMalformedChunk,
		},
		{
			desc:    "missing chunk delimiter",
			input:   "5\r\nHelloXX0\r\n\r\n",
			wantErr: ErrMalformedChunk,
		},
		{
			desc:    "eof mid chunk",
			input:   "c\r\nshort",
			wantErr: io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := io.ReadAll(NewChunkedReader(strings.NewReader(tc.input)))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(got))
		})
	}
}

func TestChunkedReaderLeavesTrailingBytes(t *testing.T) {
	// Bytes after the terminator belong to the next message and must stay
	// unread.
	src := strings.NewReader("2\r\nhi\r\n0\r\n\r\nNEXT")

	got, err := io.ReadAll(NewChunkedReader(src))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))

	rest, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "NEXT", string(rest))
}

func TestChunkedWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChunkedWriter(&buf)

	_, err := cw.Write([]byte("Hello"))
	require.NoError(t, err)
	_, err = cw.Write([]byte(" World"))
	require.NoError(t, err)
	_, err = cw.Write(nil) // skipped, not an early terminator
	require.NoError(t, err)
	require.NoError(t, cw.Close())

	assert.Equal(t, "5\r\nHello\r\n6\r\n World\r\n0\r\n\r\n", buf.String())
}

func TestChunkedRoundTrip(t *testing.T) {
	payload := strings.Repeat("chunked transfer coding ", 100)

	var buf bytes.Buffer
	cw := NewChunkedWriter(&buf)
	for chunk := []byte(payload); len(chunk) > 0; {
		n := 97
		if n > len(chunk) {
			n = len(chunk)
		}
		_, err := cw.Write(chunk[:n])
		require.NoError(t, err)
		chunk = chunk[n:]
	}
	require.NoError(t, cw.Close())

	got, err := io.ReadAll(NewChunkedReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}
