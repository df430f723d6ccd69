package iolib

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var ErrZeroLenDelim = errors.New("delim has zero length")

// UntilReader reads from an underlying reader up to and including a
// delimiter, keeping whatever arrived after the delimiter buffered for later
// reads. That makes it safe to scan a header block off a connection and then
// hand the same reader to the body framing without losing bytes.
type UntilReader struct {
	r   io.Reader
	buf bytes.Buffer
}

func NewUntilReader(r io.Reader) *UntilReader {
	return &UntilReader{r: r}
}

// Read drains the internal buffer before touching the underlying reader.
func (ur *UntilReader) Read(p []byte) (n int, err error) {
	if ur.buf.Len() > 0 {
		n, err = ur.buf.Read(p)
		if err == io.EOF {
			err = nil
		}
		return n, err
	}
	return ur.r.Read(p)
}

// ReadUntil reads until delim appears and returns everything up to and
// including it. Bytes read past the delimiter stay buffered. If the
// underlying reader errors first, the bytes read so far come back alongside
// the error.
func (ur *UntilReader) ReadUntil(delim []byte) ([]byte, error) {
	if len(delim) == 0 {
		return nil, ErrZeroLenDelim
	}

	var out []byte
	scanned := 0 // prefix of out already known not to contain delim
	tmp := make([]byte, 1024)

	// Start with whatever a previous call left buffered.
	if ur.buf.Len() > 0 {
		out = append(out, ur.buf.Bytes()...)
		ur.buf.Reset()
	}

	for {
		if idx := bytes.Index(out[scanned:], delim); idx >= 0 {
			end := scanned + idx + len(delim)
			// Everything past the delimiter goes back to the buffer.
			ur.buf.Write(out[end:])
			return out[:end:end], nil
		}
		// The tail shorter than delim may still complete it next round.
		if scanned = len(out) - len(delim) + 1; scanned < 0 {
			scanned = 0
		}

		n, err := ur.r.Read(tmp)
		out = append(out, tmp[:n]...)
		if err != nil {
			return out, err
		}
	}
}
