package http

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"msgnet/application/http/transfer"
)

// Encoder serializes messages onto a byte stream: start line, each header
// field on its own line, a blank line, then the body octets verbatim. It
// never invents headers; in particular Content-Length is the caller's job.
type Encoder struct {
	bw *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{bw: bufio.NewWriter(w)}
}

// WriteMessage serializes m and flushes. A message flagged chunked has its
// body re-framed through the chunked writer; everything else goes out as-is.
func (e *Encoder) WriteMessage(m *Message) error {
	if err := e.writeLine(m.startLine()); err != nil {
		return errors.Wrap(err, "writing start line")
	}

	for _, field := range m.Header.Fields() {
		if err := e.writeLine(field.Name + ": " + field.Value); err != nil {
			return errors.Wrap(err, "writing header field")
		}
	}

	if err := e.writeLine(""); err != nil {
		return errors.Wrap(err, "terminating header block")
	}

	if m.IsChunked() {
		cw := transfer.NewChunkedWriter(e.bw)
		if _, err := cw.Write(m.Body); err != nil {
			return errors.Wrap(err, "writing chunked body")
		}
		if err := cw.Close(); err != nil {
			return errors.Wrap(err, "closing chunked body")
		}
	} else if len(m.Body) > 0 {
		if _, err := e.bw.Write(m.Body); err != nil {
			return errors.Wrap(err, "writing body")
		}
	}

	return errors.Wrap(e.bw.Flush(), "flushing message")
}

func (e *Encoder) writeLine(line string) error {
	if _, err := e.bw.WriteString(line); err != nil {
		return err
	}
	_, err := e.bw.Write(crlf)
	return err
}
