package http

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"msgnet/application/http/transfer"
	iolib "msgnet/lib/io"
)

// DecodeOptions sets the size limits the decoder enforces.
type DecodeOptions struct {
	// MaxHeaderBytes caps the header block, start line included. 0 means
	// DefaultMaxHeaderBytes. The block is read in full, up to its blank-line
	// terminator, before the cap is checked.
	MaxHeaderBytes int
	// MaxBodyBytes caps any framed body. 0 means DefaultMaxBodyBytes.
	MaxBodyBytes int
}

const (
	DefaultMaxHeaderBytes = 64 << 10
	DefaultMaxBodyBytes   = 64 << 20
)

var (
	ErrHeaderTooLarge = errors.New("http: header block exceeds limit")
	ErrBodyTooLarge   = errors.New("http: body exceeds limit")
)

// Decoder reads HTTP/1.1 messages off a byte stream. Bytes that arrive past
// a message's end stay buffered for the next call, so one decoder serves a
// kept-alive connection for its whole life.
type Decoder struct {
	r    *iolib.UntilReader
	opts DecodeOptions
}

func NewDecoder(r io.Reader, opts DecodeOptions) *Decoder {
	if opts.MaxHeaderBytes == 0 {
		opts.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Decoder{r: iolib.NewUntilReader(r), opts: opts}
}

// ReadMessage decodes the next message. A clean EOF before any byte of a new
// message returns io.EOF; EOF inside a message returns
// io.ErrUnexpectedEOF.
func (d *Decoder) ReadMessage() (*Message, error) {
	block, err := d.r.ReadUntil(headerTerminator)
	if err != nil {
		if errors.Is(err, io.EOF) && len(block) == 0 {
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrap(io.ErrUnexpectedEOF, "eof inside header block")
		}
		return nil, errors.Wrap(err, "reading header block")
	}
	if len(block) > d.opts.MaxHeaderBytes {
		return nil, ErrHeaderTooLarge
	}

	m, err := parseHeaderBlock(block)
	if err != nil {
		return nil, err
	}

	if err := d.readBody(m); err != nil {
		return nil, err
	}

	return m, nil
}

// parseHeaderBlock parses the start line and header fields. block ends with
// the blank-line terminator; the loop stops exactly there.
func parseHeaderBlock(block []byte) (*Message, error) {
	text := string(block[:len(block)-len(headerTerminator)])
	lines := strings.Split(text, "\r\n")

	m := &Message{Header: NewHeader()}
	if err := parseStartLine(m, lines[0]); err != nil {
		return nil, err
	}

	for _, line := range lines[1:] {
		name, value, found := strings.Cut(line, ":")
		if !found || name == "" {
			return nil, errors.Wrapf(ErrProtocolViolation, "header line %q", line)
		}
		// A single space after the colon is part of the separator, not the
		// value.
		value = strings.TrimPrefix(value, " ")
		m.Header.Set(name, value)
	}

	return m, nil
}

// parseStartLine fills the message kind and start-line fields. A recognized
// method token means request; otherwise the token must be an HTTP version
// and the message is a response.
func parseStartLine(m *Message, line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		return errors.Wrapf(ErrProtocolViolation, "start line %q", line)
	}

	if IsMethod(parts[0]) {
		m.Kind = KindRequest
		m.Method = parts[0]
		m.Target = parts[1]

		version, err := ParseVersion(parts[2])
		if err != nil {
			return err
		}
		m.Version = version
		return nil
	}

	version, err := ParseVersion(parts[0])
	if err != nil {
		return err
	}
	m.Kind = KindResponse
	m.Version = version

	code, cerr := parseStatusCode(parts[1])
	if cerr != nil {
		return cerr
	}
	m.StatusCode = code
	m.ReasonPhrase = parts[2]
	return nil
}

func parseStatusCode(s string) (int, error) {
	if len(s) != 3 {
		return 0, errors.Wrapf(ErrProtocolViolation, "status code %q", s)
	}
	code := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Wrapf(ErrProtocolViolation, "status code %q", s)
		}
		code = code*10 + int(c-'0')
	}
	return code, nil
}

// readBody frames the body, in precedence order: chunked transfer coding,
// then Content-Length, then read-until-close, then empty.
func (d *Decoder) readBody(m *Message) error {
	switch {
	case m.IsChunked():
		body, err := io.ReadAll(iolib.LimitReader(transfer.NewChunkedReader(d.r), uint(d.opts.MaxBodyBytes)+1))
		if err != nil {
			return errors.Wrap(err, "reading chunked body")
		}
		if len(body) > d.opts.MaxBodyBytes {
			return ErrBodyTooLarge
		}
		m.Body = body
		return nil

	case hasContentLength(m):
		length, ok := m.ContentLength()
		if !ok {
			return errors.Wrapf(ErrProtocolViolation, "content-length %q", m.Header.Value("Content-Length"))
		}
		if length > d.opts.MaxBodyBytes {
			return ErrBodyTooLarge
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(d.r, body); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return errors.Wrap(err, "reading sized body")
		}
		m.Body = body
		return nil

	case d.readsUntilClose(m):
		body, err := io.ReadAll(iolib.LimitReader(d.r, uint(d.opts.MaxBodyBytes)+1))
		if err != nil {
			return errors.Wrap(err, "reading body to eof")
		}
		if len(body) > d.opts.MaxBodyBytes {
			return ErrBodyTooLarge
		}
		m.Body = body
		return nil
	}

	m.Body = nil
	return nil
}

func hasContentLength(m *Message) bool {
	return m.Header.Has("Content-Length")
}

// readsUntilClose applies to responses that neither chunk nor declare a
// length but signal the connection will close: an explicit Connection: close
// or the HTTP/1.0 default. A request is never delimited by EOF; the server
// must be able to answer it.
func (d *Decoder) readsUntilClose(m *Message) bool {
	if m.Kind != KindResponse {
		return false
	}
	connection := strings.TrimSpace(m.Header.Value("Connection"))
	if strings.EqualFold(connection, "close") {
		return true
	}
	return m.Version[1] == 0 && m.Version[0] == 1 && !strings.EqualFold(connection, "keep-alive")
}
