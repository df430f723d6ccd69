// Package http implements the substrate's HTTP/1.1 codec: a message model
// with a case-preserving header map, a decoder that frames bodies by chunked
// encoding, Content-Length, or read-until-close, and a symmetric encoder.
//
// This rides the raw byte stream directly; HTTP is its own framing and never
// passes through the length-prefix layer.
package http

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrProtocolViolation reports a malformed start line, header, or chunk
// header.
var ErrProtocolViolation = errors.New("http: protocol violation")

// The request methods the parser recognizes. A start line opening with one
// of these is a request; anything else is read as a response status line.
var methods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {},
	"HEAD": {}, "OPTIONS": {}, "PATCH": {},
}

// IsMethod reports whether token is a recognized request method.
func IsMethod(token string) bool {
	_, ok := methods[token]
	return ok
}

// Version is [major, minor].
type Version [2]uint

var (
	Version10 = Version{1, 0}
	Version11 = Version{1, 1}
)

// ParseVersion parses version text such as "HTTP/1.1".
func ParseVersion(s string) (Version, error) {
	after, found := strings.CutPrefix(s, "HTTP/")
	if !found {
		return Version{}, errors.Wrapf(ErrProtocolViolation, "version %q has no HTTP/ prefix", s)
	}

	first, second, found := strings.Cut(after, ".")
	if !found {
		return Version{}, errors.Wrapf(ErrProtocolViolation, "version %q has no dot", s)
	}

	major, err1 := strconv.ParseUint(first, 10, 32)
	minor, err2 := strconv.ParseUint(second, 10, 32)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Wrapf(ErrProtocolViolation, "version %q is not numeric", s)
	}

	return Version{uint(major), uint(minor)}, nil
}

func (v Version) String() string {
	return "HTTP/" + strconv.FormatUint(uint64(v[0]), 10) + "." + strconv.FormatUint(uint64(v[1]), 10)
}

// Field is one header line. Name keeps the case it was written with.
type Field struct {
	Name  string
	Value string
}

// Header is a case-preserving header map: fields serialize with the exact
// name they were set with, in insertion order, while lookups are
// case-insensitive. Setting an existing key overwrites its value
// (last-write-wins) without changing its position.
type Header struct {
	fields []Field
	index  map[string]int
}

func NewHeader() Header {
	return Header{index: make(map[string]int)}
}

func (h *Header) lazyInit() {
	if h.index == nil {
		h.index = make(map[string]int)
	}
}

// Set stores value under name, replacing any previous value for the same
// case-insensitive key.
func (h *Header) Set(name, value string) {
	h.lazyInit()
	key := strings.ToLower(name)
	if i, ok := h.index[key]; ok {
		h.fields[i] = Field{Name: name, Value: value}
		return
	}
	h.index[key] = len(h.fields)
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Get looks name up case-insensitively.
func (h *Header) Get(name string) (string, bool) {
	h.lazyInit()
	i, ok := h.index[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return h.fields[i].Value, true
}

// Value is Get without the presence flag.
func (h *Header) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// Has reports presence of a case-insensitive key.
func (h *Header) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Fields returns the header lines in insertion order.
func (h *Header) Fields() []Field { return h.fields }

// Len reports the number of distinct header keys.
func (h *Header) Len() int { return len(h.fields) }

// Kind distinguishes requests from responses.
type Kind int

const (
	KindRequest Kind = iota
	KindResponse
)

// Message is one HTTP message: a start line, a header map, and a body. The
// codec never computes Content-Length on its own; callers set it.
type Message struct {
	Kind    Kind
	Version Version

	// Request start line.
	Method string
	Target string

	// Response start line.
	StatusCode   int
	ReasonPhrase string

	Header Header
	Body   []byte
}

// NewRequest builds a request message with an empty header map.
func NewRequest(method, target string) *Message {
	return &Message{
		Kind:    KindRequest,
		Version: Version11,
		Method:  method,
		Target:  target,
		Header:  NewHeader(),
	}
}

// NewResponse builds a response message with an empty header map.
func NewResponse(statusCode int, reasonPhrase string) *Message {
	return &Message{
		Kind:         KindResponse,
		Version:      Version11,
		StatusCode:   statusCode,
		ReasonPhrase: reasonPhrase,
		Header:       NewHeader(),
	}
}

// SetBody attaches body and records its length in Content-Length.
func (m *Message) SetBody(contentType string, body []byte) {
	if contentType != "" {
		m.Header.Set("Content-Type", contentType)
	}
	m.Header.Set("Content-Length", strconv.Itoa(len(body)))
	m.Body = body
}

// IsChunked reports whether the body travels with chunked transfer coding.
func (m *Message) IsChunked() bool {
	value := m.Header.Value("Transfer-Encoding")
	return strings.EqualFold(strings.TrimSpace(value), "chunked")
}

// ContentLength returns the declared body length, or ok=false when absent or
// unparsable.
func (m *Message) ContentLength() (int, bool) {
	value, present := m.Header.Get("Content-Length")
	if !present {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// KeepAlive reports whether the connection survives this message: an
// explicit keep-alive always does, and HTTP/1.1 does unless told close.
func (m *Message) KeepAlive() bool {
	connection := strings.TrimSpace(m.Header.Value("Connection"))
	if strings.EqualFold(connection, "keep-alive") {
		return true
	}
	return m.Version == Version11 && !strings.EqualFold(connection, "close")
}

// startLine renders the first line of the serialized form.
func (m *Message) startLine() string {
	if m.Kind == KindRequest {
		return m.Method + " " + m.Target + " " + m.Version.String()
	}
	return m.Version.String() + " " + strconv.Itoa(m.StatusCode) + " " + m.ReasonPhrase
}

var crlf = []byte("\r\n")

// headerTerminator ends the header block: the blank line after the last
// field.
var headerTerminator = []byte("\r\n\r\n")
