// Package uri parses the URL shape the HTTP codec works with:
// scheme://host[:port]/path?query.
package uri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrMalformed = errors.New("uri: malformed url")

// URL is a parsed address. Path and RawQuery keep their original bytes, so a
// round trip through String is byte-equivalent; only the Query map is
// percent-decoded.
type URL struct {
	Scheme string
	Host   string
	// Port is 0 when absent; Address applies the scheme default.
	Port int
	// Path defaults to "/" when the input has none.
	Path string
	// RawQuery is the query as it appeared, without the '?'.
	RawQuery string
	// Query holds percent-decoded keys and values; '+' decodes to space.
	Query map[string]string
}

// Parse splits raw into its components.
func Parse(raw string) (*URL, error) {
	u := &URL{Query: make(map[string]string)}

	rest := raw
	if scheme, after, found := strings.Cut(rest, "://"); found {
		if scheme == "" {
			return nil, errors.Wrap(ErrMalformed, "empty scheme")
		}
		u.Scheme = scheme
		rest = after
	}

	hostport := rest
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		hostport = rest[:idx]
		rest = rest[idx:]
	} else {
		rest = ""
	}

	host, portText, found := strings.Cut(hostport, ":")
	u.Host = host
	if found {
		port, err := strconv.Atoi(portText)
		if err != nil || port < 0 || port > 65535 {
			return nil, errors.Wrapf(ErrMalformed, "port %q", portText)
		}
		u.Port = port
	}

	u.Path, u.RawQuery, _ = strings.Cut(rest, "?")
	if u.Path == "" {
		u.Path = "/"
	}

	if u.RawQuery != "" {
		parseQuery(u.RawQuery, u.Query)
	}

	return u, nil
}

func parseQuery(rawQuery string, into map[string]string) {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		into[Unescape(key)] = Unescape(value)
	}
}

// Unescape percent-decodes s, treating '+' as space. Stray or truncated
// percent escapes pass through undecoded, matching what permissive servers
// do with hand-typed queries.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '%':
			if i+2 < len(s) {
				if v, ok := unhex(s[i+1], s[i+2]); ok {
					b.WriteByte(v)
					i += 2
					continue
				}
			}
			b.WriteByte(c)
		case '+':
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func unhex(hi, lo byte) (byte, bool) {
	h, ok1 := hexDigit(hi)
	l, ok2 := hexDigit(lo)
	return h<<4 | l, ok1 && ok2
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Address renders host:port for dialing, applying the scheme default when no
// port was given.
func (u *URL) Address() string {
	port := u.Port
	if port == 0 {
		switch u.Scheme {
		case "", "http":
			port = 80
		case "https":
			port = 443
		}
	}
	return u.Host + ":" + strconv.Itoa(port)
}

// RequestTarget renders the origin-form target for the request line, byte
// identical to the parsed input's path and query.
func (u *URL) RequestTarget() string {
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.RawQuery
}

func (u *URL) String() string {
	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	b.WriteString(u.Host)
	if u.Port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.Port))
	}
	b.WriteString(u.RequestTarget())
	return b.String()
}
