// Package client provides an HTTP/1.1 client that reuses one connection
// across requests for as long as keep-alive holds.
package client

import (
	"log/slog"
	"net"
	"sync"

	"github.com/pkg/errors"

	"msgnet/application/http"
	"msgnet/application/util/uri"
)

// Options tunes the client.
type Options struct {
	// Decode applies to every response read.
	Decode http.DecodeOptions
}

// Client issues requests to one server address. It is safe for concurrent
// use; requests on the shared connection are serialized.
type Client struct {
	addr   string
	logger *slog.Logger
	opts   Options

	mu   sync.Mutex
	conn net.Conn
	dec  *http.Decoder
	enc  *http.Encoder
}

// New returns a client for the server at addr (host:port). No connection is
// opened until the first request.
func New(addr string, logger *slog.Logger, opts Options) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{addr: addr, logger: logger, opts: opts}
}

// NewForURL builds a client for the server a URL points at.
func NewForURL(rawURL string, logger *slog.Logger, opts Options) (*Client, error) {
	u, err := uri.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return New(u.Address(), logger, opts), nil
}

func (c *Client) ensureConnLocked() error {
	if c.conn != nil {
		return nil
	}

	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return errors.Wrapf(err, "dialing %s", c.addr)
	}

	c.logger.Debug("connected", "addr", c.addr)
	c.conn = conn
	c.dec = http.NewDecoder(conn, c.opts.Decode)
	c.enc = http.NewEncoder(conn)
	return nil
}

func (c *Client) dropConnLocked() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("closing connection", "error", err)
	}
	c.conn, c.dec, c.enc = nil, nil, nil
}

// Do sends req and reads its response. The connection is reused while both
// sides keep alive and dropped otherwise, so the next request redials.
func (c *Client) Do(req *http.Message) (*http.Message, error) {
	if req.Kind != http.KindRequest {
		return nil, errors.New("client: message is not a request")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnLocked(); err != nil {
		return nil, err
	}

	if err := c.enc.WriteMessage(req); err != nil {
		c.dropConnLocked()
		return nil, errors.Wrap(err, "writing request")
	}

	resp, err := c.dec.ReadMessage()
	if err != nil {
		c.dropConnLocked()
		return nil, errors.Wrap(err, "reading response")
	}

	if !req.KeepAlive() || !resp.KeepAlive() {
		c.dropConnLocked()
	}

	return resp, nil
}

// Get issues a GET for rawURL against the client's server.
func (c *Client) Get(rawURL string) (*http.Message, error) {
	u, err := uri.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	req := http.NewRequest("GET", u.RequestTarget())
	req.Header.Set("Host", u.Host)
	return c.Do(req)
}

// Post issues a POST with the given body. Content-Length is set from the
// body, per the codec contract that the caller frames its own messages.
func (c *Client) Post(rawURL, contentType string, body []byte) (*http.Message, error) {
	u, err := uri.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	req := http.NewRequest("POST", u.RequestTarget())
	req.Header.Set("Host", u.Host)
	req.SetBody(contentType, body)
	return c.Do(req)
}

// Close drops the pooled connection. The client remains usable; the next
// request redials.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropConnLocked()
	return nil
}
