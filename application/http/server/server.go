// Package server provides an HTTP/1.1 server routing (method, path) pairs to
// handlers over kept-alive connections.
package server

import (
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"msgnet/application/http"
	"msgnet/transport"
)

// HandlerFunc produces the response for one request. Returning nil sends an
// empty 500, since losing a response would stall the connection.
type HandlerFunc func(req *http.Message) *http.Message

// Options tunes the server.
type Options struct {
	// Decode applies to every request read.
	Decode http.DecodeOptions
}

type routeKey struct {
	method string
	path   string
}

// Server accepts connections and serves requests until Close. Register every
// route before Serve; the route table is read without locks on the hot path.
type Server struct {
	lis    net.Listener
	logger *slog.Logger
	clock  clock.Clock
	opts   Options

	routes map[routeKey]HandlerFunc

	group errgroup.Group

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed atomic.Bool
}

// Listen binds addr (host:port). A nil clk uses the real clock.
func Listen(addr string, logger *slog.Logger, clk clock.Clock, opts Options) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", addr)
	}

	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Server{
		lis:    lis,
		logger: logger,
		clock:  clk,
		opts:   opts,
		routes: make(map[routeKey]HandlerFunc),
		conns:  make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.lis.Addr() }

// Handle registers a handler for a method and exact path.
func (s *Server) Handle(method, path string, h HandlerFunc) {
	s.routes[routeKey{method: strings.ToUpper(method), path: path}] = h
}

// Serve accepts connections until Close and drains in-flight ones before
// returning. Transient accept errors are logged and the loop continues.
func (s *Server) Serve() error {
	s.logger.Info("http server started", "addr", s.Addr())

	for {
		conn, err := s.lis.Accept()
		if err != nil {
			if s.closed.Load() {
				break
			}
			s.logger.Error("accept failed", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.track(conn)
		s.group.Go(func() error {
			defer s.untrack(conn)
			s.serveConn(conn)
			return nil
		})
	}

	err := s.group.Wait()
	s.logger.Info("http server stopped", "addr", s.Addr())
	return err
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

// serveConn runs the request/response loop on one connection, holding it
// open while keep-alive allows.
func (s *Server) serveConn(conn net.Conn) {
	logger := s.logger.With("remote", conn.RemoteAddr())
	logger.Debug("connection open")

	dec := http.NewDecoder(conn, s.opts.Decode)
	enc := http.NewEncoder(conn)

	for {
		req, err := dec.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("client closed connection")
			case s.closed.Load():
				// Shutdown raced the read; nothing to report.
			case errors.Is(err, http.ErrProtocolViolation):
				logger.Warn("malformed request", "error", err)
				s.writeResponse(enc, badRequest(), logger)
			default:
				logger.Warn("reading request", "error", err)
			}
			return
		}

		if req.Kind != http.KindRequest {
			logger.Warn("received a response on the server side")
			s.writeResponse(enc, badRequest(), logger)
			return
		}

		resp := s.dispatch(req, logger)

		// Echo the client's decision to close so both framings agree.
		if !req.KeepAlive() {
			resp.Header.Set("Connection", "close")
		}
		resp.Header.Set("Date", s.clock.Now().UTC().Format(time.RFC1123))
		resp.Version = req.Version

		if !s.writeResponse(enc, resp, logger) {
			return
		}

		if !req.KeepAlive() || !resp.KeepAlive() {
			logger.Debug("closing connection after response")
			return
		}
	}
}

func (s *Server) dispatch(req *http.Message, logger *slog.Logger) *http.Message {
	// Route on the path alone; the query is the handler's business.
	path, _, _ := strings.Cut(req.Target, "?")

	handler, ok := s.routes[routeKey{method: req.Method, path: path}]
	if !ok {
		logger.Info("no route", "method", req.Method, "path", path)
		return notFound()
	}

	resp := handler(req)
	if resp == nil {
		logger.Error("handler returned no response", "method", req.Method, "path", path)
		resp = internalError()
	}
	return resp
}

func (s *Server) writeResponse(enc *http.Encoder, resp *http.Message, logger *slog.Logger) bool {
	if err := enc.WriteMessage(resp); err != nil {
		if !s.closed.Load() {
			logger.Warn("writing response", "error", err)
		}
		return false
	}
	return true
}

func badRequest() *http.Message {
	resp := http.NewResponse(400, "Bad Request")
	resp.Header.Set("Connection", "close")
	resp.Header.Set("Content-Length", "0")
	return resp
}

func notFound() *http.Message {
	resp := http.NewResponse(404, "Not Found")
	resp.Header.Set("Content-Length", "0")
	return resp
}

func internalError() *http.Message {
	resp := http.NewResponse(500, "Internal Server Error")
	resp.Header.Set("Content-Length", "0")
	return resp
}

// Close stops accepting, closes live connections, and lets Serve drain.
// Idempotent.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return transport.ErrClosed
	}

	err := s.lis.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	return errors.Wrap(err, "closing listener")
}
