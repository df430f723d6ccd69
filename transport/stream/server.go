package stream

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"msgnet/executor"
	"msgnet/ident"
	"msgnet/transport"
)

// SessionFrameFunc receives each inbound frame together with the session it
// arrived on.
type SessionFrameFunc func(s *Session, frame []byte)

// ServerOptions tunes the acceptor and its sessions.
type ServerOptions struct {
	// Conn applies to every accepted connection. OnClosed and OnError are
	// reserved for the registry's own bookkeeping.
	Conn Options
	// OnConnect fires after a session is registered, before its read loop
	// starts.
	OnConnect func(s *Session)
	// OnDisconnect fires once per session after it leaves the registry.
	OnDisconnect func(id string)
}

// Server binds a TCP endpoint, accepts connections, wraps each into an
// identified session, and tracks them in a registry for lookup and broadcast.
type Server struct {
	lis    net.Listener
	ex     *executor.Executor
	logger *slog.Logger
	opts   ServerOptions

	handle SessionFrameFunc

	mu       sync.RWMutex
	sessions map[string]*Session

	closed atomic.Bool
}

// Listen binds addr (host:port) and returns a server ready to Serve. The
// listener has address reuse semantics, so restarts do not trip over sockets
// in TIME_WAIT.
func Listen(addr string, ex *executor.Executor, logger *slog.Logger, handle SessionFrameFunc, opts ServerOptions) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", addr)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		lis:      lis,
		ex:       ex,
		logger:   logger,
		opts:     opts,
		handle:   handle,
		sessions: make(map[string]*Session),
	}, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() net.Addr { return s.lis.Addr() }

// Serve runs the accept loop until Close. Transient accept errors are logged
// and the loop continues; only closing the server ends it.
func (s *Server) Serve() error {
	s.logger.Info("server started", "addr", s.Addr())

	for {
		raw, err := s.lis.Accept()
		if err != nil {
			if s.closed.Load() {
				s.logger.Info("server stopped", "addr", s.Addr())
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.admit(raw)
	}
}

func (s *Server) admit(raw net.Conn) {
	id := ident.New()

	connOpts := s.opts.Conn
	connOpts.OnClosed = s.removeSession
	connOpts.OnError = nil

	sess := &Session{conn: NewConn(raw, id, s.ex, s.logger, connOpts)}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info("client connected", "session", id, "remote", raw.RemoteAddr())
	if s.opts.OnConnect != nil {
		s.opts.OnConnect(sess)
	}

	if err := sess.conn.Start(func(frame []byte) { s.handle(sess, frame) }); err != nil {
		s.logger.Error("starting session read loop", "session", id, "error", err)
	}
}

// removeSession is each connection's close hook.
func (s *Server) removeSession(id string) {
	s.mu.Lock()
	_, known := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !known {
		return
	}

	s.logger.Info("client disconnected", "session", id)
	if s.opts.OnDisconnect != nil {
		s.opts.OnDisconnect(id)
	}
}

// Session looks a live session up by identifier.
func (s *Server) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// SessionCount reports the registry size.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Broadcast enqueues the frame on every currently registered session. One
// session's failure does not affect the others.
func (s *Server) Broadcast(frame []byte) {
	if s.closed.Load() {
		return
	}

	s.mu.RLock()
	snapshot := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		snapshot = append(snapshot, sess)
	}
	s.mu.RUnlock()

	for _, sess := range snapshot {
		if err := sess.Write(frame); err != nil {
			s.logger.Warn("broadcast write failed", "session", sess.ID(), "error", err)
		}
	}
}

// Close stops accepting, closes every session, and empties the registry.
// Idempotent.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return transport.ErrClosed
	}

	err := s.lis.Close()

	s.mu.RLock()
	snapshot := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		snapshot = append(snapshot, sess)
	}
	s.mu.RUnlock()

	for _, sess := range snapshot {
		sess.Close()
	}

	return errors.Wrap(err, "closing listener")
}
