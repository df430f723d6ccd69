package stream

import "net"

// Session is a server-side connection plus its stable identifier, registered
// with the server for the duration of the connection.
type Session struct {
	conn *Conn
}

// ID returns the session identifier the registry tracks.
func (s *Session) ID() string { return s.conn.ID() }

// Write enqueues a frame on the session's connection.
func (s *Session) Write(payload []byte) error { return s.conn.Write(payload) }

// Close tears the session's connection down; the registry entry is removed
// through the connection's close hook.
func (s *Session) Close() error { return s.conn.Close() }

func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *Session) IsClosed() bool { return s.conn.IsClosed() }
