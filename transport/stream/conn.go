// Package stream turns a byte-stream socket into an ordered sequence of
// length-delimited frames: serialized writes through a per-connection strand,
// a perpetual read loop, and an idempotent close protocol.
package stream

import (
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/pkg/errors"

	"msgnet/executor"
	"msgnet/transport"
	"msgnet/wire"
)

// headerSize is the length prefix in front of every frame.
const headerSize = 4

// DefaultMaxFrameLen bounds how large an announced frame may be before the
// connection is torn down instead of allocating.
const DefaultMaxFrameLen = 64 << 20

// FrameFunc receives one reassembled frame payload. It runs off the
// connection's strand, so it may call Write and Close freely; the next frame
// is read only after it returns.
type FrameFunc func(frame []byte)

// Options tunes a single connection.
type Options struct {
	// MaxFrameLen caps the announced payload length; 0 means
	// DefaultMaxFrameLen.
	MaxFrameLen uint32
	// OnClosed fires exactly once when the connection reaches its terminal
	// state, with the connection identifier.
	OnClosed func(id string)
	// OnError observes the error that killed the connection, if any. Called
	// before OnClosed.
	OnError func(err error)
}

// Conn is a framed connection over one byte-stream socket.
//
// Frame layout on the wire: a 4-octet little-endian payload length, then the
// payload. The little-endian prefix is a deliberate exception to the
// big-endian convention of the message codec, kept for byte compatibility
// with existing peers.
type Conn struct {
	raw    net.Conn
	id     string
	ex     *executor.Executor
	strand *executor.Strand
	logger *slog.Logger
	opts   Options

	// Write queue state, touched only from strand tasks.
	pending  *queue.Queue
	inFlight bool

	closed    atomic.Bool
	closeDone chan struct{}
}

// NewConn wraps an established socket. The connection is inert until Start
// arms its read loop; Write works immediately.
func NewConn(raw net.Conn, id string, ex *executor.Executor, logger *slog.Logger, opts Options) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxFrameLen == 0 {
		opts.MaxFrameLen = DefaultMaxFrameLen
	}

	return &Conn{
		raw:       raw,
		id:        id,
		ex:        ex,
		strand:    ex.NewStrand(),
		logger:    logger.With("conn", id),
		opts:      opts,
		pending:   queue.New(),
		closeDone: make(chan struct{}),
	}
}

// ID returns the connection's stable identifier.
func (c *Conn) ID() string { return c.id }

func (c *Conn) LocalAddr() net.Addr  { return c.raw.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// IsClosed reports whether Close has begun.
func (c *Conn) IsClosed() bool { return c.closed.Load() }

// Write frames the payload and queues it for transmission. Callers on any
// goroutine may write concurrently; the strand serializes queue access and at
// most one socket write is in flight at a time, so frames reach the wire in
// enqueue order and never interleave. Delivery is at-most-once: frames queued
// behind a transport failure are dropped with the connection.
func (c *Conn) Write(payload []byte) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}

	packet := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(packet, uint32(len(payload)))
	copy(packet[headerSize:], payload)

	return c.strand.Post(func() {
		c.pending.Add(packet)
		if !c.inFlight {
			c.inFlight = true
			c.nextWrite()
		}
	})
}

// nextWrite submits the queue head to the executor. Runs on the strand.
func (c *Conn) nextWrite() {
	packet := c.pending.Peek().([]byte)

	err := c.ex.Post(func() {
		_, werr := c.raw.Write(packet)
		// Completion is strand-posted so queue state stays single-threaded.
		if perr := c.strand.Post(func() { c.writeDone(werr) }); perr != nil {
			c.logger.Debug("dropping write completion", "error", perr)
		}
	})
	if err != nil {
		c.inFlight = false
	}
}

// writeDone pops the completed frame and chains the next one. Runs on the
// strand.
func (c *Conn) writeDone(err error) {
	c.pending.Remove()

	if err != nil {
		if !c.closed.Load() {
			c.fail(errors.Wrap(err, "writing frame"))
		}
		c.inFlight = false
		return
	}

	if c.pending.Length() > 0 {
		c.nextWrite()
		return
	}
	c.inFlight = false
}

// Start arms the perpetual read loop: header, body, callback, repeat, until
// the peer closes or Close is called. Callers do not re-arm it.
func (c *Conn) Start(onFrame FrameFunc) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}

	go c.readLoop(onFrame)
	return nil
}

func (c *Conn) readLoop(onFrame FrameFunc) {
	var header [headerSize]byte

	for {
		if _, err := io.ReadFull(c.raw, header[:]); err != nil {
			switch {
			case c.closed.Load():
				// Close already ran; nothing to report.
			case errors.Is(err, io.EOF):
				// EOF on a frame boundary is a graceful shutdown.
				c.logger.Info("peer closed connection")
				c.Close()
			default:
				c.fail(errors.Wrap(err, "reading frame header"))
			}
			return
		}

		length := binary.LittleEndian.Uint32(header[:])
		if length > c.opts.MaxFrameLen {
			c.fail(errors.Wrapf(transport.ErrFrameTooLarge, "%d bytes announced", length))
			return
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(c.raw, payload); err != nil {
			if c.closed.Load() {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = errors.Wrap(wire.ErrTruncated, "eof inside frame body")
			}
			c.fail(err)
			return
		}

		// The callback runs here, off the strand, so a handler that turns
		// around and calls Write or Close cannot deadlock against the write
		// queue. The next header read starts only after it returns.
		onFrame(payload)
	}
}

// fail reports err through the error hook and closes the connection.
func (c *Conn) fail(err error) {
	if c.closed.Load() {
		return
	}
	c.logger.Error("connection failed", "error", err)
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
	c.Close()
}

// Close shuts the connection down: pending I/O is cancelled by closing the
// socket, the write queue is dropped, and OnClosed fires exactly once.
// Idempotent and safe from any goroutine, including frame callbacks.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return transport.ErrClosed
	}

	if err := c.raw.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Warn("closing socket", "error", err)
	}

	if c.opts.OnClosed != nil {
		c.opts.OnClosed(c.id)
	}
	c.logger.Debug("connection closed")
	close(c.closeDone)
	return nil
}

// Done is closed once the connection has fully shut down.
func (c *Conn) Done() <-chan struct{} { return c.closeDone }
