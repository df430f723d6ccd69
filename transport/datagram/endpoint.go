// Package datagram provides the substrate's UDP engine: a bound endpoint
// with an ordered send queue and a perpetual receive loop that surfaces each
// packet with its sender address.
//
// Datagrams are independent: one application message per packet, no framing,
// no reassembly.
package datagram

import (
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/pkg/errors"

	"msgnet/executor"
	"msgnet/transport"
)

// MaxPacketSize is the receive buffer size: the largest IPv4 UDP payload.
const MaxPacketSize = 65507

// ReceiveFunc handles one inbound packet. data is owned by the callback.
type ReceiveFunc func(sender *net.UDPAddr, data []byte)

type sendItem struct {
	to   *net.UDPAddr
	data []byte
}

// Endpoint is a bound UDP socket. Sends drain in queue order through the
// endpoint's strand; one receive loop runs at a time.
type Endpoint struct {
	sock   *net.UDPConn
	ex     *executor.Executor
	strand *executor.Strand
	logger *slog.Logger

	// Send queue state, touched only from strand tasks.
	pending  *queue.Queue
	inFlight bool

	receiving atomic.Bool
	closed    atomic.Bool
}

// Bind opens a UDP socket on addr (host:port). Port 0 selects an ephemeral
// port, the usual client configuration.
func Bind(addr string, ex *executor.Executor, logger *slog.Logger) (*Endpoint, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", addr)
	}

	sock, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", addr)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Endpoint{
		sock:    sock,
		ex:      ex,
		strand:  ex.NewStrand(),
		logger:  logger.With("endpoint", sock.LocalAddr().String()),
		pending: queue.New(),
	}, nil
}

// LocalAddr returns the bound address, useful after binding port 0.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	return e.sock.LocalAddr().(*net.UDPAddr)
}

// SendTo queues one datagram for to. Sends are issued strictly in queue
// order. Send failures are logged; they do not close the endpoint.
func (e *Endpoint) SendTo(to *net.UDPAddr, data []byte) error {
	if e.closed.Load() {
		return transport.ErrClosed
	}
	if len(data) > MaxPacketSize {
		return errors.Errorf("datagram of %d bytes exceeds %d", len(data), MaxPacketSize)
	}

	item := sendItem{to: to, data: data}
	return e.strand.Post(func() {
		e.pending.Add(item)
		if !e.inFlight {
			e.inFlight = true
			e.nextSend()
		}
	})
}

// SendToAddr resolves addr (host:port) and queues the datagram.
func (e *Endpoint) SendToAddr(addr string, data []byte) error {
	to, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", addr)
	}
	return e.SendTo(to, data)
}

// nextSend submits the queue head to the executor. Runs on the strand.
func (e *Endpoint) nextSend() {
	item := e.pending.Peek().(sendItem)

	err := e.ex.Post(func() {
		_, serr := e.sock.WriteToUDP(item.data, item.to)
		if perr := e.strand.Post(func() { e.sendDone(item, serr) }); perr != nil {
			e.logger.Debug("dropping send completion", "error", perr)
		}
	})
	if err != nil {
		e.inFlight = false
	}
}

// sendDone pops the completed datagram and chains the next. Runs on the
// strand.
func (e *Endpoint) sendDone(item sendItem, err error) {
	e.pending.Remove()

	if err != nil && !e.closed.Load() {
		e.logger.Error("send failed", "to", item.to, "error", err)
	}

	if e.pending.Length() > 0 {
		e.nextSend()
		return
	}
	e.inFlight = false
}

// Receive arms the perpetual receive loop. Each packet is trimmed to its
// length and handed to the callback with the sender address; the next
// receive is armed after the callback returns. Receive errors are logged and
// the loop continues; only Close ends it.
func (e *Endpoint) Receive(callback ReceiveFunc) error {
	if e.closed.Load() {
		return transport.ErrClosed
	}
	if !e.receiving.CompareAndSwap(false, true) {
		return errors.New("datagram: receive loop already armed")
	}

	go e.receiveLoop(callback)
	return nil
}

func (e *Endpoint) receiveLoop(callback ReceiveFunc) {
	buf := make([]byte, MaxPacketSize)

	for {
		n, sender, err := e.sock.ReadFromUDP(buf)
		if err != nil {
			if e.closed.Load() {
				return
			}
			e.logger.Error("receive failed", "error", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		callback(sender, data)
	}
}

// Close shuts the socket down and ends the loops. Idempotent.
func (e *Endpoint) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return transport.ErrClosed
	}

	e.logger.Debug("endpoint closed")
	return errors.Wrap(e.sock.Close(), "closing socket")
}
