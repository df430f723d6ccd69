// Package dispatch routes inbound frames to handlers by envelope type code.
package dispatch

import (
	"log/slog"

	"msgnet/wire"
)

// HandlerFunc consumes one inbound frame. The frame still carries its 2-octet
// type code so the handler can re-decode the full envelope.
type HandlerFunc[E any] func(endpoint E, frame []byte)

// Registry maps type codes to handlers. E is the endpoint handed to handlers:
// a stream session, a datagram sender address, or whatever the transport
// surfaces.
//
// Register everything before serving; Dispatch takes no lock.
type Registry[E any] struct {
	handlers map[int16]HandlerFunc[E]
	logger   *slog.Logger
}

func NewRegistry[E any](logger *slog.Logger) *Registry[E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry[E]{
		handlers: make(map[int16]HandlerFunc[E]),
		logger:   logger,
	}
}

// Register binds a handler to a type code, replacing any previous binding.
func (r *Registry[E]) Register(code int16, h HandlerFunc[E]) {
	r.handlers[code] = h
}

// Dispatch peels the type code off frame and invokes the matching handler
// with the full frame. Unknown codes and short frames are logged and
// discarded; handler panics are recovered so one bad message cannot take the
// endpoint down.
func (r *Registry[E]) Dispatch(endpoint E, frame []byte) {
	code, _, err := wire.PeelType(frame)
	if err != nil {
		r.logger.Warn("discarding undecodable frame", "len", len(frame), "error", err)
		return
	}

	h, ok := r.handlers[code]
	if !ok {
		r.logger.Warn("no handler registered for message type", "type", code)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked", "type", code, "panic", rec)
		}
	}()
	h(endpoint, frame)
}
