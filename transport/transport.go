// Package transport holds the error kinds shared by the stream and datagram
// engines.
package transport

import "github.com/pkg/errors"

var (
	// ErrClosed is returned for operations on an already-closed connection
	// or endpoint.
	ErrClosed = errors.New("transport: closed")
	// ErrPeerClosed reports a graceful EOF from the remote side between
	// frames.
	ErrPeerClosed = errors.New("transport: peer closed the connection")
	// ErrFrameTooLarge reports a frame header announcing a payload beyond
	// the configured limit.
	ErrFrameTooLarge = errors.New("transport: frame exceeds size limit")
)
