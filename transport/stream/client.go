package stream

import (
	"context"
	"log/slog"
	"net"

	"github.com/pkg/errors"

	"msgnet/executor"
	"msgnet/ident"
)

// Dial connects to a framed-stream server at addr (host:port) and returns the
// client side connection with a fresh identifier. Arm it with Start and it
// behaves exactly like a server-side connection.
func Dial(ctx context.Context, addr string, ex *executor.Executor, logger *slog.Logger, opts Options) (*Conn, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}

	return NewConn(raw, ident.New(), ex, logger, opts), nil
}
