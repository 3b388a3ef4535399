package aissource

import (
	"context"
	"io"
	"net"

	"go.bug.st/serial"
)

// Dialer opens the byte stream of a feed. It should honour ctx cancellation where the transport allows it.
type Dialer func(ctx context.Context) (io.ReadCloser, error)

func TCPDialer(addr string) Dialer {
	return func(ctx context.Context) (io.ReadCloser, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
}

func SerialDialer(device string, baud int) Dialer {
	return func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return serial.Open(device, &serial.Mode{BaudRate: baud})
	}
}
