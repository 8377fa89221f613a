package transport

import (
	"context"
	"net"
	"time"
)

// DefaultTimeout bounds both the TCP connect and each blocking read of
// the receive loop.
const DefaultTimeout = 10 * time.Second

// TCPDialer establishes plain TCP connections.
type TCPDialer struct {
	Timeout time.Duration
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
