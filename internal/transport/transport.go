// Package transport owns the raw byte stream to the telemetry server.
//
// A [Dialer] establishes the socket (directly or through an SSH
// gateway) and [Open] wraps it in a [Conn] that runs one background
// receive loop for the connection's lifetime.  The loop never looks at
// protocol semantics; it hands each read to a [Receiver].
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer and an SSH-tunnelled dialer that routes traffic
// through an encrypted gateway.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Receiver consumes what the receive loop reads.  Both methods are
// called from the loop goroutine only, never concurrently.
type Receiver interface {
	// Receive is called once per successful read with the bytes read.
	// data is only valid for the duration of the call.
	Receive(data []byte)

	// Closed is called exactly once when the loop ends because of the
	// peer or a read error.  It is not called after [Conn.Close].
	Closed(err error)
}
