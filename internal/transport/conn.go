package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	tcerr "telectl/internal/errors"
	"telectl/internal/metrics"
	"telectl/util"
)

// Options tune a [Conn].  Zero values select defaults.
type Options struct {
	// Timeout bounds the dial and each read of the receive loop.  A
	// read that times out means "no data yet" and the loop continues.
	Timeout time.Duration

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Conn owns exactly one socket.  Writes and the receive loop use
// opposite directions of the socket; writes are serialised among
// themselves so request blocks never interleave.
type Conn struct {
	conn    net.Conn
	addr    string
	timeout time.Duration
	logger  *util.Logger
	metrics *metrics.Collector

	wmu       sync.Mutex
	mu        sync.Mutex // guards started against Close
	started   bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// Open dials address with d and returns the connected [Conn].  Failures
// are reported as *errors.NetworkError with Op "dial".
func Open(ctx context.Context, d Dialer, address string, opts Options) (*Conn, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts.Metrics.ConnectAttempt()
	logger.Verbose("connecting to %s", address)
	nc, err := d.Dial(dialCtx, "tcp", address)
	if err != nil {
		opts.Metrics.RecordError(err.Error())
		return nil, tcerr.Wrap("dial", address, err)
	}
	logger.Verbose("connected to %s", nc.RemoteAddr())
	opts.Metrics.ConnectionOpened()

	return newConn(nc, address, timeout, logger, opts.Metrics), nil
}

func newConn(nc net.Conn, addr string, timeout time.Duration, logger *util.Logger, m *metrics.Collector) *Conn {
	return &Conn{
		conn:    nc,
		addr:    addr,
		timeout: timeout,
		logger:  logger,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// Addr returns the address that was dialled.
func (c *Conn) Addr() string { return c.addr }

// Start launches the receive loop.  It must be called at most once.
func (c *Conn) Start(r Receiver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed.Load() {
		return
	}
	c.started = true
	go c.receiveLoop(r)
}

// Write sends p as one write.  Failures are *errors.NetworkError with
// Op "write".
func (c *Conn) Write(p []byte) error {
	if c.closed.Load() {
		return tcerr.Wrap("write", c.addr, net.ErrClosed)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if _, err := c.conn.Write(p); err != nil {
		c.metrics.RecordError(err.Error())
		return tcerr.Wrap("write", c.addr, err)
	}
	c.metrics.FrameSent(len(p))
	return nil
}

// Close closes the socket, which unblocks a pending read.  It is
// idempotent and safe to call after the loop has exited.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed.Store(true)
		started := c.started
		c.mu.Unlock()

		err = c.conn.Close()
		c.metrics.ConnectionClosed()
		if !started {
			close(c.done)
		}
	})
	return err
}

// Done is closed when the receive loop has exited (or immediately after
// Close when the loop was never started).
func (c *Conn) Done() <-chan struct{} { return c.done }

// receiveLoop reads until the peer goes away or Close is called.
func (c *Conn) receiveLoop(r Receiver) {
	defer close(c.done)

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	deadlines := true
	for {
		if deadlines {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
				// SSH channel conns do not support deadlines; Close
				// still unblocks the read.
				c.logger.Debug("read deadline unsupported: %v", err)
				deadlines = false
			}
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.metrics.FrameReceived(n)
			r.Receive(buf[:n])
		}
		if err == nil {
			if n == 0 {
				c.finish(r, nil)
				return
			}
			continue
		}
		if tcerr.IsTimeout(err) && !c.closed.Load() {
			continue
		}
		c.finish(r, err)
		return
	}
}

// finish reports a peer-initiated end unless the closure was ours.
func (c *Conn) finish(r Receiver, cause error) {
	if c.closed.Load() {
		c.logger.Debug("receive loop stopped")
		return
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.conn.Close() //nolint:errcheck
		c.metrics.ConnectionClosed()
	})

	err := tcerr.PeerClosed(c.addr, cause)
	c.metrics.RecordError(err.Error())
	c.logger.Verbose("connection lost: %v", err)
	r.Closed(err)
}
