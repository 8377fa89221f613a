// Package metrics provides lightweight, lock-free counters for a
// telemetry client session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one client process.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	connectAttempts   atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	framesIn          atomic.Int64
	framesOut         atomic.Int64
	authAccepted      atomic.Int64
	authRejected      atomic.Int64
	decodeAnomalies   atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastFrame    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectAttempt counts one dial, successful or not.
func (c *Collector) ConnectAttempt() {
	if c == nil {
		return
	}
	c.connectAttempts.Add(1)
}

// ConnectAttempts returns the number of dials made.
func (c *Collector) ConnectAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.connectAttempts.Load()
}

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// FrameReceived records one inbound frame of n bytes.
func (c *Collector) FrameReceived(n int) {
	if c == nil {
		return
	}
	c.framesIn.Add(1)
	c.bytesIn.Add(int64(n))
	c.mu.Lock()
	c.lastFrame = time.Now()
	c.mu.Unlock()
}

// FrameSent records one outbound request of n bytes.
func (c *Collector) FrameSent(n int) {
	if c == nil {
		return
	}
	c.framesOut.Add(1)
	c.bytesOut.Add(int64(n))
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// FramesIn returns the number of frames received.
func (c *Collector) FramesIn() int64 {
	if c == nil {
		return 0
	}
	return c.framesIn.Load()
}

// FramesOut returns the number of requests sent.
func (c *Collector) FramesOut() int64 {
	if c == nil {
		return 0
	}
	return c.framesOut.Load()
}

// ── Protocol metrics ─────────────────────────────────────────────────

// AuthResult counts one AUTH_SUCCESS or AUTH_FAILED frame.
func (c *Collector) AuthResult(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.authAccepted.Add(1)
	} else {
		c.authRejected.Add(1)
	}
}

// DecodeAnomaly counts a DATA frame with at least one unparsable field.
func (c *Collector) DecodeAnomaly() {
	if c == nil {
		return
	}
	c.decodeAnomalies.Add(1)
}

// DecodeAnomalies returns the number of malformed DATA frames seen.
func (c *Collector) DecodeAnomalies() int64 {
	if c == nil {
		return 0
	}
	return c.decodeAnomalies.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	ConnectAttempts   int64  `json:"connect_attempts"`
	ConnectionsActive int64  `json:"connections_active"`
	ConnectionsTotal  int64  `json:"connections_total"`
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	FramesIn          int64  `json:"frames_in"`
	FramesOut         int64  `json:"frames_out"`
	AuthAccepted      int64  `json:"auth_accepted"`
	AuthRejected      int64  `json:"auth_rejected"`
	DecodeAnomalies   int64  `json:"decode_anomalies"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastFrame         string `json:"last_frame,omitempty"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectAttempts:   c.connectAttempts.Load(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		FramesIn:          c.framesIn.Load(),
		FramesOut:         c.framesOut.Load(),
		AuthAccepted:      c.authAccepted.Load(),
		AuthRejected:      c.authRejected.Load(),
		DecodeAnomalies:   c.decodeAnomalies.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastFrame.IsZero() {
		s.LastFrame = c.lastFrame.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
