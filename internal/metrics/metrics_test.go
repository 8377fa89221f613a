package metrics

import (
	"encoding/json"
	"testing"
)

func TestCollector_Connections(t *testing.T) {
	c := New()

	c.ConnectAttempt()
	c.ConnectAttempt()
	c.ConnectionOpened()
	if c.ActiveConnections() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveConnections())
	}
	if c.ConnectAttempts() != 2 {
		t.Errorf("attempts = %d, want 2", c.ConnectAttempts())
	}

	c.ConnectionClosed()
	if c.ActiveConnections() != 0 {
		t.Errorf("active = %d, want 0", c.ActiveConnections())
	}
	if c.TotalConnections() != 1 {
		t.Errorf("total should remain 1, got %d", c.TotalConnections())
	}
}

func TestCollector_Frames(t *testing.T) {
	c := New()

	c.FrameReceived(16)
	c.FrameReceived(30)
	c.FrameSent(60)

	if c.TotalBytesIn() != 46 {
		t.Errorf("bytes in = %d, want 46", c.TotalBytesIn())
	}
	if c.TotalBytesOut() != 60 {
		t.Errorf("bytes out = %d, want 60", c.TotalBytesOut())
	}
	if c.FramesIn() != 2 || c.FramesOut() != 1 {
		t.Errorf("frames in/out = %d/%d, want 2/1", c.FramesIn(), c.FramesOut())
	}
	if c.Snapshot().LastFrame == "" {
		t.Error("expected last frame timestamp")
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
	if got := c.Snapshot().LastErrorMessage; got != "second error" {
		t.Errorf("last error = %q", got)
	}
}

func TestCollector_Protocol(t *testing.T) {
	c := New()

	c.AuthResult(false)
	c.AuthResult(true)
	c.DecodeAnomaly()

	snap := c.Snapshot()
	if snap.AuthAccepted != 1 || snap.AuthRejected != 1 {
		t.Errorf("auth accepted/rejected = %d/%d, want 1/1", snap.AuthAccepted, snap.AuthRejected)
	}
	if c.DecodeAnomalies() != 1 || snap.DecodeAnomalies != 1 {
		t.Errorf("decode anomalies = %d", c.DecodeAnomalies())
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.ConnectionOpened()
	c.FrameSent(42)

	raw := c.JSON()
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("JSON parse error: %v", err)
	}
	if snap.ConnectionsActive != 1 {
		t.Errorf("JSON active = %d", snap.ConnectionsActive)
	}
	if snap.BytesOut != 42 || snap.FramesOut != 1 {
		t.Errorf("JSON bytes/frames out = %d/%d", snap.BytesOut, snap.FramesOut)
	}
}

func TestNilCollector_NoOps(t *testing.T) {
	var c *Collector

	c.ConnectAttempt()
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.FrameReceived(100)
	c.FrameSent(100)
	c.RecordError("test")
	c.AuthResult(true)
	c.DecodeAnomaly()

	if c.ActiveConnections() != 0 || c.TotalBytesIn() != 0 || c.ErrorCount() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.Snapshot().FramesIn != 0 {
		t.Error("nil snapshot should be zero")
	}
	if c.JSON() == "" {
		t.Error("nil JSON should return valid JSON")
	}
}
