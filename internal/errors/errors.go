// Package errors provides the error kinds reported by the telemetry
// client.
//
// Connection-level failures carry structured context (operation,
// address, retryability) so callers can tell a refused dial from a
// dropped peer without string matching.  Request-level failures are
// plain sentinels compared with [Is].
package errors

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrPermissionDenied = errors.New("permission denied: administrator role required")
	ErrInvalidCommand   = errors.New("invalid vehicle command")
	ErrPeerClosed       = errors.New("server closed the connection")
	ErrTimeout          = errors.New("operation timed out")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrTunnelClosed     = errors.New("tunnel is closed")
	ErrHostKeyMismatch  = errors.New("host key mismatch")
	ErrSessionClosed    = errors.New("session is closed")
)

// ── Error kinds ──────────────────────────────────────────────────────

// Kind names the failure classes a caller is expected to handle.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectFailure
	KindNotConnected
	KindPermissionDenied
	KindInvalidCommand
	KindSendFailure
	KindPeerClosed
	KindDecodeAnomaly
)

func (k Kind) String() string {
	switch k {
	case KindConnectFailure:
		return "ConnectFailure"
	case KindNotConnected:
		return "NotConnected"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindInvalidCommand:
		return "InvalidCommand"
	case KindSendFailure:
		return "SendFailure"
	case KindPeerClosed:
		return "PeerClosed"
	case KindDecodeAnomaly:
		return "DecodeAnomaly"
	default:
		return "Unknown"
	}
}

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a telemetry field that could not be parsed.  The
// field keeps its previous value.
type DecodeError struct {
	Field string // "speed", "battery" or "temperature"
	Token string // offending token, empty when missing
}

func (e *DecodeError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("decode %s: missing value", e.Field)
	}
	return fmt.Sprintf("decode %s: %q is not an integer", e.Field, e.Token)
}

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// PeerClosed wraps a read failure so that it matches [ErrPeerClosed]
// while keeping the underlying cause.
func PeerClosed(addr string, cause error) *NetworkError {
	if cause == nil {
		cause = ErrPeerClosed
	} else {
		cause = fmt.Errorf("%w: %v", ErrPeerClosed, cause)
	}
	return &NetworkError{Op: "read", Addr: addr, Err: cause}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// KindOf maps err onto one of the client's failure classes.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	switch {
	case errors.Is(err, ErrNotConnected):
		return KindNotConnected
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrInvalidCommand):
		return KindInvalidCommand
	case errors.Is(err, ErrPeerClosed):
		return KindPeerClosed
	}

	var de *DecodeError
	if errors.As(err, &de) {
		return KindDecodeAnomaly
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		switch ne.Op {
		case "dial":
			return KindConnectFailure
		case "write":
			return KindSendFailure
		case "read":
			return KindPeerClosed
		}
	}
	var se *SSHError
	if errors.As(err, &se) {
		return KindConnectFailure
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsTimeout reports whether err is a deadline expiry rather than a
// broken connection.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
