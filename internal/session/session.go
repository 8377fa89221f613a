// Package session implements the client side of one remote-control
// conversation with the vehicle telemetry server.
//
// A Session owns at most one transport connection at a time and moves
// through Disconnected → Connecting → Connected → Authenticated.  All
// observable state (authentication, role, vehicle telemetry, user list)
// is kept behind one lock; every change is announced as an [Event] on a
// single dispatch goroutine so handlers never race each other.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	tcerr "telectl/internal/errors"
	"telectl/internal/metrics"
	"telectl/internal/protocol"
	"telectl/internal/transport"
	"telectl/util"
)

// State is the connection lifecycle phase.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// Role is the privilege level granted by the server.
type Role int

const (
	RoleNone Role = iota
	RoleObserver
	RoleAdministrator
)

func (r Role) String() string {
	switch r {
	case RoleObserver:
		return "observer"
	case RoleAdministrator:
		return "administrator"
	default:
		return "none"
	}
}

// Options configure a [Session].  Zero values select defaults.
type Options struct {
	// Dialer opens the byte stream.  Defaults to a plain TCP dialer.
	Dialer transport.Dialer

	// Timeout bounds the connect and each receive-loop read.
	Timeout time.Duration

	Logger  *util.Logger
	Metrics *metrics.Collector
	Handler Handler
}

// Snapshot is a consistent copy of the session's observable state.
type Snapshot struct {
	State         State
	Addr          string
	Authenticated bool
	Role          Role
	Username      string
	Vehicle       VehicleState
	Users         []string
}

// Session is safe for concurrent use.
type Session struct {
	dialer  transport.Dialer
	timeout time.Duration
	logger  *util.Logger
	metrics *metrics.Collector
	events  *dispatcher

	mu            sync.Mutex
	phase         State // Disconnected, Connecting or Connected
	conn          *transport.Conn
	authenticated bool
	role          Role
	username      string
	pending       string
	vehicle       VehicleState
	users         []string
	closed        bool
}

// New returns a disconnected session.  Call [Session.Close] when done.
func New(opts Options) *Session {
	d := opts.Dialer
	if d == nil {
		d = &transport.TCPDialer{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Session{
		dialer:  d,
		timeout: opts.Timeout,
		logger:  logger.Named("session"),
		metrics: opts.Metrics,
		events:  newDispatcher(opts.Handler),
		vehicle: DefaultVehicleState(),
		users:   []string{},
	}
}

// Connect opens a connection to host:port and starts the receive loop.
// It fails with [tcerr.ErrAlreadyConnected] unless the session is
// disconnected.  A dial failure leaves the session disconnected and is
// also reported as an [Error] event.
func (s *Session) Connect(ctx context.Context, host string, port int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return tcerr.ErrSessionClosed
	}
	if s.phase != StateDisconnected {
		s.mu.Unlock()
		return tcerr.ErrAlreadyConnected
	}
	s.phase = StateConnecting
	s.mu.Unlock()

	addr := util.FormatAddr(host, port)
	conn, err := transport.Open(ctx, s.dialer, addr, transport.Options{
		Timeout: s.timeout,
		Logger:  s.logger.Named("conn"),
		Metrics: s.metrics,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.phase == StateConnecting {
			s.phase = StateDisconnected
		}
		s.logger.Verbose("connect %s failed: %v", addr, err)
		s.events.push(Error{Err: err})
		return err
	}
	if s.phase != StateConnecting {
		// Disconnect or Close ran while we were dialling.
		conn.Close() //nolint:errcheck
		return tcerr.Wrap("dial", addr, context.Canceled)
	}

	s.phase = StateConnected
	s.conn = conn
	s.resetIdentity()
	s.logger.Verbose("connected to %s", addr)
	s.events.push(Connected{Addr: addr})
	conn.Start(&receiver{s: s, conn: conn})
	return nil
}

// Authenticate sends the credentials.  The outcome arrives later as
// [AuthSucceeded] or [AuthFailed]; until then the session is
// unauthenticated.
func (s *Session) Authenticate(username, password string) error {
	s.mu.Lock()
	conn, err := s.connLocked("authenticate")
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.pending = username
	req := protocol.Auth(s.username, username, password)
	s.mu.Unlock()

	return s.send(conn, req)
}

// RequestTelemetry asks the server for a DATA frame.  Any role may
// request telemetry.
func (s *Session) RequestTelemetry() error {
	return s.request("request telemetry", false, protocol.VerbGetData)
}

// SendVehicleCommand sends one of the fixed control verbs.  Unknown
// commands fail with [tcerr.ErrInvalidCommand] for every role and are
// never written; valid commands need the administrator role.
func (s *Session) SendVehicleCommand(cmd string) error {
	c, err := protocol.ParseVehicleCommand(cmd)
	if err != nil {
		return err
	}
	return s.request("send command", true, protocol.VerbSendCmd, string(c))
}

// RequestUserList asks for the connected users.  Administrator only.
func (s *Session) RequestUserList() error {
	return s.request("list users", true, protocol.VerbListUsers)
}

// RequestRecharge asks the server to refill the battery.  Administrator
// only.
func (s *Session) RequestRecharge() error {
	return s.request("recharge", true, protocol.VerbRecharge)
}

func (s *Session) request(op string, admin bool, verb protocol.Verb, args ...string) error {
	s.mu.Lock()
	conn, err := s.connLocked(op)
	if err == nil && admin && s.role != RoleAdministrator {
		err = fmt.Errorf("%s: %w", op, tcerr.ErrPermissionDenied)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	req := protocol.NewRequest(verb, s.username, args...)
	s.mu.Unlock()

	return s.send(conn, req)
}

func (s *Session) connLocked(op string) (*transport.Conn, error) {
	if s.phase != StateConnected || s.conn == nil {
		return nil, fmt.Errorf("%s: %w", op, tcerr.ErrNotConnected)
	}
	return s.conn, nil
}

// send writes one request.  A write failure is reported as an [Error]
// event; the receive loop notices the broken socket and tears down.
func (s *Session) send(conn *transport.Conn, req protocol.Request) error {
	s.logger.Debug("send %s", req.Verb)
	if err := conn.Write(req.Encode()); err != nil {
		s.mu.Lock()
		if s.conn == conn {
			s.events.push(Error{Err: err})
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Disconnect sends a best-effort DISCONNECT, closes the connection and
// waits for the receive loop to exit.  It is a no-op when already
// disconnected.  Vehicle telemetry is retained.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	switch s.phase {
	case StateDisconnected:
		s.mu.Unlock()
		return nil
	case StateConnecting:
		s.phase = StateDisconnected
		s.mu.Unlock()
		return nil
	}
	conn := s.conn
	req := protocol.NewRequest(protocol.VerbDisconnect, s.username)
	s.teardownLocked()
	s.events.push(Disconnected{})
	s.mu.Unlock()

	if err := conn.Write(req.Encode()); err != nil {
		s.logger.Debug("disconnect notice not sent: %v", err)
	}
	err := conn.Close()
	<-conn.Done()
	s.logger.Verbose("disconnected from %s", conn.Addr())
	return err
}

// Close disconnects, releases the dialer and stops event delivery after
// the queued events have been handled.  It must not be called from a
// [Handler].
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.Disconnect()
	if derr := s.dialer.Close(); err == nil {
		err = derr
	}
	s.events.close()
	return err
}

func (s *Session) teardownLocked() {
	s.phase = StateDisconnected
	s.conn = nil
	s.resetIdentity()
}

func (s *Session) resetIdentity() {
	s.authenticated = false
	s.role = RoleNone
	s.username = ""
	s.pending = ""
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.phase == StateConnected && s.authenticated {
		return StateAuthenticated
	}
	return s.phase
}

// IsConnected reports whether a connection is established.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == StateConnected
}

// IsAuthenticated reports whether the server accepted our credentials.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Role returns the role granted by the server: Administrator after
// AUTH_SUCCESS, None otherwise.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// EffectiveRole is Role, except that a connected session without
// administrator rights acts as an Observer.
func (s *Session) EffectiveRole() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == RoleNone && s.phase == StateConnected {
		return RoleObserver
	}
	return s.role
}

// Username returns the confirmed username, empty before AUTH_SUCCESS.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Vehicle returns the latest telemetry.
func (s *Session) Vehicle() VehicleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicle
}

// Users returns a copy of the last reported user list.
func (s *Session) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.users...)
}

// Snapshot returns all observable state under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:         s.stateLocked(),
		Authenticated: s.authenticated,
		Role:          s.role,
		Username:      s.username,
		Vehicle:       s.vehicle,
		Users:         append([]string{}, s.users...),
	}
	if s.conn != nil {
		snap.Addr = s.conn.Addr()
	}
	return snap
}
