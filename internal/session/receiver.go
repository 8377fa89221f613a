package session

import (
	"telectl/internal/protocol"
	"telectl/internal/transport"
)

// receiver binds one connection's receive loop to the session.  Frames
// from a connection that is no longer current are dropped.
type receiver struct {
	s    *Session
	conn *transport.Conn
}

func (r *receiver) Receive(data []byte) {
	r.s.handleFrame(r.conn, protocol.Decode(data))
}

func (r *receiver) Closed(err error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != r.conn {
		return
	}
	s.teardownLocked()
	s.logger.Verbose("connection lost: %v", err)
	s.events.push(Error{Err: err}, Disconnected{Err: err})
}

// handleFrame applies one server frame.  Events are queued while the
// lock is held so their order matches the order of state changes.
func (s *Session) handleFrame(conn *transport.Conn, f protocol.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		s.logger.Debug("dropping frame from stale connection: %q", f.Raw)
		return
	}
	s.logger.Debug("recv %s: %q", f.Kind, f.Raw)
	s.events.push(RawMessageReceived{Raw: f.Raw})

	switch f.Kind {
	case protocol.KindAuthSuccess:
		s.authenticated = true
		s.role = RoleAdministrator
		s.username = s.pending
		s.metrics.AuthResult(true)
		s.logger.Verbose("authenticated as %q", s.username)
		s.events.push(AuthSucceeded{Username: s.username})

	case protocol.KindAuthFailed:
		s.authenticated = false
		s.role = RoleNone
		s.username = ""
		s.metrics.AuthResult(false)
		s.logger.Verbose("authentication rejected")
		s.events.push(AuthFailed{})

	case protocol.KindData:
		r, err := protocol.ParseReading(f.Body)
		if err != nil {
			s.logger.Warn("telemetry %q: %v", f.FirstLine(), err)
			s.metrics.DecodeAnomaly()
		}
		s.vehicle.Apply(r)
		s.events.push(TelemetryUpdated{Vehicle: s.vehicle, Err: err})

	case protocol.KindOK:
		s.events.push(CommandAck{Message: f.Body})

	case protocol.KindError:
		s.events.push(CommandError{Message: f.Body})

	case protocol.KindUsers:
		s.users = protocol.ParseUsers(f.Body)
		s.events.push(UsersUpdated{Users: append([]string{}, s.users...)})

	default:
		s.events.push(UnrecognizedMessage{Raw: f.Raw})
	}
}
