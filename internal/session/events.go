package session

import "fmt"

// Event is one notification emitted by a [Session].  The set of
// implementations is closed; switch on the concrete type.
type Event interface {
	fmt.Stringer
	event()
}

// Handler consumes session events.  HandleEvent is called from a single
// dispatch goroutine, one event at a time, in emission order.  It may
// call back into the Session but must not call [Session.Close].
type Handler interface {
	HandleEvent(Event)
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(Event)

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev Event) { f(ev) }

// Handlers fans each event out to every handler in order.
type Handlers []Handler

// HandleEvent implements [Handler].
func (hs Handlers) HandleEvent(ev Event) {
	for _, h := range hs {
		h.HandleEvent(ev)
	}
}

// Connected is emitted once the socket is up and the receive loop runs.
type Connected struct {
	Addr string
}

// Disconnected is emitted when the session returns to the disconnected
// state.  Err is nil for an explicit disconnect.
type Disconnected struct {
	Err error
}

// AuthSucceeded is emitted on AUTH_SUCCESS.  The session now holds the
// administrator role.
type AuthSucceeded struct {
	Username string
}

// AuthFailed is emitted on AUTH_FAILED.
type AuthFailed struct{}

// TelemetryUpdated is emitted for every DATA frame.  Err is non-nil
// when some fields could not be parsed and kept their previous value.
type TelemetryUpdated struct {
	Vehicle VehicleState
	Err     error
}

// CommandAck carries the text of an OK frame.
type CommandAck struct {
	Message string
}

// CommandError carries the text of an ERROR frame.
type CommandError struct {
	Message string
}

// UsersUpdated carries the replacement user list of a USERS frame.
type UsersUpdated struct {
	Users []string
}

// RawMessageReceived precedes the specific event of every inbound frame.
type RawMessageReceived struct {
	Raw string
}

// UnrecognizedMessage is emitted for frames with no known prefix.
type UnrecognizedMessage struct {
	Raw string
}

// Error reports a connection-level failure (connect, send, peer closed).
type Error struct {
	Err error
}

func (Connected) event()           {}
func (Disconnected) event()        {}
func (AuthSucceeded) event()       {}
func (AuthFailed) event()          {}
func (TelemetryUpdated) event()    {}
func (CommandAck) event()          {}
func (CommandError) event()        {}
func (UsersUpdated) event()        {}
func (RawMessageReceived) event()  {}
func (UnrecognizedMessage) event() {}
func (Error) event()               {}

func (e Connected) String() string { return "connected to " + e.Addr }

func (e Disconnected) String() string {
	if e.Err != nil {
		return "disconnected: " + e.Err.Error()
	}
	return "disconnected"
}

func (e AuthSucceeded) String() string { return "authenticated as " + e.Username }
func (AuthFailed) String() string      { return "authentication failed" }

func (e TelemetryUpdated) String() string {
	if e.Err != nil {
		return fmt.Sprintf("telemetry %s (partial: %v)", e.Vehicle, e.Err)
	}
	return "telemetry " + e.Vehicle.String()
}

func (e CommandAck) String() string          { return "ok: " + e.Message }
func (e CommandError) String() string        { return "error: " + e.Message }
func (e UsersUpdated) String() string        { return fmt.Sprintf("users %v", e.Users) }
func (e RawMessageReceived) String() string  { return "recv " + e.Raw }
func (e UnrecognizedMessage) String() string { return "unrecognized " + e.Raw }
func (e Error) String() string               { return "error: " + e.Err.Error() }
