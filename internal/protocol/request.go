// Package protocol implements the text wire format spoken with the
// vehicle telemetry server.
//
// Requests are CRLF-terminated header blocks closed by a blank line:
//
//	<VERB>: <args>\r\n
//	USER: <username>\r\n
//	TIMESTAMP: <YYYY-MM-DD HH:MM:SS>\r\n
//	\r\n
//
// Server frames carry no delimiter guarantee; whatever one read returns
// is decoded as one frame by [Decode].
package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	tcerr "telectl/internal/errors"
)

// TimestampLayout is the request TIMESTAMP header format.
const TimestampLayout = "2006-01-02 15:04:05"

const crlf = "\r\n"

// Verb names a request kind.
type Verb string

const (
	VerbAuth       Verb = "AUTH"
	VerbGetData    Verb = "GET_DATA"
	VerbSendCmd    Verb = "SEND_CMD"
	VerbListUsers  Verb = "LIST_USERS"
	VerbRecharge   Verb = "RECHARGE"
	VerbDisconnect Verb = "DISCONNECT"
)

// Known reports whether v is one of the verbs the server understands.
func (v Verb) Known() bool {
	switch v {
	case VerbAuth, VerbGetData, VerbSendCmd, VerbListUsers, VerbRecharge, VerbDisconnect:
		return true
	}
	return false
}

// VehicleCommand is an administrator control verb carried by SEND_CMD.
type VehicleCommand string

const (
	SpeedUp   VehicleCommand = "SPEED_UP"
	SlowDown  VehicleCommand = "SLOW_DOWN"
	TurnLeft  VehicleCommand = "TURN_LEFT"
	TurnRight VehicleCommand = "TURN_RIGHT"
)

// VehicleCommands lists every accepted vehicle command.
func VehicleCommands() []VehicleCommand {
	return []VehicleCommand{SpeedUp, SlowDown, TurnLeft, TurnRight}
}

// Valid reports whether c belongs to the fixed command set.  Matching
// is case-sensitive.
func (c VehicleCommand) Valid() bool {
	switch c {
	case SpeedUp, SlowDown, TurnLeft, TurnRight:
		return true
	}
	return false
}

// ParseVehicleCommand validates s against the command set.
func ParseVehicleCommand(s string) (VehicleCommand, error) {
	c := VehicleCommand(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", tcerr.ErrInvalidCommand, s)
	}
	return c, nil
}

// Request is one outbound command.  It is not retained after encoding.
type Request struct {
	Verb Verb
	Args []string
	User string
	Time time.Time
}

// NewRequest stamps a request with the local wall clock.
func NewRequest(verb Verb, user string, args ...string) Request {
	return Request{Verb: verb, Args: args, User: user, Time: time.Now()}
}

// Auth builds an AUTH request.  The USER header carries the confirmed
// session user, which may still be empty.
func Auth(sessionUser, username, password string) Request {
	return NewRequest(VerbAuth, sessionUser, username, password)
}

// Encode renders the request in wire form.  The verb line always ends
// with a colon, even without arguments.
func (r Request) Encode() []byte {
	var b bytes.Buffer
	b.WriteString(string(r.Verb))
	b.WriteByte(':')
	if len(r.Args) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(r.Args, " "))
	}
	b.WriteString(crlf)
	b.WriteString("USER: ")
	b.WriteString(r.User)
	b.WriteString(crlf)
	b.WriteString("TIMESTAMP: ")
	b.WriteString(r.Time.Format(TimestampLayout))
	b.WriteString(crlf)
	b.WriteString(crlf)
	return b.Bytes()
}

// ParseRequest decodes one request block.  It is the server-side view
// of [Request.Encode] and is used by test peers.
func ParseRequest(data []byte) (Request, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var (
		req     Request
		sawVerb bool
	)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			if sawVerb {
				break
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return Request{}, fmt.Errorf("protocol: malformed line %q", line)
		}
		value = strings.TrimPrefix(value, " ")
		if !sawVerb {
			req.Verb = Verb(name)
			req.Args = strings.Fields(value)
			sawVerb = true
			continue
		}
		switch name {
		case "USER":
			req.User = value
		case "TIMESTAMP":
			ts, err := time.ParseInLocation(TimestampLayout, value, time.Local)
			if err != nil {
				return Request{}, fmt.Errorf("protocol: timestamp: %w", err)
			}
			req.Time = ts
		}
	}
	if err := sc.Err(); err != nil {
		return Request{}, fmt.Errorf("protocol: %w", err)
	}
	if !sawVerb {
		return Request{}, fmt.Errorf("protocol: empty request")
	}
	return req, nil
}
