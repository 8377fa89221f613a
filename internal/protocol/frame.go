package protocol

import "strings"

// Kind classifies an inbound server frame by its literal prefix.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthSuccess
	KindAuthFailed
	KindData
	KindOK
	KindError
	KindUsers
)

func (k Kind) String() string {
	switch k {
	case KindAuthSuccess:
		return "AUTH_SUCCESS"
	case KindAuthFailed:
		return "AUTH_FAILED"
	case KindData:
		return "DATA"
	case KindOK:
		return "OK"
	case KindError:
		return "ERROR"
	case KindUsers:
		return "USERS"
	default:
		return "UNKNOWN"
	}
}

// prefixes is checked in order; matching is case-sensitive.
var prefixes = []struct {
	text string
	kind Kind
}{
	{"AUTH_SUCCESS", KindAuthSuccess},
	{"AUTH_FAILED", KindAuthFailed},
	{"DATA:", KindData},
	{"OK:", KindOK},
	{"ERROR:", KindError},
	{"USERS:", KindUsers},
}

// Frame is one decoded server message.
type Frame struct {
	Kind Kind
	Raw  string // whole message, surrounding whitespace stripped
	Body string // text after the prefix, trimmed
}

// Decode classifies data as one frame.  Decode never fails: anything
// without a known prefix comes back as [KindUnknown].
func Decode(data []byte) Frame {
	raw := strings.TrimSpace(string(data))
	for _, p := range prefixes {
		if strings.HasPrefix(raw, p.text) {
			return Frame{
				Kind: p.kind,
				Raw:  raw,
				Body: strings.TrimSpace(raw[len(p.text):]),
			}
		}
	}
	return Frame{Kind: KindUnknown, Raw: raw}
}

// FirstLine returns the body up to the first line break.  DATA frames
// are followed by SERVER and TIMESTAMP header lines that carry no
// telemetry.
func (f Frame) FirstLine() string {
	line, _, _ := strings.Cut(f.Body, "\n")
	return strings.TrimSpace(line)
}

// ParseUsers splits a USERS body into entries.  An empty body yields an
// empty, non-nil slice.
func ParseUsers(body string) []string {
	line, _, _ := strings.Cut(body, "\n")
	users := strings.Fields(line)
	if users == nil {
		users = []string{}
	}
	return users
}
