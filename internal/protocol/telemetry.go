package protocol

import (
	"strconv"
	"strings"

	tcerr "telectl/internal/errors"
)

// Reading is the parsed payload of a DATA frame.  Each numeric field is
// parsed on its own; a field whose token is missing or not an integer
// has its Has flag cleared and must not be applied.
type Reading struct {
	Speed       int
	Battery     int
	Temperature int
	Direction   string

	HasSpeed       bool
	HasBattery     bool
	HasTemperature bool
}

// DefaultDirection is assumed when a DATA frame omits the direction.
const DefaultDirection = "STRAIGHT"

// ParseReading parses "<speed> <battery> <temp> [direction]".  Only
// the first line of body is considered.  The returned error joins one
// [tcerr.DecodeError] per unusable field; the Reading is still valid
// for every field whose Has flag is set.
func ParseReading(body string) (Reading, error) {
	line, _, _ := strings.Cut(body, "\n")
	tokens := strings.Fields(line)

	var (
		r    Reading
		errs []error
	)
	field := func(i int, name string, dst *int, ok *bool) {
		if i >= len(tokens) {
			errs = append(errs, &tcerr.DecodeError{Field: name})
			return
		}
		n, err := strconv.Atoi(tokens[i])
		if err != nil {
			errs = append(errs, &tcerr.DecodeError{Field: name, Token: tokens[i]})
			return
		}
		*dst, *ok = n, true
	}
	field(0, "speed", &r.Speed, &r.HasSpeed)
	field(1, "battery", &r.Battery, &r.HasBattery)
	field(2, "temperature", &r.Temperature, &r.HasTemperature)

	r.Direction = DefaultDirection
	if len(tokens) > 3 {
		r.Direction = tokens[3]
	}
	return r, tcerr.Join(errs...)
}
