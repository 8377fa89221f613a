package session

import (
	"fmt"

	"telectl/internal/protocol"
)

// Direction is the server-reported heading.  Values other than the
// known constants are kept as received.
type Direction string

const (
	Straight Direction = "STRAIGHT"
	Left     Direction = "LEFT"
	Right    Direction = "RIGHT"
)

// Known reports whether d is one of the documented headings.
func (d Direction) Known() bool {
	return d == Straight || d == Left || d == Right
}

// VehicleState is the last telemetry reported by the server.  Speed and
// Battery are always within [0,100].
type VehicleState struct {
	Speed       int
	Battery     int
	Temperature int
	Direction   Direction
}

// DefaultVehicleState is the state before any DATA frame arrives.
func DefaultVehicleState() VehicleState {
	return VehicleState{Speed: 0, Battery: 100, Temperature: 20, Direction: Straight}
}

// Apply merges a parsed reading.  Fields the reading could not parse
// keep their current value; speed and battery are clamped.
func (v *VehicleState) Apply(r protocol.Reading) {
	if r.HasSpeed {
		v.Speed = clampPercent(r.Speed)
	}
	if r.HasBattery {
		v.Battery = clampPercent(r.Battery)
	}
	if r.HasTemperature {
		v.Temperature = r.Temperature
	}
	if r.Direction != "" {
		v.Direction = Direction(r.Direction)
	}
}

func (v VehicleState) String() string {
	return fmt.Sprintf("speed=%d km/h battery=%d%% temp=%d°C dir=%s",
		v.Speed, v.Battery, v.Temperature, v.Direction)
}

func clampPercent(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
