package protocol

import "time"

// ChannelKind identifies one of the three measurement streams.
type ChannelKind int

const (
	Acceleration ChannelKind = iota
	Velocity
	Displacement
)

// Kinds lists every channel in decoder probe order.
var Kinds = [...]ChannelKind{Acceleration, Velocity, Displacement}

func (k ChannelKind) String() string {
	switch k {
	case Velocity:
		return "Velocity"
	case Displacement:
		return "Displacement"
	default:
		return "Acceleration"
	}
}

// Marker returns the literal that tags this channel on the wire.
func (k ChannelKind) Marker() string {
	return k.String() + ":"
}

// Axis indexes the three components of a sample.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists every axis in wire order.
var Axes = [...]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "x"
	}
}

// Sample is one decoded telemetry reading.
type Sample struct {
	Kind       ChannelKind
	X, Y, Z    float64
	ReceivedAt time.Time // monotonic reading taken at decode time
}

// Value returns the component for axis a.
func (s Sample) Value(a Axis) float64 {
	switch a {
	case AxisY:
		return s.Y
	case AxisZ:
		return s.Z
	default:
		return s.X
	}
}
