package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is an outgoing control instruction. Encode produces the line body
// without terminator; the link appends it.
type Command interface {
	Encode() string
}

type Stop struct{}

type Start struct{}

type Reset struct{}

// SetRate sets the device readout period in milliseconds.
type SetRate struct {
	Millis int
}

// SetAccelNoiseFloor carries the noise floor exactly as the user typed it.
type SetAccelNoiseFloor struct {
	Value string
}

// SetMPUConfig carries "<accel>,<gyro>,<dlpf>,<sampleRateDiv>" verbatim.
type SetMPUConfig struct {
	Value string
}

const (
	cmdStop            = "stop"
	cmdStart           = "start"
	cmdReset           = "reset"
	cmdSetRate         = "set_rate:"
	cmdSetNoiseFloor   = "set_accel_noise_floor:"
	cmdSetMPU6050Confg = "set_mpu6050_config:"
)

func (Stop) Encode() string  { return cmdStop }
func (Start) Encode() string { return cmdStart }
func (Reset) Encode() string { return cmdReset }

func (c SetRate) Encode() string {
	return cmdSetRate + strconv.Itoa(c.Millis)
}

func (c SetAccelNoiseFloor) Encode() string {
	return cmdSetNoiseFloor + c.Value
}

func (c SetMPUConfig) Encode() string {
	return cmdSetMPU6050Confg + c.Value
}

// Encode is shorthand for cmd.Encode. No escaping or range checks are applied.
func Encode(cmd Command) string {
	return cmd.Encode()
}

// ParseCommand is the device-side inverse of Encode. Prefix matching follows
// the firmware's command listener, so trailing garbage after a bare keyword is
// tolerated.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case strings.HasPrefix(line, cmdReset):
		return Reset{}, nil
	case strings.HasPrefix(line, cmdSetRate):
		ms, err := strconv.Atoi(strings.TrimSpace(line[len(cmdSetRate):]))
		if err != nil {
			return nil, fmt.Errorf("set_rate %q: %w", line, err)
		}
		return SetRate{Millis: ms}, nil
	case strings.HasPrefix(line, cmdSetNoiseFloor):
		return SetAccelNoiseFloor{Value: line[len(cmdSetNoiseFloor):]}, nil
	case strings.HasPrefix(line, cmdSetMPU6050Confg):
		return SetMPUConfig{Value: line[len(cmdSetMPU6050Confg):]}, nil
	case strings.HasPrefix(line, cmdStart):
		return Start{}, nil
	case strings.HasPrefix(line, cmdStop):
		return Stop{}, nil
	}
	return nil, fmt.Errorf("unknown command %q", line)
}

// MPUConfig is the parsed form of SetMPUConfig, as the device reads it.
type MPUConfig struct {
	AccelRange, GyroRange, DLPF, SampleRateDiv int
}

// ParseMPUConfig parses four comma separated integers. Only the device side
// uses it; the monitor never validates before sending.
func ParseMPUConfig(raw string) (MPUConfig, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return MPUConfig{}, fmt.Errorf("mpu6050 config %q: want 4 fields, got %d", raw, len(parts))
	}
	var vals [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return MPUConfig{}, fmt.Errorf("mpu6050 config %q: field %d: %w", raw, i, err)
		}
		vals[i] = v
	}
	return MPUConfig{vals[0], vals[1], vals[2], vals[3]}, nil
}
