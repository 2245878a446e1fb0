package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed matches every decode failure.
var ErrMalformed = errors.New("malformed telemetry line")

// DecodeError describes why a line was rejected.
type DecodeError struct {
	Line   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s: %q", ErrMalformed, e.Reason, e.Line)
}

func (e *DecodeError) Unwrap() error { return ErrMalformed }

const fieldCount = 3

// Decode parses one trimmed telemetry line such as
// "I (1234) Acceleration: 0.01,-0.02,9.81". Markers are probed in Kinds order
// and the first one present in the line wins.
func Decode(line string) (Sample, error) {
	kind, rest, ok := findMarker(line)
	if !ok {
		return Sample{}, &DecodeError{Line: line, Reason: "no channel marker"}
	}

	fields := strings.Split(strings.TrimSpace(rest), ",")
	if len(fields) != fieldCount {
		return Sample{}, &DecodeError{
			Line:   line,
			Reason: fmt.Sprintf("want %d fields, got %d", fieldCount, len(fields)),
		}
	}

	var vals [fieldCount]float64
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if isHexFloat(f) {
			return Sample{}, &DecodeError{
				Line:   line,
				Reason: fmt.Sprintf("field %d: hex notation not accepted", i),
			}
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Sample{}, &DecodeError{
				Line:   line,
				Reason: fmt.Sprintf("field %d: %v", i, err),
			}
		}
		vals[i] = v
	}

	return Sample{
		Kind:       kind,
		X:          vals[0],
		Y:          vals[1],
		Z:          vals[2],
		ReceivedAt: time.Now(),
	}, nil
}

// findMarker returns the payload after the first marker found, up to a
// repeat of that marker.
func findMarker(line string) (ChannelKind, string, bool) {
	for _, k := range Kinds {
		if _, after, ok := strings.Cut(line, k.Marker()); ok {
			payload, _, _ := strings.Cut(after, k.Marker())
			return k, payload, true
		}
	}
	return 0, "", false
}

func isHexFloat(f string) bool {
	f = strings.TrimLeft(f, "+-")
	return len(f) >= 2 && f[0] == '0' && (f[1] == 'x' || f[1] == 'X')
}
