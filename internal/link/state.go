package link

import (
	"errors"
	"fmt"
)

// ConnectionState is the lifecycle of the physical link.
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Disconnected"
	}
}

var (
	ErrOpenFailed   = errors.New("link: open failed")
	ErrNotConnected = errors.New("link: not connected")
	ErrDropped      = errors.New("link: connection dropped")
)

// OpenError reports why a port could not be opened.
type OpenError struct {
	Port   string
	Reason error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrOpenFailed, e.Port, e.Reason)
}

func (e *OpenError) Unwrap() []error { return []error{ErrOpenFailed, e.Reason} }
