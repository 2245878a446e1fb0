package app

import (
	"time"

	"rtdt-monitor.klederson.com/internal/link"
)

// TickMsg triggers a frame update.
type TickMsg time.Time

// SampleMsg tells the model new samples are in the store. At most one is
// queued at a time.
type SampleMsg struct{}

// PortsMsg carries a refreshed port list.
type PortsMsg struct {
	Ports []link.PortInfo
}

// ConnectResultMsg reports the end of a connect or disconnect.
type ConnectResultMsg struct {
	Port       string
	Disconnect bool
	Err        error
}

// CommandResultMsg reports the outcome of a device command.
type CommandResultMsg struct {
	Action string
	Err    error
}

// ExportResultMsg reports a finished PNG export.
type ExportResultMsg struct {
	Path string
	Err  error
}
