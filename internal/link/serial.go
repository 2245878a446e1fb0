package link

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a candidate port. Name is the identifier passed to Open.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// Label is a short human readable description.
func (p PortInfo) Label() string {
	if !p.IsUSB {
		return p.Name
	}
	if p.Product != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.Product)
	}
	return fmt.Sprintf("%s (%s:%s)", p.Name, p.VID, p.PID)
}

// SerialOpener opens a real serial port, 8N1, with timeout as read timeout.
// Stale bytes buffered by the OS are discarded.
func SerialOpener(name string, baud int, timeout time.Duration) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("flush input: %w", err)
	}
	return p, nil
}

// SerialPorts lists serial ports with USB details when the platform provides
// them, falling back to bare names.
func SerialPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		ports := make([]PortInfo, 0, len(details))
		for _, d := range details {
			ports = append(ports, PortInfo{
				Name:         d.Name,
				IsUSB:        d.IsUSB,
				VID:          d.VID,
				PID:          d.PID,
				SerialNumber: d.SerialNumber,
				Product:      d.Product,
			})
		}
		return ports, nil
	}

	names, ferr := serial.GetPortsList()
	if ferr != nil {
		return nil, fmt.Errorf("list ports: %w", ferr)
	}
	ports := make([]PortInfo, 0, len(names))
	for _, n := range names {
		ports = append(ports, PortInfo{Name: n})
	}
	return ports, nil
}

// WithExtraPorts returns a Lister that puts extra ahead of the ports found by
// base. A nil base lists only extra.
func WithExtraPorts(base Lister, extra ...PortInfo) Lister {
	return func() ([]PortInfo, error) {
		if base == nil {
			return extra, nil
		}
		ports, err := base()
		if err != nil {
			return extra, err
		}
		return append(append([]PortInfo{}, extra...), ports...), nil
	}
}
