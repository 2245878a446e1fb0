package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"rtdt-monitor.klederson.com/internal/link"
	"rtdt-monitor.klederson.com/internal/session"
)

// Status is everything shown on the bottom bar.
type Status struct {
	State     link.ConnectionState
	Run       session.RunState
	Port      string
	Decoded   uint64
	Rejected  uint64
	Recording bool
	Message   string
	IsError   bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, s Status) string {
	run := StyleIdle.Render("[IDLE]")
	if s.Run == session.Running {
		run = StyleRunning.Render("[RUNNING]")
	}

	port := s.Port
	if port == "" {
		port = "-"
	}
	info := fmt.Sprintf(" %s  Port: %s  Samples: %d  Rejected: %d ",
		s.State, port, s.Decoded, s.Rejected)

	content := run + StyleStatusBar.Foreground(ColorGreen).Render(info)
	if s.Recording {
		content += StyleRecording.Render("REC ")
	}
	if s.Message != "" {
		msgSty := StyleMessage
		if s.IsError {
			msgSty = StyleMessageError
		}
		room := width - lipgloss.Width(content) - 4
		msg := s.Message
		if room < len(msg) {
			msg = truncRaw(msg, max(room, 0))
		}
		content += msgSty.Render(msg)
	}

	gap := width - lipgloss.Width(content) - 2
	if gap < 0 {
		gap = 0
	}
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
