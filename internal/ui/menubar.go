package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"rtdt-monitor.klederson.com/internal/config"
	"rtdt-monitor.klederson.com/internal/link"
	"rtdt-monitor.klederson.com/internal/session"
)

type menuKey struct{ key, label string }

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, state link.ConnectionState, run session.RunState) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []menuKey{{"C", "onnect"}}
	if state != link.Disconnected {
		keys = []menuKey{{"C", " Disconnect"}}
	}
	if run == session.Running {
		keys = append(keys, menuKey{"Spc", " Stop"})
	} else {
		keys = append(keys, menuKey{"Spc", " Start"})
	}
	keys = append(keys,
		menuKey{"X", " Reset"},
		menuKey{"[ ]", " Rate"},
		menuKey{"N", "oise"},
		menuKey{"M", "PU"},
		menuKey{"R", "ecord"},
		menuKey{"E", "xport"},
		menuKey{"Q", "uit"},
	)

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	left := StyleMenuKey.Render(title) + menu
	right := renderConnection(state) + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderConnection(state link.ConnectionState) string {
	switch state {
	case link.Connected:
		return StyleConnected.Render("CONNECTED")
	case link.Connecting:
		return StyleConnecting.Render("CONNECTING")
	default:
		return StyleDisconnected.Render("DISCONNECTED")
	}
}
