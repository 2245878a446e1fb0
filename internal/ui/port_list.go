package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"rtdt-monitor.klederson.com/internal/link"
)

// RenderPortList renders the serial port selector.
// cursor is the highlighted row; current is the port the link is open on.
func RenderPortList(ports []link.PortInfo, width, height, cursor int, current string) string {
	innerW := width - 2
	if innerW < 10 {
		innerW = 10
	}
	innerH := height - 2
	if innerH < 3 {
		innerH = 3
	}

	title := StylePanelTitle.Render(fmt.Sprintf("PORTS (%d)", len(ports)))
	sep := StyleSeparator.Render(strings.Repeat("─", innerW))

	var lines []string
	lines = append(lines, title, sep)

	maxRows := innerH - 3 // title + sep + help
	if maxRows < 1 {
		maxRows = 1
	}
	if len(ports) == 0 {
		lines = append(lines, StyleHelp.Render("  no ports found"))
	}

	// Keep the cursor row visible
	start := 0
	if cursor >= maxRows {
		start = cursor - maxRows + 1
	}
	end := min(start+maxRows, len(ports))

	for i := start; i < end; i++ {
		p := ports[i]
		mark := "  "
		if p.Name == current {
			mark = "● "
		}
		row := mark + p.Label()

		if i == cursor {
			prefix := ">>"
			raw := truncRaw(prefix+row, innerW)
			lines = append(lines, cursorRowSty.Width(innerW).Render(raw))
		} else {
			raw := truncRaw("  "+row, innerW)
			sty := StylePortName
			if !p.IsUSB && p.Name != current {
				sty = StylePortDetail
			}
			lines = append(lines, sty.Render(raw))
		}
	}

	for len(lines) < innerH-1 {
		lines = append(lines, "")
	}
	lines = append(lines, StyleHelp.Render(truncRaw(" [↑↓] select  [P] refresh", innerW)))

	// Hard-clamp to exactly innerH lines
	if len(lines) > innerH {
		lines = lines[:innerH]
	}

	return StylePanelBorder.
		Width(innerW).
		Height(innerH).
		MaxHeight(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// truncRaw truncates a plain (unstyled) string to maxW runes.
func truncRaw(s string, maxW int) string {
	r := []rune(s)
	if len(r) <= maxW {
		return s
	}
	if maxW <= 1 {
		return string(r[:maxW])
	}
	return string(r[:maxW-1]) + "…"
}
