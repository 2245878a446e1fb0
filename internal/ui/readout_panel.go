package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"rtdt-monitor.klederson.com/internal/chart"
	"rtdt-monitor.klederson.com/internal/protocol"
)

// Readout is the data shown in the side panel below the port list.
type Readout struct {
	Latest     [len(protocol.Kinds)][len(protocol.Axes)]float64
	MaxPoints  int
	RateMs     int
	RecordPath string
	Rows       int
}

// RenderReadout renders the latest value of every channel and axis.
func RenderReadout(r Readout, width, height int) string {
	innerW := width - 2
	if innerW < 10 {
		innerW = 10
	}
	innerH := height - 2
	if innerH < 3 {
		innerH = 3
	}

	var b strings.Builder
	b.WriteString(StylePanelTitle.Render("LATEST"))
	b.WriteString("\n")
	b.WriteString(StyleSeparator.Render(strings.Repeat("─", innerW)))
	b.WriteString("\n")

	for _, k := range protocol.Kinds {
		b.WriteString(StyleFieldLabel.Render(fmt.Sprintf(" %.5s", k.String())))
		for _, a := range protocol.Axes {
			b.WriteString(chart.AxisStyle(a).Render(fmt.Sprintf(" %8.2f", r.Latest[k][a])))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderField("Window", fmt.Sprintf("%d pts", r.MaxPoints)))
	b.WriteString(renderField("Rate", fmt.Sprintf("%d ms", r.RateMs)))
	if r.RecordPath != "" {
		b.WriteString(StyleRecording.Render(" ● REC "))
		b.WriteString(StyleFieldValue.Render(truncRaw(filepath.Base(r.RecordPath), max(innerW-7, 1))))
		b.WriteString("\n")
		b.WriteString(renderField("Rows", fmt.Sprintf("%d", r.Rows)))
	}

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if len(lines) > innerH {
		lines = lines[:innerH]
	}

	return StylePanelBorder.
		Width(innerW).
		Height(innerH).
		MaxHeight(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderField(label, value string) string {
	return StyleFieldLabel.Render(fmt.Sprintf(" %-8s", label+":")) + StyleFieldValue.Render(value) + "\n"
}
