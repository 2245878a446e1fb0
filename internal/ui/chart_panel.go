package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"rtdt-monitor.klederson.com/internal/chart"
	"rtdt-monitor.klederson.com/internal/protocol"
)

// RenderChartPanel wraps a rendered strip chart in a bordered panel with
// a title row carrying the channel name, its range and the axis legend.
func RenderChartPanel(width, height int, kind protocol.ChannelKind, valueRange float64, content string) string {
	title := StylePanelTitle.Render(kind.String()) +
		StyleFieldLabel.Render("±"+strconv.FormatFloat(valueRange, 'g', -1, 64))

	legend := ""
	for _, a := range protocol.Axes {
		legend += " " + chart.AxisStyle(a).Render("━ "+a.String())
	}

	inner := width - 2
	gap := inner - lipgloss.Width(title) - lipgloss.Width(legend) - 1
	if gap < 1 {
		gap = 1
		legend = ""
	}
	header := title + lipgloss.NewStyle().Width(gap).Render("") + legend

	body := lipgloss.JoinVertical(lipgloss.Left, header, content)
	return StylePanelBorder.
		Width(inner).
		Height(height - 2).
		MaxHeight(height).
		Render(body)
}
