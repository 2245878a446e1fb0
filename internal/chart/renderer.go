package chart

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"rtdt-monitor.klederson.com/internal/protocol"
)

var (
	colorAxisX = lipgloss.Color("#FF3B3B")
	colorAxisY = lipgloss.Color("#00CC33")
	colorAxisZ = lipgloss.Color("#3B8BFF")
	colorGrid  = lipgloss.Color("#4A4A4A")
	colorLabel = lipgloss.Color("#BBBBBB")

	styleAxis = [...]lipgloss.Style{
		lipgloss.NewStyle().Foreground(colorAxisX),
		lipgloss.NewStyle().Foreground(colorAxisY),
		lipgloss.NewStyle().Foreground(colorAxisZ),
	}
	styleGrid  = lipgloss.NewStyle().Foreground(colorGrid)
	styleLabel = lipgloss.NewStyle().Foreground(colorLabel)
)

// AxisStyle returns the colour used for an axis trace.
func AxisStyle(a protocol.Axis) lipgloss.Style {
	return styleAxis[a]
}

// Render draws one channel's X, Y and Z windows as a strip chart of
// cols x rows terminal cells. labelCols cells on the left carry gridline
// labels; the plot area uses the projector in braille-dot units.
func Render(cols, rows, labelCols int, valueRange float64, x, y, z []float64) string {
	if cols <= labelCols+2 || rows < 1 {
		return ""
	}
	c := NewCanvas(cols, rows)
	w, h := c.DotSize()
	width, height := float64(w), float64(h-1)
	margin := float64(labelCols * 2)

	for _, g := range GridLines(valueRange, height) {
		gy := int(g.Y + 0.5)
		for gx := labelCols * 2; gx < w; gx += 3 {
			c.Set(gx, gy, &styleGrid)
		}
		label := formatLevel(g.Value)
		if len(label) >= labelCols {
			label = label[:labelCols-1]
		}
		row := min(gy/4, rows-1)
		c.Text(labelCols-1-len(label), row, label, &styleLabel)
	}

	for a, series := range [...][]float64{x, y, z} {
		pts := Project(series, valueRange, width, height, margin)
		for i := 1; i < len(pts); i++ {
			c.Line(pts[i-1], pts[i], &styleAxis[a])
		}
		if len(pts) == 1 {
			c.Line(pts[0], pts[0], &styleAxis[a])
		}
	}
	return c.String()
}

func formatLevel(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// RenderViewport draws a channel using the viewport's size, which is held
// in braille-dot units (two dots per cell across, four down).
func RenderViewport(vp *Viewport, kind protocol.ChannelKind, x, y, z []float64) string {
	return Render(int(vp.Width)/2, int(vp.Height)/4, int(vp.LeftMargin)/2, vp.Range(kind), x, y, z)
}
