package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout stacks the chart column next to the side panel, with the
// menu and config bars on top and the status bar at the bottom.
func ComposeLayout(menuBar, configBar, charts, side, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, charts, side)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, configBar, middle, statusBar)
}

// Dims is the size of every region of the screen.
type Dims struct {
	ChartW, ChartH int // one chart panel, borders included
	ChartCols      int // drawable cells inside a chart panel
	ChartRows      int
	SideW, SideH   int
	PortsH         int
	ReadoutH       int
}

// Layout splits a width x height terminal into regions.
func Layout(width, height, minChartRows int) Dims {
	bodyH := max(height-3, 3*(minChartRows+3))

	sideW := min(max(width/4, 26), 40)
	chartW := max(width-sideW, 30)

	chartH := bodyH / 3
	d := Dims{
		ChartW:    chartW,
		ChartH:    chartH,
		ChartCols: chartW - 2,
		ChartRows: max(chartH-3, minChartRows), // border top/bottom + title row
		SideW:     sideW,
		SideH:     chartH * 3,
	}
	d.PortsH = d.SideH / 2
	d.ReadoutH = d.SideH - d.PortsH
	return d
}

// JoinColumn stacks panels top to bottom.
func JoinColumn(panels ...string) string {
	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}
