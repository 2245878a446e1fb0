package ui

import "github.com/charmbracelet/lipgloss"

// Matrix color palette
var (
	ColorMatrixGreen  = lipgloss.Color("#00FF41")
	ColorGreen        = lipgloss.Color("#00CC33")
	ColorMidGreen     = lipgloss.Color("#008F11")
	ColorDimGreen     = lipgloss.Color("#004A0A")
	ColorBorderBright = lipgloss.Color("#00FF41")
	ColorBorderNorm   = lipgloss.Color("#00AA22")
	ColorError        = lipgloss.Color("#FF3300")
	ColorWarning      = lipgloss.Color("#FFAA00")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorGreen).
			Padding(0, 1)

	StyleConnected = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleConnecting = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StyleDisconnected = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	StyleRunning = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleIdle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderBright)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleFieldLabel = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleFieldValue = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleFieldFocus = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(ColorMatrixGreen).
			Bold(true)

	StylePortName = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen)

	StylePortDetail = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleSeparator = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleMessage = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleMessageError = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	StyleRecording = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)
)

// Cursor row style: black text on bright green = unmissable highlight
var cursorRowSty = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#000000")).
	Background(ColorMatrixGreen).
	Bold(true)
