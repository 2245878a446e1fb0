package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field identifies which config input has keyboard focus.
type Field int

const (
	FieldNone Field = iota
	FieldNoise
	FieldMPU
)

// RenderConfigBar renders the device settings row below the menu bar.
// noise and mpu are the rendered text inputs.
func RenderConfigBar(width, rateMs int, noise, mpu string, focus Field) string {
	label := func(s string, f Field) string {
		if focus != FieldNone && focus == f {
			return StyleFieldFocus.Render(s)
		}
		return StyleFieldLabel.Render(s)
	}

	content := label(" Rate:", FieldNone) + " " + StyleFieldValue.Render(fmt.Sprintf("%d ms", rateMs)) +
		"   " + label("Noise floor:", FieldNoise) + " " + noise +
		"   " + label("MPU6050:", FieldMPU) + " " + mpu

	hint := ""
	if focus != FieldNone {
		hint = StyleHelp.Render("[Enter] send  [Esc] cancel ")
	}

	gap := width - lipgloss.Width(content) - lipgloss.Width(hint)
	if gap < 0 {
		gap = 0
	}
	return lipgloss.NewStyle().Width(width).MaxHeight(1).Render(content + strings.Repeat(" ", gap) + hint)
}
