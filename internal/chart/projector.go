package chart

import "rtdt-monitor.klederson.com/internal/protocol"

// Point is a screen-space coordinate.
type Point struct {
	X, Y float64
}

// GridLine is a horizontal reference line at a value level.
type GridLine struct {
	Value float64
	Y     float64
}

// Project maps a window of values to screen coordinates. Sample i of N sits
// at leftMargin + i*(width-leftMargin)/N; value 0 is the vertical centre and
// +/-valueRange the top and bottom edges. Values beyond the range land
// outside the viewport; nothing is clamped. A non-positive range yields nil.
func Project(values []float64, valueRange, width, height, leftMargin float64) []Point {
	n := len(values)
	if n == 0 || valueRange <= 0 {
		return nil
	}
	step := (width - leftMargin) / float64(n)
	pts := make([]Point, n)
	for i, v := range values {
		pts[i] = Point{
			X: leftMargin + float64(i)*step,
			Y: ValueToY(v, valueRange, height),
		}
	}
	return pts
}

// ValueToY is the vertical part of Project.
func ValueToY(v, valueRange, height float64) float64 {
	half := height / 2
	return half - (v/valueRange)*half
}

// GridLines returns the five fixed levels -r, -r/2, 0, r/2, r.
func GridLines(valueRange, height float64) []GridLine {
	if valueRange <= 0 {
		return nil
	}
	levels := [...]float64{-valueRange, -valueRange / 2, 0, valueRange / 2, valueRange}
	lines := make([]GridLine, len(levels))
	for i, v := range levels {
		lines[i] = GridLine{Value: v, Y: ValueToY(v, valueRange, height)}
	}
	return lines
}

// Viewport is the drawing area shared by the three charts plus the value
// range of each channel.
type Viewport struct {
	Width      float64
	Height     float64
	LeftMargin float64
	Ranges     map[protocol.ChannelKind]float64
}

// NewViewport creates a viewport with the given per-channel ranges.
func NewViewport(width, height, leftMargin float64, ranges map[protocol.ChannelKind]float64) *Viewport {
	r := make(map[protocol.ChannelKind]float64, len(ranges))
	for k, v := range ranges {
		r[k] = v
	}
	return &Viewport{Width: width, Height: height, LeftMargin: leftMargin, Ranges: r}
}

// Resize changes the drawing area. Buffered data is untouched; the next
// projection uses the new size. Non-positive sizes are ignored.
func (v *Viewport) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	v.Width = width
	v.Height = height
}

// Range returns the symmetric value range of a channel.
func (v *Viewport) Range(kind protocol.ChannelKind) float64 {
	return v.Ranges[kind]
}

// Project projects values of a channel onto this viewport.
func (v *Viewport) Project(kind protocol.ChannelKind, values []float64) []Point {
	return Project(values, v.Range(kind), v.Width, v.Height, v.LeftMargin)
}

// GridLines returns the gridlines of a channel on this viewport.
func (v *Viewport) GridLines(kind protocol.ChannelKind) []GridLine {
	return GridLines(v.Range(kind), v.Height)
}
