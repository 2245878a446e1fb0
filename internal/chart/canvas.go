package chart

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille cells hold a 2x4 dot matrix; dotBits[y][x] is the bit for a dot.
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const brailleBase = 0x2800

// Canvas is a terminal cell grid addressed in braille dots. Each cell keeps
// the style of the last layer that drew into it.
type Canvas struct {
	cols, rows int
	dots       [][]rune
	styles     [][]*lipgloss.Style
	text       [][]rune
}

// NewCanvas creates a cols x rows cell canvas (2*cols x 4*rows dots).
func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{cols: cols, rows: rows}
	c.dots = make([][]rune, rows)
	c.styles = make([][]*lipgloss.Style, rows)
	c.text = make([][]rune, rows)
	for r := 0; r < rows; r++ {
		c.dots[r] = make([]rune, cols)
		c.styles[r] = make([]*lipgloss.Style, cols)
		c.text[r] = make([]rune, cols)
	}
	return c
}

// DotSize returns the canvas size in dots.
func (c *Canvas) DotSize() (w, h int) {
	return c.cols * 2, c.rows * 4
}

// Set lights one dot. Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int, style *lipgloss.Style) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.cols || row >= c.rows {
		return
	}
	c.dots[row][col] |= dotBits[y%4][x%2]
	if style != nil {
		c.styles[row][col] = style
	}
}

// Line draws a segment between two dot positions (Bresenham).
func (c *Canvas) Line(p, q Point, style *lipgloss.Style) {
	if math.IsNaN(p.Y) || math.IsNaN(q.Y) || math.IsInf(p.Y, 0) || math.IsInf(q.Y, 0) {
		return
	}
	x0, y0 := int(math.Round(p.X)), clampInt(p.Y)
	x1, y1 := int(math.Round(q.X)), clampInt(q.Y)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.Set(x0, y0, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Text writes s starting at a cell. Text wins over dots in that cell.
func (c *Canvas) Text(col, row int, s string, style *lipgloss.Style) {
	if row < 0 || row >= c.rows {
		return
	}
	for i, r := range []rune(s) {
		cc := col + i
		if cc < 0 || cc >= c.cols {
			continue
		}
		c.text[row][cc] = r
		c.styles[row][cc] = style
	}
}

// String renders the canvas, one line per row.
func (c *Canvas) String() string {
	var sb strings.Builder
	for r := 0; r < c.rows; r++ {
		for col := 0; col < c.cols; col++ {
			ch := ' '
			switch {
			case c.text[r][col] != 0:
				ch = c.text[r][col]
			case c.dots[r][col] != 0:
				ch = brailleBase + c.dots[r][col]
			}
			if st := c.styles[r][col]; st != nil && ch != ' ' {
				sb.WriteString(st.Render(string(ch)))
			} else {
				sb.WriteRune(ch)
			}
		}
		if r < c.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// clampInt rounds a projected coordinate, keeping far off-screen values in
// int range so line walking stays bounded.
func clampInt(v float64) int {
	const limit = 1 << 12
	return int(math.Round(math.Max(-limit, math.Min(limit, v))))
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
