package chart

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"rtdt-monitor.klederson.com/internal/protocol"
)

// Window is the X, Y and Z data of one channel.
type Window struct {
	Kind    protocol.ChannelKind
	X, Y, Z []float64
}

var exportColors = [...]color.RGBA{
	{R: 0xFF, G: 0x3B, B: 0x3B, A: 0xFF},
	{R: 0x00, G: 0xAA, B: 0x22, A: 0xFF},
	{R: 0x3B, G: 0x8B, B: 0xFF, A: 0xFF},
}

// ExportPNG writes the given windows as vertically stacked charts. Each
// chart spans +/- the channel range from the viewport, like the live view.
func ExportPNG(path string, width, height float64, vp *Viewport, windows []Window) error {
	if len(windows) == 0 {
		return fmt.Errorf("export %s: nothing to plot", path)
	}

	plots := make([][]*plot.Plot, len(windows))
	for i, w := range windows {
		p, err := windowPlot(w, vp.Range(w.Kind))
		if err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(vg.Length(width), vg.Length(height))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(windows),
		Cols: 1,
		PadY: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

func windowPlot(w Window, valueRange float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = w.Kind.String()
	p.X.Label.Text = "sample"
	p.Y.Min, p.Y.Max = -valueRange, valueRange
	p.Add(plotter.NewGrid())

	for a, vals := range [...][]float64{w.X, w.Y, w.Z} {
		xys := make(plotter.XYs, len(vals))
		for i, v := range vals {
			xys[i].X = float64(i)
			xys[i].Y = v
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", w.Kind, protocol.Axes[a], err)
		}
		line.Color = exportColors[a]
		p.Add(line)
		p.Legend.Add(protocol.Axes[a].String(), line)
	}
	return p, nil
}
