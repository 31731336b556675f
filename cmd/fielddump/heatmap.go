package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pthm-cable/flatland/field"
)

// fieldGrid adapts one field grid to plotter.GridXYZ, keeping every
// stride-th node.
type fieldGrid struct {
	f      *field.Field
	value  func(x, y int) float64
	stride int
	cols   int
	rows   int
}

func newFieldGrid(f *field.Field, grid string, stride int) (*fieldGrid, error) {
	if stride < 1 {
		stride = 1
	}
	g := &fieldGrid{f: f, stride: stride}
	switch grid {
	case "distance":
		g.value = f.DistanceAt
	case "curl":
		g.value = f.CurlAt
	default:
		return nil, fmt.Errorf("unknown grid %q (want distance or curl)", grid)
	}
	r := f.Region()
	g.cols = (r.Width + stride - 1) / stride
	g.rows = (r.Height + stride - 1) / stride
	return g, nil
}

func (g *fieldGrid) Dims() (c, r int) { return g.cols, g.rows }

func (g *fieldGrid) Z(c, r int) float64 { return g.value(c*g.stride, r*g.stride) }

func (g *fieldGrid) X(c int) float64 { return g.f.Region().GridToWorld(c*g.stride, 0).X }

func (g *fieldGrid) Y(r int) float64 { return g.f.Region().GridToWorld(0, r*g.stride).Y }

// writeHeatmap renders one grid of f to a PNG at path.
func writeHeatmap(path string, f *field.Field, grid string, stride int) error {
	if f.IsEmpty() {
		return fmt.Errorf("rendering heatmap: field is empty")
	}
	g, err := newFieldGrid(f, grid, stride)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%d obstacles)", grid, f.ObstacleCount())
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	hm := plotter.NewHeatMap(g, palette.Heat(64, 1))
	p.Add(hm)

	r := f.Region()
	aspect := r.HalfExtents.Y / r.HalfExtents.X
	width := 10 * vg.Inch
	if err := p.Save(width, vg.Length(aspect)*width, path); err != nil {
		return fmt.Errorf("save heatmap: %w", err)
	}
	return nil
}
