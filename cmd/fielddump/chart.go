package main

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pthm-cable/flatland/field"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// chartData lists every stride-th node of one grid as [x, y, value] points
// and returns the value range.
func chartData(g *fieldGrid) (data []opts.ScatterData, lo, hi float64) {
	cols, rows := g.Dims()
	data = make([]opts.ScatterData, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.Z(c, r)
			if len(data) == 0 || v < lo {
				lo = v
			}
			if len(data) == 0 || v > hi {
				hi = v
			}
			data = append(data, opts.ScatterData{Value: []interface{}{g.X(c), g.Y(r), v}})
		}
	}
	return data, lo, hi
}

// writeChart renders one grid of f as an interactive HTML scatter chart.
func writeChart(path string, f *field.Field, grid string, stride int) error {
	if f.IsEmpty() {
		return fmt.Errorf("rendering chart: field is empty")
	}
	g, err := newFieldGrid(f, grid, stride)
	if err != nil {
		return err
	}
	data, lo, hi := chartData(g)
	if lo == hi {
		hi = lo + 1
	}

	r := f.Region()
	origin := r.Origin()
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Obstacle field", Theme: "dark", Width: "1200px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: grid, Subtitle: fmt.Sprintf("obstacles=%d points=%d stride=%d", f.ObstacleCount(), len(data), g.stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: origin.X, Max: r.Center.X + r.HalfExtents.X, Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: origin.Y, Max: r.Center.Y + r.HalfExtents.Y, Name: "y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries(grid, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := scatter.Render(out); err != nil {
		out.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return out.Close()
}
