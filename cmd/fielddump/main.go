// Package main computes the obstacle field for a configured scene once and
// dumps it as CSV, optionally rendering one grid as a PNG heatmap or an
// interactive HTML chart.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/flatland/config"
	"github.com/pthm-cable/flatland/field"
	"github.com/pthm-cable/flatland/game"
	"github.com/pthm-cable/flatland/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	out := flag.String("out", "-", "CSV output path (- = stdout)")
	stride := flag.Int("stride", 1, "Keep every Nth grid node in each direction")
	pngPath := flag.String("png", "", "Optional heatmap PNG path")
	htmlPath := flag.String("html", "", "Optional interactive chart HTML path")
	grid := flag.String("grid", "distance", "Grid rendered to the heatmap and chart: distance or curl")
	timeout := flag.Duration("timeout", time.Minute, "Maximum time to wait for the computation")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, *out, *stride, *pngPath, *htmlPath, *grid, *timeout); err != nil {
		slog.Error("fielddump failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, out string, stride int, pngPath, htmlPath, grid string, timeout time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// Only the field is wanted.
	cfg.Probes.Count = 0

	f, err := computeField(cfg, timeout)
	if err != nil {
		return err
	}
	r := f.Region()
	slog.Info("field computed",
		"obstacles", f.ObstacleCount(),
		"width", r.Width,
		"height", r.Height,
		"summary", summaryValue(f.Summarize()),
	)

	if err := writeCSV(out, f, stride); err != nil {
		return err
	}
	if pngPath != "" {
		if err := writeHeatmap(pngPath, f, grid, stride); err != nil {
			return err
		}
		slog.Info("heatmap written", "path", pngPath, "grid", grid)
	}
	if htmlPath != "" {
		if err := writeChart(htmlPath, f, grid, stride); err != nil {
			return err
		}
		slog.Info("chart written", "path", htmlPath, "grid", grid)
	}
	return nil
}

// computeField runs one host tick for the configured scene and waits for the
// resulting field.
func computeField(cfg *config.Config, timeout time.Duration) (*field.Field, error) {
	g, err := game.New(cfg, game.Options{Logger: slog.Default()})
	if err != nil {
		return nil, err
	}
	defer g.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g.Update()
	if err := g.Settle(ctx); err != nil {
		return nil, fmt.Errorf("waiting for field: %w", err)
	}
	return g.Store().Field(), nil
}

func writeCSV(path string, f *field.Field, stride int) error {
	if path == "-" {
		return telemetry.WriteFieldCSV(os.Stdout, f, stride)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := telemetry.WriteFieldCSV(file, f, stride); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func summaryValue(s field.Summary) slog.Value {
	return slog.GroupValue(
		slog.Float64("min_distance", s.MinDistance),
		slog.Float64("max_distance", s.MaxDistance),
		slog.Float64("min_curl", s.MinCurl),
		slog.Float64("max_curl", s.MaxCurl),
	)
}
