// Package game hosts the tick loop that keeps the obstacle field current:
// it snapshots the ECS obstacles when they change, hands the snapshot to the
// background scheduler, publishes finished fields and runs the probes that
// consume them.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flatland/config"
	"github.com/pthm-cable/flatland/field"
	"github.com/pthm-cable/flatland/systems"
	"github.com/pthm-cable/flatland/telemetry"
)

// Options configure a Game beyond the loaded config.
type Options struct {
	Logger    *slog.Logger
	Seed      int64
	OutputDir string // empty disables CSV output
	LogStats  bool   // log window and perf stats when a window flushes

	// Compute replaces the field kernel, for tests that need a slow worker.
	Compute field.ComputeFunc
}

// inflight is a computation the host is waiting on.
type inflight struct {
	handle    *field.Pending
	triggered int32 // tick of the first trigger folded into handle
}

// Game holds the complete host state.
type Game struct {
	cfg *config.Config
	log *slog.Logger
	rng *rand.Rand

	world     *ecs.World
	obstacles *systems.ObstacleSystem
	probes    *systems.ProbeSystem

	store     *field.Store
	scheduler *field.Scheduler
	pending   []inflight

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)

	// State
	tick       int32
	published  int
	probeStats systems.ProbeStats
}

// New creates a game from cfg, spawns the configured scene and probes, and
// opens the output directory if one is set.
func New(cfg *config.Config, opts Options) (*Game, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schedOpts := []field.SchedulerOption{field.WithLogger(logger)}
	if opts.Compute != nil {
		schedOpts = append(schedOpts, field.WithComputeFunc(opts.Compute))
	}

	world := ecs.NewWorld()
	store := field.NewStore()

	g := &Game{
		cfg:       cfg,
		log:       logger,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		world:     world,
		obstacles: systems.NewObstacleSystem(world),
		probes: systems.NewProbeSystem(world, store, systems.ProbeParams{
			Speed:     cfg.Probes.Speed,
			Clearance: cfg.Probes.Clearance,
			Repulsion: cfg.Probes.Repulsion,
			Method:    cfg.Derived.Method,
		}),
		store:         store,
		scheduler:     field.NewScheduler(schedOpts...),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Sim.DT),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		logStats:      opts.LogStats,
	}

	if err := g.spawnScene(); err != nil {
		return nil, err
	}
	// An empty scene still gets a field on the first tick.
	g.obstacles.MarkDirty()
	g.spawnProbes()

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("opening output: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return g, nil
}

// SetStatsCallback registers fn to receive every flushed stats window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.statsCallback = fn
}

// Run ticks until ctx is done or maxTicks ticks have run (0 = unlimited).
func (g *Game) Run(ctx context.Context, maxTicks int32) error {
	for maxTicks <= 0 || g.tick < maxTicks {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.Update()
	}
	return nil
}

// Settle waits for outstanding computations and publishes their results
// without advancing the tick. Tools use it to get a current field.
func (g *Game) Settle(ctx context.Context) error {
	if err := g.scheduler.Wait(ctx); err != nil {
		return err
	}
	g.pollComputations()
	return nil
}

// Close dumps the published field to field.csv and flushes output files.
// Running computations are abandoned.
func (g *Game) Close() error {
	var fieldErr error
	if f := g.store.Field(); !f.IsEmpty() {
		fieldErr = g.outputManager.WriteField(f, g.cfg.Telemetry.FieldStride)
	}
	if err := g.outputManager.Close(); err != nil {
		return err
	}
	return fieldErr
}

// StatsWindowTicks returns the number of ticks per telemetry window.
func (g *Game) StatsWindowTicks() int32 {
	return g.collector.WindowDurationTicks()
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 {
	return g.tick
}

// World returns the ECS world holding obstacles and probes.
func (g *Game) World() *ecs.World {
	return g.world
}

// Obstacles returns the obstacle system, for adding or moving obstacles
// between ticks.
func (g *Game) Obstacles() *systems.ObstacleSystem {
	return g.obstacles
}

// Store returns the store serving the published field.
func (g *Game) Store() *field.Store {
	return g.store
}

// Published returns how many fields have been published.
func (g *Game) Published() int {
	return g.published
}

// ProbeStats returns the result of the last probe update.
func (g *Game) ProbeStats() systems.ProbeStats {
	return g.probeStats
}

// Output returns the output manager, nil when output is disabled.
func (g *Game) Output() *telemetry.OutputManager {
	return g.outputManager
}
