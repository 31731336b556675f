package main

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/flatland/config"
	"github.com/pthm-cable/flatland/game"
	"github.com/pthm-cable/flatland/telemetry"
)

// Fitness weights. Contacts and lost probes dominate standoff error.
const (
	weightStandoff = 1.0
	weightContact  = 4.0
	weightLost     = 2.0

	warmupWindows = 1 // skip the first window while probes settle
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	baseConfig *config.Config
	standoff   float64

	mu          sync.Mutex
	lastContact float64 // contact fraction from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator that rewards probes holding
// standoff distance from the obstacles.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, standoff float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		standoff:   standoff,
	}
}

// LastContact returns the mean contact fraction of the most recent evaluation.
func (fe *FitnessEvaluator) LastContact() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastContact
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	contact float64
}

// Evaluate computes fitness for raw parameter values (lower = better),
// averaged over all seeds. Seeds run in parallel.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows, err := fe.runSimulation(x, s)
			if err != nil {
				slog.Error("simulation failed", "seed", s, "error", err)
				results[idx] = seedResult{fitness: math.Inf(1)}
				return
			}
			results[idx] = fe.score(windows)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalContact float64
	for _, r := range results {
		totalFitness += r.fitness
		totalContact += r.contact
	}
	n := float64(len(fe.seeds))

	fe.mu.Lock()
	fe.lastContact = totalContact / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless run and returns its stats windows.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) ([]telemetry.WindowStats, error) {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	g, err := game.New(cfg, game.Options{
		Seed:   seed,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		return nil, err
	}
	defer g.Close()

	var windows []telemetry.WindowStats
	g.SetStatsCallback(func(s telemetry.WindowStats) {
		windows = append(windows, s)
	})

	// Publish the first field before probes start moving.
	ctx := context.Background()
	g.Update()
	if err := g.Settle(ctx); err != nil {
		return nil, err
	}
	if err := g.Run(ctx, fe.maxTicks); err != nil {
		return nil, err
	}
	return windows, nil
}

// copyConfig creates a copy of the base config safe to modify per run.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Obstacles = append([]config.ObstacleConfig(nil), fe.baseConfig.Obstacles...)
	return &cfg
}

// score turns window stats into a fitness (lower = better): relative
// standoff error plus penalties for probes inside obstacles or outside the
// field.
func (fe *FitnessEvaluator) score(windows []telemetry.WindowStats) seedResult {
	if len(windows) <= warmupWindows {
		return seedResult{fitness: math.Inf(1)}
	}

	var standoffSum, contactSum, lostSum float64
	var n int
	for _, w := range windows[warmupWindows:] {
		if w.Probes == 0 {
			continue
		}
		probes := float64(w.Probes)
		standoffSum += math.Abs(w.ProbeMeanDistance-fe.standoff) / fe.standoff
		contactSum += float64(w.ProbeContacts) / probes
		lostSum += float64(w.Probes-w.ProbesCovered) / probes
		n++
	}
	if n == 0 {
		return seedResult{fitness: math.Inf(1)}
	}

	fn := float64(n)
	contact := contactSum / fn
	fitness := weightStandoff*standoffSum/fn +
		weightContact*contact +
		weightLost*lostSum/fn
	return seedResult{fitness: fitness, contact: contact}
}
