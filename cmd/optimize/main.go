// Package main searches probe parameters with CMA-ES so that probes circulate
// at a target standoff from the scene obstacles without touching them.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/flatland/config"
)

type options struct {
	configPath string
	outputDir  string
	maxTicks   int
	standoff   float64
	seeds      int
	maxEvals   int
	population int
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&o.outputDir, "output", "", "Output directory for results")
	flag.IntVar(&o.maxTicks, "max-ticks", 3600, "Simulation duration in ticks per run")
	flag.Float64Var(&o.standoff, "standoff", 60, "Target mean probe distance from obstacles")
	flag.IntVar(&o.seeds, "seeds", 3, "Number of seeds per evaluation")
	flag.IntVar(&o.maxEvals, "max-evals", 60, "Maximum number of evaluations")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population size (0 = 4 + 3 ln(dim))")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(o); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.outputDir == "" {
		return errors.New("-output is required")
	}
	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	baseCfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	params := NewParamVector()
	seeds := make([]int64, o.seeds)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, int32(o.maxTicks), seeds, baseCfg, o.standoff)

	logFile, err := os.Create(filepath.Join(o.outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log: %w", err)
	}
	defer logFile.Close()
	tr, err := newTracker(logFile, params)
	if err != nil {
		return err
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			if err := tr.record(raw, fitness); err != nil {
				slog.Error("failed to log evaluation", "error", err)
			}
			slog.Info("evaluation",
				"eval", tr.evals,
				"max_evals", o.maxEvals,
				"fitness", fitness,
				"contact", evaluator.LastContact(),
				"best", tr.bestFitness,
				"eta", tr.remaining(o.maxEvals).Round(time.Second),
			)
			return fitness
		},
	}

	popSize := o.population
	if popSize == 0 {
		popSize = 4 + int(3*math.Log(float64(params.Dim())))
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{FuncEvaluations: o.maxEvals}

	slog.Info("starting CMA-ES",
		"params", params.Dim(),
		"population", popSize,
		"max_evals", o.maxEvals,
		"seeds", o.seeds,
		"ticks", o.maxTicks,
		"standoff", o.standoff,
	)
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))
	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended early", "error", err)
	}

	best := tr.best
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return errors.New("no evaluation completed")
	}

	attrs := []any{"evals", tr.evals, "fitness", tr.bestFitness, "elapsed", time.Since(tr.start).Round(time.Second)}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, best[i])
	}
	slog.Info("optimization complete", attrs...)

	bestCfg := evaluator.copyConfig()
	params.ApplyToConfig(bestCfg, best)
	path := filepath.Join(o.outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(path); err != nil {
		return err
	}
	slog.Info("best config written", "path", path)
	return tr.close()
}

// tracker keeps the best evaluation and appends every evaluation to a CSV log.
type tracker struct {
	w     *csv.Writer
	start time.Time

	evals       int
	best        []float64
	bestFitness float64
}

func newTracker(w io.Writer, params *ParamVector) (*tracker, error) {
	tr := &tracker{
		w:           csv.NewWriter(w),
		start:       time.Now(),
		bestFitness: math.Inf(1),
	}
	header := []string{"eval", "fitness"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := tr.w.Write(header); err != nil {
		return nil, err
	}
	return tr, nil
}

// record logs the clamped parameters actually simulated and their fitness.
func (tr *tracker) record(values []float64, fitness float64) error {
	tr.evals++
	if fitness < tr.bestFitness {
		tr.bestFitness = fitness
		tr.best = append([]float64(nil), values...)
	}

	row := []string{strconv.Itoa(tr.evals), strconv.FormatFloat(fitness, 'f', 6, 64)}
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	if err := tr.w.Write(row); err != nil {
		return err
	}
	tr.w.Flush()
	return tr.w.Error()
}

// remaining estimates the time left from the mean evaluation time so far.
func (tr *tracker) remaining(maxEvals int) time.Duration {
	if tr.evals == 0 || tr.evals >= maxEvals {
		return 0
	}
	per := time.Since(tr.start) / time.Duration(tr.evals)
	return time.Duration(maxEvals-tr.evals) * per
}

func (tr *tracker) close() error {
	tr.w.Flush()
	return tr.w.Error()
}
