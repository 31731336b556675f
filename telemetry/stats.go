package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Obstacles int `csv:"obstacles"`

	// Scheduler activity during the window
	Triggers  int `csv:"triggers"`  // snapshots handed to the scheduler
	Coalesced int `csv:"coalesced"` // triggers folded into a queued computation
	Published int `csv:"published"` // fields published to the store

	// Computation duration distribution (milliseconds)
	ComputeMeanMS float64 `csv:"compute_mean_ms"`
	ComputeP50MS  float64 `csv:"compute_p50_ms"`
	ComputeP90MS  float64 `csv:"compute_p90_ms"`

	// Ticks from trigger to publish
	LatencyMeanTicks float64 `csv:"latency_mean_ticks"`
	LatencyP90Ticks  float64 `csv:"latency_p90_ticks"`

	// Probes at window end
	Probes            int     `csv:"probes"`
	ProbesCovered     int     `csv:"probes_covered"`
	ProbeContacts     int     `csv:"probe_contacts"`
	ProbeMeanDistance float64 `csv:"probe_mean_distance"`
	ProbeMeanTravel   float64 `csv:"probe_mean_travel"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution calculates mean and percentiles of values.
func Distribution(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("obstacles", s.Obstacles),
		slog.Int("triggers", s.Triggers),
		slog.Int("coalesced", s.Coalesced),
		slog.Int("published", s.Published),
		slog.Float64("compute_mean_ms", s.ComputeMeanMS),
		slog.Float64("compute_p50_ms", s.ComputeP50MS),
		slog.Float64("compute_p90_ms", s.ComputeP90MS),
		slog.Float64("latency_mean_ticks", s.LatencyMeanTicks),
		slog.Float64("latency_p90_ticks", s.LatencyP90Ticks),
		slog.Int("probes", s.Probes),
		slog.Int("probes_covered", s.ProbesCovered),
		slog.Int("probe_contacts", s.ProbeContacts),
		slog.Float64("probe_mean_distance", s.ProbeMeanDistance),
		slog.Float64("probe_mean_travel", s.ProbeMeanTravel),
	)
}

// LogStats logs the window stats to l.
func (s WindowStats) LogStats(l *slog.Logger) {
	l.Info("stats", "window", s)
}
