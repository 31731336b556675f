package telemetry

import (
	"log/slog"

	"github.com/pthm-cable/flatland/field"
)

// ComputeRecord describes one published field computation.
type ComputeRecord struct {
	Tick         int32   `csv:"tick"`
	ID           string  `csv:"id"`
	Obstacles    int     `csv:"obstacles"`
	Triggers     int     `csv:"triggers"`
	Width        int     `csv:"width"`
	Height       int     `csv:"height"`
	DurationMS   float64 `csv:"duration_ms"`
	LatencyTicks int32   `csv:"latency_ticks"`
	MinDistance  float64 `csv:"min_distance"`
	MaxDistance  float64 `csv:"max_distance"`
	MinCurl      float64 `csv:"min_curl"`
	MaxCurl      float64 `csv:"max_curl"`
}

// NewComputeRecord builds a record for a computation published at tick that
// was first triggered latency ticks earlier.
func NewComputeRecord(tick int32, info field.Info, latency int32, sum field.Summary) ComputeRecord {
	return ComputeRecord{
		Tick:         tick,
		ID:           info.ID.String(),
		Obstacles:    info.Obstacles,
		Triggers:     info.Triggers,
		Width:        info.Region.Width,
		Height:       info.Region.Height,
		DurationMS:   float64(info.Duration.Microseconds()) / 1000,
		LatencyTicks: latency,
		MinDistance:  sum.MinDistance,
		MaxDistance:  sum.MaxDistance,
		MinCurl:      sum.MinCurl,
		MaxCurl:      sum.MaxCurl,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (r ComputeRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", int(r.Tick)),
		slog.String("id", r.ID),
		slog.Int("obstacles", r.Obstacles),
		slog.Int("triggers", r.Triggers),
		slog.Float64("duration_ms", r.DurationMS),
		slog.Int("latency_ticks", int(r.LatencyTicks)),
		slog.Float64("min_distance", r.MinDistance),
		slog.Float64("min_curl", r.MinCurl),
		slog.Float64("max_curl", r.MaxCurl),
	)
}
