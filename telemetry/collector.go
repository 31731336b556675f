package telemetry

import (
	"math"

	"github.com/pthm-cable/flatland/systems"
)

// Collector accumulates scheduler events within time windows and produces
// WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	windowStartTick int32

	// Event counters for current window
	triggers  int
	coalesced int
	computeMS []float64
	latencies []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(math.Round(windowDurationSec / dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordTrigger records a snapshot handed to the scheduler. coalesced is
// true when it replaced the request of an already queued computation.
func (c *Collector) RecordTrigger(coalesced bool) {
	c.triggers++
	if coalesced {
		c.coalesced++
	}
}

// RecordPublish records a published field with its computation time and the
// number of ticks between its first trigger and publication.
func (c *Collector) RecordPublish(r ComputeRecord) {
	c.computeMS = append(c.computeMS, r.DurationMS)
	c.latencies = append(c.latencies, float64(r.LatencyTicks))
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, obstacles int, probes systems.ProbeStats) WindowStats {
	computeMean, _, computeP50, computeP90 := Distribution(c.computeMS)
	latencyMean, _, _, latencyP90 := Distribution(c.latencies)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Obstacles: obstacles,

		Triggers:  c.triggers,
		Coalesced: c.coalesced,
		Published: len(c.computeMS),

		ComputeMeanMS: computeMean,
		ComputeP50MS:  computeP50,
		ComputeP90MS:  computeP90,

		LatencyMeanTicks: latencyMean,
		LatencyP90Ticks:  latencyP90,

		Probes:            probes.Probes,
		ProbesCovered:     probes.Covered,
		ProbeContacts:     probes.Contacts,
		ProbeMeanDistance: probes.MeanDistance,
		ProbeMeanTravel:   probes.MeanTravel,
	}

	c.windowStartTick = currentTick
	c.triggers = 0
	c.coalesced = 0
	c.computeMS = c.computeMS[:0]
	c.latencies = c.latencies[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
