package game

import (
	"github.com/pthm-cable/flatland/telemetry"
)

// Update runs one tick. It never waits for a field computation.
func (g *Game) Update() {
	dt := g.cfg.Sim.DT
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseObstacles)
	g.obstacles.Update(dt)

	g.perfCollector.StartPhase(telemetry.PhaseTrigger)
	g.triggerIfDirty()

	g.perfCollector.StartPhase(telemetry.PhasePoll)
	g.pollComputations()

	g.perfCollector.StartPhase(telemetry.PhaseProbes)
	g.probeStats = g.probes.Update(dt)

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// triggerIfDirty hands a fresh obstacle snapshot to the scheduler when the
// obstacle set changed since the last trigger.
func (g *Game) triggerIfDirty() {
	if !g.obstacles.Dirty() {
		return
	}
	g.obstacles.ClearDirty()

	snap := g.obstacles.Snapshot()
	h, err := g.scheduler.Trigger(snap, g.cfg.Derived.Region)
	if err != nil {
		g.log.Error("field trigger rejected", "tick", g.tick, "error", err)
		return
	}

	coalesced := false
	for _, p := range g.pending {
		if p.handle == h {
			coalesced = true
			break
		}
	}
	if !coalesced {
		g.pending = append(g.pending, inflight{handle: h, triggered: g.tick})
	} else if g.cfg.Scheduler.LogCoalesced {
		g.log.Info("field trigger coalesced", "tick", g.tick, "id", h.ID(), "obstacles", snap.Len())
	}
	g.collector.RecordTrigger(coalesced)
}

// pollComputations publishes every finished computation. Handles finish in
// trigger order, so the newest finished field is published last.
func (g *Game) pollComputations() {
	kept := g.pending[:0]
	for _, p := range g.pending {
		f, ok := g.scheduler.Poll(p.handle)
		if !ok {
			kept = append(kept, p)
			continue
		}
		g.store.Publish(f)
		g.published++

		rec := telemetry.NewComputeRecord(g.tick, g.scheduler.Info(p.handle), g.tick-p.triggered, f.Summarize())
		g.collector.RecordPublish(rec)
		g.log.Debug("field published", "compute", rec)
		if err := g.outputManager.WriteCompute(rec); err != nil {
			g.log.Error("failed to write compute", "error", err)
		}
	}
	for i := len(kept); i < len(g.pending); i++ {
		g.pending[i] = inflight{}
	}
	g.pending = kept
}
