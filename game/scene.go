package game

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flatland/components"
)

// spawnScene creates the obstacles listed in the config.
func (g *Game) spawnScene() error {
	for i, o := range g.cfg.Obstacles {
		shape, err := o.BuildShape()
		if err != nil {
			return fmt.Errorf("obstacle %d (%s): %w", i, o.Name, err)
		}
		t := components.Transform{Position: o.Position.R2(), Rotation: o.Rotation}

		if o.Moving() {
			v := components.Velocity{Linear: o.Velocity.R2(), Angular: o.Spin}
			_, err = g.obstacles.SpawnMoving(shape, t, v, o.Name)
		} else {
			_, err = g.obstacles.Spawn(shape, t, o.Name)
		}
		if err != nil {
			return fmt.Errorf("obstacle %d (%s): %w", i, o.Name, err)
		}
	}
	return nil
}

// spawnProbes places probes evenly on an ellipse around the region center,
// its axes scaled to the region aspect, with a small random phase jitter.
func (g *Game) spawnProbes() {
	pc := g.cfg.Probes
	if pc.Count == 0 {
		return
	}
	region := g.cfg.Derived.Region
	rx := pc.SpawnRadius
	ry := pc.SpawnRadius * region.HalfExtents.Y / region.HalfExtents.X

	step := 2 * math.Pi / float64(pc.Count)
	for i := 0; i < pc.Count; i++ {
		angle := float64(i)*step + (g.rng.Float64()-0.5)*0.25*step
		sin, cos := math.Sincos(angle)
		p := r2.Add(region.Center, r2.Vec{X: rx * cos, Y: ry * sin})
		if !region.Contains(p) {
			g.log.Warn("probe spawned outside the field", "index", i, "x", p.X, "y", p.Y)
		}
		g.probes.Spawn(p, int8(pc.Orbit))
	}
}
