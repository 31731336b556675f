package systems

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flatland/components"
	"github.com/pthm-cable/flatland/field"
	"github.com/pthm-cable/flatland/integrator"
)

// ProbeParams tune how probes follow the field.
type ProbeParams struct {
	Speed     float64 // units per second along the contour
	Clearance float64 // distance below which probes are pushed outward
	Repulsion float64 // push strength relative to Speed at zero distance
	Method    *integrator.Tableau
}

// ProbeStats summarizes one probe update.
type ProbeStats struct {
	Probes       int
	Covered      int // probes inside the interpolatable field
	Contacts     int // probes inside an obstacle
	MeanDistance float64
	MeanTravel   float64 // distance moved since spawn, averaged over all probes
}

// LogValue implements slog.LogValuer for structured logging.
func (s ProbeStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("probes", s.Probes),
		slog.Int("covered", s.Covered),
		slog.Int("contacts", s.Contacts),
		slog.Float64("mean_distance", s.MeanDistance),
		slog.Float64("mean_travel", s.MeanTravel),
	)
}

// ProbeSystem moves probe entities along the published obstacle field. Each
// probe travels tangentially around the nearest obstacle, circulating the way
// the sampled curl indicates unless its Orbit fixes a direction, and is pushed
// outward when closer than the clearance. Probes outside the field hold still.
type ProbeSystem struct {
	mapper *ecs.Map2[components.Transform, components.Probe]
	filter *ecs.Filter2[components.Transform, components.Probe]
	store  *field.Store
	params ProbeParams
	nextID uint32
}

// NewProbeSystem creates a probe system reading from store.
func NewProbeSystem(w *ecs.World, store *field.Store, params ProbeParams) *ProbeSystem {
	if params.Method == nil {
		params.Method = integrator.RK4()
	}
	return &ProbeSystem{
		mapper: ecs.NewMap2[components.Transform, components.Probe](w),
		filter: ecs.NewFilter2[components.Transform, components.Probe](w),
		store:  store,
		params: params,
	}
}

// Spawn adds a probe at p with the given orbit preference.
func (s *ProbeSystem) Spawn(p r2.Vec, orbit int8) ecs.Entity {
	s.nextID++
	return s.mapper.NewEntity(
		&components.Transform{Position: p},
		&components.Probe{ID: s.nextID, Orbit: orbit},
	)
}

// Update advances every probe by dt seconds against the currently published
// field.
func (s *ProbeSystem) Update(dt float64) ProbeStats {
	f := s.store.Field()
	var stats ProbeStats
	var distSum, travelSum float64

	query := s.filter.Query()
	for query.Next() {
		t, probe := query.Get()
		stats.Probes++

		sample, ok := f.SampleChecked(t.Position)
		probe.Covered = ok
		if !ok {
			travelSum += probe.Travel
			continue
		}
		stats.Covered++
		probe.Distance = sample.Distance
		probe.Curl = sample.Curl
		distSum += sample.Distance
		if sample.Distance < 0 {
			stats.Contacts++
			probe.Contacts++
		}

		sign := orbitSign(probe.Orbit, sample.Curl)
		next := s.params.Method.Step(0, t.Position, dt, func(_ float64, p r2.Vec) r2.Vec {
			return s.velocity(f, p, sign)
		})
		probe.Travel += r2.Norm(r2.Sub(next, t.Position))
		if d := r2.Sub(next, t.Position); d.X != 0 || d.Y != 0 {
			t.Rotation = math.Atan2(d.Y, d.X)
		}
		t.Position = next
		travelSum += probe.Travel
	}

	if stats.Covered > 0 {
		stats.MeanDistance = distSum / float64(stats.Covered)
	}
	if stats.Probes > 0 {
		stats.MeanTravel = travelSum / float64(stats.Probes)
	}
	return stats
}

// orbitSign picks the circulation direction: +1 follows the clockwise
// rotated gradient, -1 runs against it.
func orbitSign(orbit int8, curl float64) float64 {
	switch {
	case orbit > 0:
		return -1
	case orbit < 0:
		return 1
	case curl > 0:
		return -1
	}
	return 1
}

// velocity evaluates the probe flow at p. It is zero outside the field and
// where the gradient vanishes.
func (s *ProbeSystem) velocity(f *field.Field, p r2.Vec, sign float64) r2.Vec {
	sample, ok := f.SampleChecked(p)
	if !ok {
		return r2.Vec{}
	}
	n := r2.Norm(sample.Gradient)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return r2.Vec{}
	}
	g := r2.Scale(1/n, sample.Gradient)
	tangent := r2.Vec{X: g.Y, Y: -g.X}
	v := r2.Scale(sign*s.params.Speed, tangent)

	if c := s.params.Clearance; c > 0 && sample.Distance < c {
		push := s.params.Repulsion * s.params.Speed * (c - sample.Distance) / c
		v = r2.Add(v, r2.Scale(push, g))
	}
	return v
}
