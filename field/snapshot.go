package field

import (
	"log/slog"
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flatland/shapes"
)

// Obstacle is a shape placed in the world by a rigid transform.
type Obstacle struct {
	Shape    shapes.Shape
	Position r2.Vec
	Rotation float64 // radians, counter-clockwise
	Label    string
}

// Distance returns the signed distance from world point p to the obstacle surface.
func (o Obstacle) Distance(p r2.Vec) float64 {
	return o.local().distance(p)
}

func (o Obstacle) local() placedShape {
	sin, cos := math.Sincos(-o.Rotation)
	return placedShape{shape: o.Shape, pos: o.Position, sin: sin, cos: cos}
}

// placedShape caches the inverse rotation so the kernel does not recompute
// sin/cos for every grid point.
type placedShape struct {
	shape    shapes.Shape
	pos      r2.Vec
	sin, cos float64
}

func (s placedShape) distance(p r2.Vec) float64 {
	d := r2.Sub(p, s.pos)
	local := r2.Vec{X: d.X*s.cos - d.Y*s.sin, Y: d.X*s.sin + d.Y*s.cos}
	return s.shape.SignedDistance(local)
}

// Snapshot is an immutable, order-stable copy of the obstacle set handed to
// one computation.
type Snapshot struct {
	obstacles []Obstacle
}

// NewSnapshot copies obs into a new Snapshot, skipping obstacles without a shape.
func NewSnapshot(obs ...Obstacle) Snapshot {
	out := make([]Obstacle, 0, len(obs))
	for _, o := range obs {
		if o.Shape == nil {
			continue
		}
		out = append(out, o)
	}
	return Snapshot{obstacles: out}
}

// Len returns the number of obstacles.
func (s Snapshot) Len() int {
	return len(s.obstacles)
}

// At returns obstacle i.
func (s Snapshot) At(i int) Obstacle {
	return s.obstacles[i]
}

// LogValue lists the obstacles as label=kind pairs. Unlabelled obstacles are
// keyed by index.
func (s Snapshot) LogValue() slog.Value {
	attrs := make([]slog.Attr, s.Len())
	for i := range attrs {
		o := s.At(i)
		key := o.Label
		if key == "" {
			key = strconv.Itoa(i)
		}
		attrs[i] = slog.String(key, o.Shape.Kind())
	}
	return slog.GroupValue(attrs...)
}

func (s Snapshot) placed() []placedShape {
	out := make([]placedShape, len(s.obstacles))
	for i, o := range s.obstacles {
		out[i] = o.local()
	}
	return out
}
