// Package shapes provides the obstacle geometry used by the distance field.
//
// Every shape is expressed in its own local frame (centered on the origin,
// unrotated) and exposes a single capability: the signed distance from a
// local point to its surface, negative inside.
package shapes

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidShape is returned when a shape is constructed from bad dimensions.
var ErrInvalidShape = errors.New("shapes: invalid shape")

// Shape is anything that can report a signed distance to its surface.
type Shape interface {
	// SignedDistance returns the distance from p (in the shape's local
	// frame) to the surface. Points inside the shape are negative.
	SignedDistance(p r2.Vec) float64
	// Kind names the shape for logs and config.
	Kind() string
}

// Box is an axis-aligned rectangle centered on the origin.
type Box struct {
	HalfExtents r2.Vec
}

// NewBox returns a box with the given half extents.
func NewBox(halfX, halfY float64) (Box, error) {
	if !(halfX > 0) || !(halfY > 0) {
		return Box{}, fmt.Errorf("%w: box half extents (%g, %g) must be > 0", ErrInvalidShape, halfX, halfY)
	}
	return Box{HalfExtents: r2.Vec{X: halfX, Y: halfY}}, nil
}

// SignedDistance implements Shape.
func (b Box) SignedDistance(p r2.Vec) float64 {
	qx := math.Abs(p.X) - b.HalfExtents.X
	qy := math.Abs(p.Y) - b.HalfExtents.Y
	outside := r2.Norm(r2.Vec{X: math.Max(qx, 0), Y: math.Max(qy, 0)})
	inside := math.Min(math.Max(qx, qy), 0)
	return outside + inside
}

// Kind implements Shape.
func (Box) Kind() string { return "box" }

// Circle is a disc centered on the origin.
type Circle struct {
	Radius float64
}

// NewCircle returns a circle. A zero radius is a point obstacle.
func NewCircle(radius float64) (Circle, error) {
	if radius < 0 || math.IsNaN(radius) {
		return Circle{}, fmt.Errorf("%w: circle radius %g must be >= 0", ErrInvalidShape, radius)
	}
	return Circle{Radius: radius}, nil
}

// SignedDistance implements Shape.
func (c Circle) SignedDistance(p r2.Vec) float64 {
	return r2.Norm(p) - c.Radius
}

// Kind implements Shape.
func (Circle) Kind() string { return "circle" }

// Capsule is a segment from (-HalfLength, 0) to (HalfLength, 0) swept by Radius.
type Capsule struct {
	HalfLength float64
	Radius     float64
}

// NewCapsule returns a capsule lying along the local X axis.
func NewCapsule(halfLength, radius float64) (Capsule, error) {
	if halfLength < 0 || !(radius > 0) {
		return Capsule{}, fmt.Errorf("%w: capsule half length %g must be >= 0 and radius %g > 0", ErrInvalidShape, halfLength, radius)
	}
	return Capsule{HalfLength: halfLength, Radius: radius}, nil
}

// SignedDistance implements Shape.
func (c Capsule) SignedDistance(p r2.Vec) float64 {
	q := r2.Vec{X: math.Max(math.Abs(p.X)-c.HalfLength, 0), Y: p.Y}
	return r2.Norm(q) - c.Radius
}

// Kind implements Shape.
func (Capsule) Kind() string { return "capsule" }

// Polygon is a simple (non self-intersecting) polygon. Winding does not matter.
type Polygon struct {
	vertices []r2.Vec
}

// NewPolygon copies the vertices into a new polygon.
func NewPolygon(vertices ...r2.Vec) (Polygon, error) {
	if len(vertices) < 3 {
		return Polygon{}, fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrInvalidShape, len(vertices))
	}
	vs := make([]r2.Vec, len(vertices))
	copy(vs, vertices)
	return Polygon{vertices: vs}, nil
}

// Vertices returns a copy of the polygon's vertices.
func (pg Polygon) Vertices() []r2.Vec {
	vs := make([]r2.Vec, len(pg.vertices))
	copy(vs, pg.vertices)
	return vs
}

// SignedDistance implements Shape.
// Distance is the nearest edge; the sign comes from a crossing-number test
// accumulated over the same edge loop.
func (pg Polygon) SignedDistance(p r2.Vec) float64 {
	vs := pg.vertices
	n := len(vs)
	d := r2.Norm2(r2.Sub(p, vs[0]))
	sign := 1.0
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		e := r2.Sub(vs[j], vs[i])
		w := r2.Sub(p, vs[i])
		t := clamp01(r2.Dot(w, e) / r2.Dot(e, e))
		b := r2.Sub(w, r2.Scale(t, e))
		d = math.Min(d, r2.Norm2(b))

		c1 := p.Y >= vs[i].Y
		c2 := p.Y < vs[j].Y
		c3 := e.X*w.Y > e.Y*w.X
		if (c1 && c2 && c3) || (!c1 && !c2 && !c3) {
			sign = -sign
		}
	}
	return sign * math.Sqrt(d)
}

// Kind implements Shape.
func (Polygon) Kind() string { return "polygon" }

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
