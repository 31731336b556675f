// Package field computes and serves obstacle distance fields.
//
// A Field holds three grids over a rectangular Region: the signed distance to
// the nearest obstacle, its gradient, and the curl of the gradient's
// clockwise-perpendicular direction field. Fields are computed off the tick
// loop by a Scheduler and published into a Store, which consumers sample with
// bilinear interpolation.
package field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// MinResolution is the smallest grid dimension the stencils can run on.
const MinResolution = 3

var (
	// ErrInvalidRegion reports a Region the kernel cannot run on.
	ErrInvalidRegion = errors.New("field: invalid region")
	// ErrOutOfRange reports an unchecked sample outside the interpolatable grid.
	ErrOutOfRange = errors.New("field: sample out of range")
)

// Region describes the rectangle a field covers and its grid resolution.
type Region struct {
	Center      r2.Vec
	HalfExtents r2.Vec
	Width       int // grid points along X
	Height      int // grid points along Y
}

// NewRegion builds and validates a Region.
func NewRegion(center, halfExtents r2.Vec, width, height int) (Region, error) {
	r := Region{Center: center, HalfExtents: halfExtents, Width: width, Height: height}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Validate checks the extents are positive and finite and the resolution
// leaves room for the gradient stencil.
func (r Region) Validate() error {
	if !finite(r.Center.X) || !finite(r.Center.Y) {
		return fmt.Errorf("%w: center %v is not finite", ErrInvalidRegion, r.Center)
	}
	if !(r.HalfExtents.X > 0) || !(r.HalfExtents.Y > 0) || !finite(r.HalfExtents.X) || !finite(r.HalfExtents.Y) {
		return fmt.Errorf("%w: half extents %v must be positive and finite", ErrInvalidRegion, r.HalfExtents)
	}
	if r.Width < MinResolution || r.Height < MinResolution {
		return fmt.Errorf("%w: resolution %dx%d below minimum %d", ErrInvalidRegion, r.Width, r.Height, MinResolution)
	}
	return nil
}

// Origin is the world position of grid point (0, 0).
func (r Region) Origin() r2.Vec {
	return r2.Sub(r.Center, r.HalfExtents)
}

// Step is the world distance between neighbouring grid points on each axis.
func (r Region) Step() r2.Vec {
	return r2.Vec{
		X: 2 * r.HalfExtents.X / float64(r.Width-1),
		Y: 2 * r.HalfExtents.Y / float64(r.Height-1),
	}
}

// Cells returns the number of grid points.
func (r Region) Cells() int {
	return r.Width * r.Height
}

// GridToWorld returns the world position of grid point (x, y).
func (r Region) GridToWorld(x, y int) r2.Vec {
	o, s := r.Origin(), r.Step()
	return r2.Vec{X: o.X + s.X*float64(x), Y: o.Y + s.Y*float64(y)}
}

// WorldToGrid maps a world position to continuous grid coordinates.
func (r Region) WorldToGrid(p r2.Vec) r2.Vec {
	o, s := r.Origin(), r.Step()
	return r2.Vec{X: (p.X - o.X) / s.X, Y: (p.Y - o.Y) / s.Y}
}

// Contains reports whether p lies inside the covered rectangle.
func (r Region) Contains(p r2.Vec) bool {
	d := r2.Sub(p, r.Center)
	return math.Abs(d.X) <= r.HalfExtents.X && math.Abs(d.Y) <= r.HalfExtents.Y
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
