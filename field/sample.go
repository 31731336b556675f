package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Sample is the value of all three grids at one world position.
type Sample struct {
	Distance float64
	Gradient r2.Vec
	Curl     float64
}

// cell locates the 2x2 neighbourhood around world position p. ok is false
// when the floored grid coordinates fall outside [0, resolution-1) on either
// axis, or when the field is empty.
type cell struct {
	i      int // index of the bottom-left grid point
	w      int
	px, py float64
}

func (f *Field) locate(p r2.Vec) (cell, bool) {
	if f.IsEmpty() {
		return cell{}, false
	}
	g := f.region.WorldToGrid(p)
	fx, fy := math.Floor(g.X), math.Floor(g.Y)
	if !(fx >= 0 && fx < float64(f.region.Width-1) && fy >= 0 && fy < float64(f.region.Height-1)) {
		return cell{}, false
	}
	x, y := int(fx), int(fy)
	return cell{i: x + y*f.region.Width, w: f.region.Width, px: g.X - fx, py: g.Y - fy}, true
}

func (f *Field) mustLocate(p r2.Vec) cell {
	c, ok := f.locate(p)
	if !ok {
		panic(fmt.Errorf("%w: %v not inside the interpolatable grid of %v", ErrOutOfRange, p, f.region))
	}
	return c
}

func (c cell) scalar(grid []float64) float64 {
	bottom := lerp(grid[c.i], grid[c.i+1], c.px)
	top := lerp(grid[c.i+c.w], grid[c.i+c.w+1], c.px)
	return lerp(bottom, top, c.py)
}

func (c cell) vector(grid []r2.Vec) r2.Vec {
	bottom := lerpVec(grid[c.i], grid[c.i+1], c.px)
	top := lerpVec(grid[c.i+c.w], grid[c.i+c.w+1], c.px)
	return lerpVec(bottom, top, c.py)
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func lerpVec(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(r2.Scale(1-t, a), r2.Scale(t, b))
}

// Distance interpolates the distance grid at p. It panics with ErrOutOfRange
// if p is outside the interpolatable grid; use DistanceChecked otherwise.
func (f *Field) Distance(p r2.Vec) float64 {
	return f.mustLocate(p).scalar(f.distance)
}

// DistanceChecked is Distance returning ok=false instead of panicking.
func (f *Field) DistanceChecked(p r2.Vec) (float64, bool) {
	c, ok := f.locate(p)
	if !ok {
		return 0, false
	}
	return c.scalar(f.distance), true
}

// Gradient interpolates the gradient grid at p. Panics like Distance.
func (f *Field) Gradient(p r2.Vec) r2.Vec {
	return f.mustLocate(p).vector(f.gradient)
}

// GradientChecked is Gradient returning ok=false instead of panicking.
func (f *Field) GradientChecked(p r2.Vec) (r2.Vec, bool) {
	c, ok := f.locate(p)
	if !ok {
		return r2.Vec{}, false
	}
	return c.vector(f.gradient), true
}

// Curl interpolates the curl grid at p. Panics like Distance.
func (f *Field) Curl(p r2.Vec) float64 {
	return f.mustLocate(p).scalar(f.curl)
}

// CurlChecked is Curl returning ok=false instead of panicking.
func (f *Field) CurlChecked(p r2.Vec) (float64, bool) {
	c, ok := f.locate(p)
	if !ok {
		return 0, false
	}
	return c.scalar(f.curl), true
}

// Sample interpolates all three grids at p. Panics like Distance.
func (f *Field) Sample(p r2.Vec) Sample {
	return f.mustLocate(p).all(f)
}

// SampleChecked is Sample returning ok=false instead of panicking.
func (f *Field) SampleChecked(p r2.Vec) (Sample, bool) {
	c, ok := f.locate(p)
	if !ok {
		return Sample{}, false
	}
	return c.all(f), true
}

func (c cell) all(f *Field) Sample {
	return Sample{
		Distance: c.scalar(f.distance),
		Gradient: c.vector(f.gradient),
		Curl:     c.scalar(f.curl),
	}
}
