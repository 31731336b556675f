package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// NoObstacleDistance fills the distance grid when a snapshot has no
// obstacles. It is finite so the gradient of a uniform sentinel grid is
// exactly zero.
const NoObstacleDistance = math.MaxFloat32

// Field is one completed computation: distance, gradient and curl grids over
// a single Region for a single obstacle snapshot. Grids are stored row-major
// (index x + y*Width). A Field is never modified after Compute returns it.
type Field struct {
	region    Region
	obstacles int

	distance []float64
	gradient []r2.Vec
	curl     []float64
	summary  Summary
}

var emptyField = &Field{}

// Empty returns the field published before any computation has finished.
func Empty() *Field {
	return emptyField
}

// IsEmpty reports whether the field has no grid data.
func (f *Field) IsEmpty() bool {
	return len(f.distance) == 0
}

// Region returns the region the grids cover.
func (f *Field) Region() Region {
	return f.region
}

// ObstacleCount returns how many obstacles the snapshot held.
func (f *Field) ObstacleCount() int {
	return f.obstacles
}

// DistanceAt returns the distance grid value at (x, y).
func (f *Field) DistanceAt(x, y int) float64 {
	return f.distance[f.index(x, y)]
}

// GradientAt returns the gradient grid value at (x, y).
func (f *Field) GradientAt(x, y int) r2.Vec {
	return f.gradient[f.index(x, y)]
}

// CurlAt returns the curl grid value at (x, y).
func (f *Field) CurlAt(x, y int) float64 {
	return f.curl[f.index(x, y)]
}

func (f *Field) index(x, y int) int {
	if x < 0 || x >= f.region.Width || y < 0 || y >= f.region.Height {
		panic(fmt.Errorf("%w: grid index (%d, %d) outside %dx%d", ErrOutOfRange, x, y, f.region.Width, f.region.Height))
	}
	return x + y*f.region.Width
}

// Summary holds aggregate values of a field for logs and telemetry.
type Summary struct {
	MinDistance float64
	MaxDistance float64
	MinCurl     float64
	MaxCurl     float64
}

// Summarize returns grid extremes. They are computed with the grids, so the
// call is cheap on the tick path. An empty field yields a zero Summary.
func (f *Field) Summarize() Summary {
	return f.summary
}

func summarize(dist, curl []float64) Summary {
	return Summary{
		MinDistance: floats.Min(dist),
		MaxDistance: floats.Max(dist),
		MinCurl:     floats.Min(curl),
		MaxCurl:     floats.Max(curl),
	}
}
