package field

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestComputeBoxDistance(t *testing.T) {
	region := testRegion(t, 0, 0, 100, 100, 201, 201)
	f := Compute(region, NewSnapshot(boxAt(t, 0, 0, 5, 5, 0)))

	// (50, 0) is grid point (150, 100) with a step of 1.
	assert.InDelta(t, 45, f.DistanceAt(150, 100), 1e-9)
	assert.InDelta(t, -5, f.DistanceAt(100, 100), 1e-9)
	assert.InDelta(t, 45, f.Distance(r2.Vec{X: 50, Y: 0}), 1e-9)
	assert.Equal(t, 1, f.ObstacleCount())
}

func TestComputeMatchesMinimumOverObstacles(t *testing.T) {
	region := testRegion(t, 5, -3, 40, 30, 81, 61)
	obs := []Obstacle{
		boxAt(t, -10, 4, 6, 3, math.Pi/6),
		circleAt(t, 15, -10, 4),
		boxAt(t, 20, 18, 2, 9, -1.1),
	}
	f := Compute(region, NewSnapshot(obs...))

	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			p := region.GridToWorld(x, y)
			want := math.Inf(1)
			for _, o := range obs {
				want = math.Min(want, o.Distance(p))
			}
			require.InDelta(t, want, f.DistanceAt(x, y), 1e-9, "cell (%d, %d)", x, y)
		}
	}
}

func TestRotatedBoxDistance(t *testing.T) {
	// A 10x2 box turned a quarter turn stands upright.
	o := boxAt(t, 3, 4, 5, 1, math.Pi/2)
	assert.InDelta(t, 9, o.Distance(r2.Vec{X: 3, Y: 4 + 5 + 9}), 1e-9)
	assert.InDelta(t, 9, o.Distance(r2.Vec{X: 3 + 1 + 9, Y: 4}), 1e-9)
	assert.InDelta(t, -1, o.Distance(r2.Vec{X: 3, Y: 4}), 1e-9)
}

func TestComputeEmptySnapshot(t *testing.T) {
	region := testRegion(t, 0, 0, 10, 10, 9, 9)
	f := Compute(region, NewSnapshot())

	require.False(t, f.IsEmpty())
	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			assert.Equal(t, float64(NoObstacleDistance), f.DistanceAt(x, y))
			assert.Equal(t, r2.Vec{}, f.GradientAt(x, y))
			assert.Equal(t, 0.0, f.CurlAt(x, y))
		}
	}
}

func TestGradientPointsAwayFromPointObstacle(t *testing.T) {
	region := testRegion(t, 0, 0, 20, 20, 41, 41)
	f := Compute(region, NewSnapshot(circleAt(t, 0, 0, 0)))

	// (10, 0) is grid point (30, 20).
	g := f.GradientAt(30, 20)
	assert.InDelta(t, 1, g.X, 0.02)
	assert.InDelta(t, 0, g.Y, 1e-9)

	g = f.GradientAt(20, 10) // (0, -10)
	assert.InDelta(t, 0, g.X, 1e-9)
	assert.InDelta(t, -1, g.Y, 0.02)

	dir := r2.Unit(f.GradientAt(27, 24)) // (7, 4)
	want := r2.Unit(r2.Vec{X: 7, Y: 4})
	assert.InDelta(t, want.X, dir.X, 0.01)
	assert.InDelta(t, want.Y, dir.Y, 0.01)
}

func TestGradientPassLinearField(t *testing.T) {
	// Non-square steps: (2, 0.5).
	region := testRegion(t, 0, 0, 10, 5, 11, 21)
	dist := make([]float64, region.Cells())
	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			p := region.GridToWorld(x, y)
			dist[x+y*region.Width] = 3*p.X - 2*p.Y
		}
	}
	grad := GradientPass(region, dist)

	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			g := grad[x+y*region.Width]
			if x == 0 || y == 0 || x == region.Width-1 || y == region.Height-1 {
				assert.Equal(t, r2.Vec{}, g, "border cell (%d, %d)", x, y)
				continue
			}
			assert.InDelta(t, 3, g.X, 1e-9)
			assert.InDelta(t, -2, g.Y, 1e-9)
		}
	}
}

func TestCurlFlatWallIsZero(t *testing.T) {
	region := testRegion(t, 0, 0, 20, 20, 41, 41)
	wall := boxAt(t, 0, -50, 1000, 5, 0)
	f := Compute(region, NewSnapshot(wall))

	for y := 2; y < region.Height-2; y++ {
		for x := 2; x < region.Width-2; x++ {
			assert.InDelta(t, 0, f.CurlAt(x, y), 1e-9, "cell (%d, %d)", x, y)
		}
	}
}

func TestCurlAroundCircleIsNegative(t *testing.T) {
	region := testRegion(t, 0, 0, 20, 20, 41, 41)
	f := Compute(region, NewSnapshot(circleAt(t, 0, 0, 2)))

	for y := 2; y < region.Height-2; y++ {
		for x := 2; x < region.Width-2; x++ {
			r := r2.Norm(region.GridToWorld(x, y))
			if r < 4 {
				continue
			}
			c := f.CurlAt(x, y)
			require.Less(t, c, 0.0, "cell (%d, %d)", x, y)
			if r >= 8 {
				assert.InDelta(t, -1/r, c, 0.25/r, "cell (%d, %d)", x, y)
			}
		}
	}
}

func TestCurlPassHandedness(t *testing.T) {
	region := testRegion(t, 0.5, 0.5, 15, 15, 31, 31)

	build := func(sign float64) []float64 {
		grad := make([]r2.Vec, region.Cells())
		for y := 0; y < region.Height; y++ {
			for x := 0; x < region.Width; x++ {
				p := region.GridToWorld(x, y)
				grad[x+y*region.Width] = r2.Scale(sign/r2.Norm(p), p)
			}
		}
		return CurlPass(region, grad)
	}

	// An outward field rotates into a clockwise swirl, an inward one into a
	// counter-clockwise swirl.
	cw, ccw := build(1), build(-1)
	for y := 3; y < region.Height-3; y++ {
		for x := 3; x < region.Width-3; x++ {
			assert.Less(t, cw[x+y*region.Width], 0.0)
			assert.Greater(t, ccw[x+y*region.Width], 0.0)
		}
	}
}

func TestCurlPassZeroGradientGuard(t *testing.T) {
	region := testRegion(t, 0, 0, 3, 3, 7, 7)
	grad := make([]r2.Vec, region.Cells())
	grad[3+3*7] = r2.Vec{X: math.NaN(), Y: 1}

	curl := CurlPass(region, grad)
	for _, c := range curl {
		assert.False(t, math.IsNaN(c))
		assert.Equal(t, 0.0, c)
	}
	assert.Equal(t, r2.Vec{}, clockwiseUnit(r2.Vec{}))
	assert.Equal(t, r2.Vec{X: 1, Y: 0}, clockwiseUnit(r2.Vec{X: 0, Y: 4}))
}

func TestMinimumResolutionBorders(t *testing.T) {
	region := testRegion(t, 0, 0, 2, 2, 5, 5)
	f := Compute(region, NewSnapshot(circleAt(t, -10, -7, 1)))

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			interior := x >= 1 && x <= 3 && y >= 1 && y <= 3
			if interior {
				assert.NotEqual(t, r2.Vec{}, f.GradientAt(x, y), "gradient (%d, %d)", x, y)
			} else {
				assert.Equal(t, r2.Vec{}, f.GradientAt(x, y), "gradient (%d, %d)", x, y)
			}
			if x == 2 && y == 2 {
				assert.Less(t, f.CurlAt(x, y), 0.0)
			} else {
				assert.Equal(t, 0.0, f.CurlAt(x, y), "curl (%d, %d)", x, y)
			}
		}
	}
}

func TestComputeThreeByThree(t *testing.T) {
	region := testRegion(t, 0, 0, 1, 1, 3, 3)
	f := Compute(region, NewSnapshot(circleAt(t, 5, 0, 1)))

	assert.NotEqual(t, r2.Vec{}, f.GradientAt(1, 1))
	for i := range f.curl {
		assert.Equal(t, 0.0, f.curl[i])
	}
}

func TestComputeInvalidRegionPanics(t *testing.T) {
	assert.Panics(t, func() {
		Compute(Region{Width: 2, Height: 2}, NewSnapshot())
	})
}

func TestComputeParallelMatchesSerial(t *testing.T) {
	// Above parallelThreshold the rows are split across goroutines.
	region := testRegion(t, 0, 0, 50, 50, 101, 101)
	snap := NewSnapshot(boxAt(t, 10, 10, 8, 3, 0.4), circleAt(t, -20, 5, 6))
	f := Compute(region, snap)

	for y := 0; y < region.Height; y += 7 {
		for x := 0; x < region.Width; x += 7 {
			p := region.GridToWorld(x, y)
			want := math.Min(snap.At(0).Distance(p), snap.At(1).Distance(p))
			assert.InDelta(t, want, f.DistanceAt(x, y), 1e-9)
		}
	}
}
