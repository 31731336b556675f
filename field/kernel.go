package field

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
)

// parallelThreshold is the minimum cell count worth splitting across goroutines.
const parallelThreshold = 4096

// Compute builds a complete Field for the obstacles in snap over region.
//
// The region must be valid; Compute panics otherwise. Callers on the tick
// path go through Scheduler.Trigger, which validates first.
func Compute(region Region, snap Snapshot) *Field {
	if err := region.Validate(); err != nil {
		panic(err)
	}

	dist := DistancePass(region, snap)
	grad := GradientPass(region, dist)
	curl := CurlPass(region, grad)

	return &Field{
		region:    region,
		obstacles: snap.Len(),
		distance:  dist,
		gradient:  grad,
		curl:      curl,
		summary:   summarize(dist, curl),
	}
}

// DistancePass returns the minimum signed distance to any obstacle for every
// grid point. With no obstacles every point holds NoObstacleDistance.
func DistancePass(region Region, snap Snapshot) []float64 {
	w := region.Width
	dist := make([]float64, region.Cells())
	placed := snap.placed()
	origin, step := region.Origin(), region.Step()

	forRows(region, 0, region.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			py := origin.Y + step.Y*float64(y)
			row := dist[y*w : (y+1)*w]
			for x := range row {
				p := r2.Vec{X: origin.X + step.X*float64(x), Y: py}
				d := float64(NoObstacleDistance)
				for _, s := range placed {
					if sd := s.distance(p); sd < d {
						d = sd
					}
				}
				row[x] = d
			}
		}
	})
	return dist
}

// GradientPass estimates the spatial gradient of dist with a 3x3 Sobel
// stencil, scaled to world units. The one-cell border is left at zero.
// Raw Sobel sums are divided by 8 and by the step on each axis, so a unit
// slope in world units reads as 1 rather than 8 per cell.
func GradientPass(region Region, dist []float64) []r2.Vec {
	w, h := region.Width, region.Height
	if len(dist) != w*h {
		panic(fmt.Errorf("%w: distance grid has %d cells, region has %d", ErrInvalidRegion, len(dist), w*h))
	}
	grad := make([]r2.Vec, w*h)
	step := region.Step()
	sx, sy := 8*step.X, 8*step.Y

	forRows(region, 1, h-1, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 1; x < w-1; x++ {
				at := func(dx, dy int) float64 { return dist[(x+dx)+(y+dy)*w] }
				gx := at(1, -1) + 2*at(1, 0) + at(1, 1) -
					at(-1, -1) - 2*at(-1, 0) - at(-1, 1)
				gy := at(-1, 1) + 2*at(0, 1) + at(1, 1) -
					at(-1, -1) - 2*at(0, -1) - at(1, -1)
				grad[x+y*w] = r2.Vec{X: gx / sx, Y: gy / sy}
			}
		}
	})
	return grad
}

// CurlPass estimates the curl of the gradient field after each gradient has
// been rotated 90 degrees clockwise and normalized. Only cells with a
// two-cell margin are filled; the rest stay zero.
// The Sobel sums are divided by 8 times the step, giving curl per world
// unit rather than the unscaled stencil response.
func CurlPass(region Region, grad []r2.Vec) []float64 {
	w, h := region.Width, region.Height
	if len(grad) != w*h {
		panic(fmt.Errorf("%w: gradient grid has %d cells, region has %d", ErrInvalidRegion, len(grad), w*h))
	}
	curl := make([]float64, w*h)
	if w < 5 || h < 5 {
		return curl
	}

	rot := make([]r2.Vec, w*h)
	forRows(region, 1, h-1, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 1; x < w-1; x++ {
				rot[x+y*w] = clockwiseUnit(grad[x+y*w])
			}
		}
	})

	step := region.Step()
	sx, sy := 8*step.X, 8*step.Y
	forRows(region, 2, h-2, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 2; x < w-2; x++ {
				at := func(dx, dy int) r2.Vec { return rot[(x+dx)+(y+dy)*w] }
				dRyDx := at(1, -1).Y + 2*at(1, 0).Y + at(1, 1).Y -
					at(-1, -1).Y - 2*at(-1, 0).Y - at(-1, 1).Y
				dRxDy := at(-1, 1).X + 2*at(0, 1).X + at(1, 1).X -
					at(-1, -1).X - 2*at(0, -1).X - at(1, -1).X
				curl[x+y*w] = dRyDx/sx - dRxDy/sy
			}
		}
	})
	return curl
}

// clockwiseUnit rotates g by -90 degrees and scales it to unit length.
// Zero or non-finite vectors have no direction and map to zero.
func clockwiseUnit(g r2.Vec) r2.Vec {
	n := r2.Norm(g)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return r2.Vec{}
	}
	return r2.Vec{X: g.Y / n, Y: -g.X / n}
}

// forRows runs fn over [from, to) split into contiguous row chunks, one per
// worker. Small grids run on the calling goroutine.
func forRows(region Region, from, to int, fn func(y0, y1 int)) {
	rows := to - from
	if rows <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if region.Cells() < parallelThreshold || workers < 2 {
		fn(from, to)
		return
	}
	if workers > rows {
		workers = rows
	}
	chunk := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for start := from; start < to; start += chunk {
		end := start + chunk
		if end > to {
			end = to
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(start, end)
	}
	wg.Wait()
}
