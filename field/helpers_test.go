package field

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flatland/shapes"
)

func testRegion(t testing.TB, cx, cy, hx, hy float64, w, h int) Region {
	t.Helper()
	r, err := NewRegion(r2.Vec{X: cx, Y: cy}, r2.Vec{X: hx, Y: hy}, w, h)
	require.NoError(t, err)
	return r
}

func boxAt(t testing.TB, x, y, hx, hy, rot float64) Obstacle {
	t.Helper()
	b, err := shapes.NewBox(hx, hy)
	require.NoError(t, err)
	return Obstacle{Shape: b, Position: r2.Vec{X: x, Y: y}, Rotation: rot}
}

func circleAt(t testing.TB, x, y, radius float64) Obstacle {
	t.Helper()
	c, err := shapes.NewCircle(radius)
	require.NoError(t, err)
	return Obstacle{Shape: c, Position: r2.Vec{X: x, Y: y}}
}
