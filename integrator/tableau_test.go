package integrator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestRegisteredMethodsValidate(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			tab, err := ByName(name)
			require.NoError(t, err)
			assert.Equal(t, name, tab.Name())
			assert.NoError(t, tab.Validate())
			assert.Len(t, tab.nodes, tab.Stages())
			assert.Len(t, tab.b, tab.Stages())
			r, c := tab.a.Dims()
			assert.Equal(t, tab.Stages(), r)
			assert.Equal(t, tab.Stages(), c)
		})
	}
}

func TestByNameUnknown(t *testing.T) {
	_, err := ByName("rk45")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestNewRejectsInconsistentTableaux(t *testing.T) {
	tests := []struct {
		name                  string
		nodes, weights, coeff []float64
	}{
		{"empty", nil, nil, nil},
		{"shape mismatch", []float64{0, 1}, []float64{1}, []float64{0, 0, 1, 0}},
		{"implicit", []float64{1}, []float64{1}, []float64{1}},
		{"row sum", []float64{0, 0.5}, []float64{0.5, 0.5}, []float64{0, 0, 0.4, 0}},
		{"weight sum", []float64{0, 0.5}, []float64{0.5, 0.6}, []float64{0, 0, 0.5, 0}},
		{"nan weight", []float64{0}, []float64{math.NaN()}, []float64{0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.name, tc.nodes, tc.weights, tc.coeff)
			assert.ErrorIs(t, err, ErrInvalidTableau)
		})
	}
}

func TestFamilies(t *testing.T) {
	for _, a := range []float64{0, 2.0 / 3.0, 1, math.NaN()} {
		_, err := ThirdOrder(a)
		assert.ErrorIs(t, err, ErrInvalidTableau, "a = %g", a)
	}
	_, err := SecondOrder(0)
	assert.ErrorIs(t, err, ErrInvalidTableau)

	for _, a := range []float64{0.25, 0.5, 1.5} {
		tab, err := ThirdOrder(a)
		require.NoError(t, err)
		assert.Equal(t, 3, tab.Stages())
	}

	mid, err := SecondOrder(0.5)
	require.NoError(t, err)
	assert.Equal(t, Midpoint().b, mid.b)
}

func TestNewCopiesInputs(t *testing.T) {
	nodes := []float64{0, 1}
	weights := []float64{0.5, 0.5}
	coeff := []float64{0, 0, 1, 0}
	tab, err := New("heun", nodes, weights, coeff)
	require.NoError(t, err)

	nodes[1] = 42
	weights[0] = 42
	coeff[2] = 42
	assert.NoError(t, tab.Validate())
	assert.Equal(t, 1.0, tab.nodes[1])
	assert.Equal(t, 1.0, tab.a.At(1, 0))
}

func rotationError(tab *Tableau, n int) float64 {
	f := func(_ float64, y r2.Vec) r2.Vec { return r2.Vec{X: -y.Y, Y: y.X} }
	h := 2 * math.Pi / float64(n)
	y := r2.Vec{X: 1}
	for i := 0; i < n; i++ {
		y = tab.Step(float64(i)*h, y, h, f)
	}
	return r2.Norm(r2.Sub(y, r2.Vec{X: 1}))
}

func TestConvergenceOrder(t *testing.T) {
	third, err := ThirdOrder(0.25)
	require.NoError(t, err)

	tests := []struct {
		tab   *Tableau
		order float64
	}{
		{Euler(), 1},
		{Midpoint(), 2},
		{Heun(), 2},
		{Ralston(), 2},
		{third, 3},
		{KuttaThird(), 3},
		{HeunThird(), 3},
		{WrayThird(), 3},
		{RalstonThird(), 3},
		{SSPRK3(), 3},
		{RK4(), 4},
		{Rule38(), 4},
		{RalstonFourth(), 4},
	}
	for _, tc := range tests {
		t.Run(tc.tab.Name(), func(t *testing.T) {
			coarse, fine := rotationError(tc.tab, 40), rotationError(tc.tab, 80)
			observed := math.Log2(coarse / fine)
			assert.Greater(t, observed, tc.order-0.3, "observed order %.2f", observed)
		})
	}
}

func TestStepUsesNodesForTime(t *testing.T) {
	// y' = (cos t, 2t) integrates to (sin t, t^2); the second component is
	// exact for any method of order two or more.
	f := func(t float64, _ r2.Vec) r2.Vec { return r2.Vec{X: math.Cos(t), Y: 2 * t} }
	tab := RK4()
	y := r2.Vec{}
	h := 0.1
	for i := 0; i < 10; i++ {
		y = tab.Step(float64(i)*h, y, h, f)
	}
	assert.InDelta(t, math.Sin(1), y.X, 1e-7)
	assert.InDelta(t, 1, y.Y, 1e-12)

	e := Euler().Step(0, r2.Vec{X: 1}, 0.5, func(_ float64, y r2.Vec) r2.Vec { return y })
	assert.Equal(t, r2.Vec{X: 1.5}, e)
}
