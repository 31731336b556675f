// Package integrator provides explicit Runge-Kutta methods described by their
// Butcher tableaux and a single-step integrator over 2D states.
package integrator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidTableau is returned for coefficients that do not describe a
	// consistent explicit method.
	ErrInvalidTableau = errors.New("integrator: invalid tableau")
	// ErrUnknownMethod is returned by ByName for an unregistered name.
	ErrUnknownMethod = errors.New("integrator: unknown method")
)

// consistencyTol absorbs the rounding in published coefficients such as
// Ralston's fourth-order method, which are given to eight digits.
const consistencyTol = 1e-6

// Tableau is an explicit Runge-Kutta method: stage coefficients a (strictly
// lower triangular), nodes c and weights b.
type Tableau struct {
	name  string
	a     *mat.Dense
	nodes []float64
	b     []float64
}

// New builds a tableau from its nodes, weights and row-major coefficients
// and validates it.
func New(name string, nodes, weights, coeff []float64) (*Tableau, error) {
	s := len(nodes)
	if s == 0 || len(weights) != s || len(coeff) != s*s {
		return nil, fmt.Errorf("%w: %s: %d nodes, %d weights, %d coefficients",
			ErrInvalidTableau, name, len(nodes), len(weights), len(coeff))
	}
	t := &Tableau{
		name:  name,
		a:     mat.NewDense(s, s, append([]float64(nil), coeff...)),
		nodes: append([]float64(nil), nodes...),
		b:     append([]float64(nil), weights...),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func mustNew(name string, nodes, weights, coeff []float64) *Tableau {
	t, err := New(name, nodes, weights, coeff)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the method name.
func (t *Tableau) Name() string { return t.name }

// Stages returns the number of derivative evaluations per step.
func (t *Tableau) Stages() int { return len(t.nodes) }

// Validate checks that the method is explicit, that every row of a sums to
// its node and that the weights sum to one.
func (t *Tableau) Validate() error {
	s := t.Stages()
	for i := 0; i < s; i++ {
		for j := i; j < s; j++ {
			if t.a.At(i, j) != 0 {
				return fmt.Errorf("%w: %s: a[%d][%d] = %g on or above the diagonal",
					ErrInvalidTableau, t.name, i, j, t.a.At(i, j))
			}
		}
		row := mat.Row(nil, i, t.a)
		if sum := floats.Sum(row); !(math.Abs(sum-t.nodes[i]) <= consistencyTol) {
			return fmt.Errorf("%w: %s: row %d sums to %g, node is %g",
				ErrInvalidTableau, t.name, i, sum, t.nodes[i])
		}
	}
	if sum := floats.Sum(t.b); !(math.Abs(sum-1) <= consistencyTol) {
		return fmt.Errorf("%w: %s: weights sum to %g", ErrInvalidTableau, t.name, sum)
	}
	return nil
}

// Euler is the one-stage forward Euler method.
func Euler() *Tableau {
	return mustNew("euler", []float64{0}, []float64{1}, []float64{0})
}

// SecondOrder returns the two-stage second-order family member with second
// node a. a must be non-zero.
func SecondOrder(a float64) (*Tableau, error) {
	if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return nil, fmt.Errorf("%w: second order with a = %g", ErrInvalidTableau, a)
	}
	return New(fmt.Sprintf("second_order(%g)", a),
		[]float64{0, a},
		[]float64{1 - 1/(2*a), 1 / (2 * a)},
		[]float64{
			0, 0,
			a, 0,
		})
}

func mustSecondOrder(name string, a float64) *Tableau {
	t, err := SecondOrder(a)
	if err != nil {
		panic(err)
	}
	t.name = name
	return t
}

// Midpoint is the explicit midpoint method.
func Midpoint() *Tableau { return mustSecondOrder("midpoint", 0.5) }

// Heun is Heun's second-order method.
func Heun() *Tableau { return mustSecondOrder("heun", 1) }

// Ralston is Ralston's second-order method.
func Ralston() *Tableau { return mustSecondOrder("ralston", 2.0/3.0) }

// ThirdOrder returns the generic three-stage third-order method with second
// node a. The family is undefined for a in {0, 2/3, 1}.
func ThirdOrder(a float64) (*Tableau, error) {
	if a == 0 || a == 1 || math.Abs(a-2.0/3.0) < 1e-12 || math.IsNaN(a) || math.IsInf(a, 0) {
		return nil, fmt.Errorf("%w: third order with a = %g", ErrInvalidTableau, a)
	}
	d := a * (3*a - 2)
	return New(fmt.Sprintf("third_order(%g)", a),
		[]float64{0, a, 1},
		[]float64{
			0.5 - 1/(6*a),
			1 / (6 * a * (1 - a)),
			(2 - 3*a) / (6 - 6*a),
		},
		[]float64{
			0, 0, 0,
			a, 0, 0,
			1 + (1-a)/d, (a-1)/d, 0,
		})
}

// KuttaThird is Kutta's third-order method.
func KuttaThird() *Tableau {
	return mustNew("kutta3",
		[]float64{0, 0.5, 1},
		[]float64{1.0 / 6, 2.0 / 3, 1.0 / 6},
		[]float64{
			0, 0, 0,
			0.5, 0, 0,
			-1, 2, 0,
		})
}

// HeunThird is Heun's third-order method.
func HeunThird() *Tableau {
	return mustNew("heun3",
		[]float64{0, 1.0 / 3, 2.0 / 3},
		[]float64{0.25, 0, 0.75},
		[]float64{
			0, 0, 0,
			1.0 / 3, 0, 0,
			0, 2.0 / 3, 0,
		})
}

// WrayThird is Van der Houwen's/Wray's third-order method.
func WrayThird() *Tableau {
	return mustNew("wray3",
		[]float64{0, 8.0 / 15, 2.0 / 3},
		[]float64{0.25, 0, 0.75},
		[]float64{
			0, 0, 0,
			8.0 / 15, 0, 0,
			0.25, 5.0 / 12, 0,
		})
}

// RalstonThird is Ralston's third-order method.
func RalstonThird() *Tableau {
	return mustNew("ralston3",
		[]float64{0, 0.5, 0.75},
		[]float64{2.0 / 9, 1.0 / 3, 4.0 / 9},
		[]float64{
			0, 0, 0,
			0.5, 0, 0,
			0, 0.75, 0,
		})
}

// SSPRK3 is the third-order strong stability preserving method.
func SSPRK3() *Tableau {
	return mustNew("ssprk3",
		[]float64{0, 1, 0.5},
		[]float64{1.0 / 6, 1.0 / 6, 2.0 / 3},
		[]float64{
			0, 0, 0,
			1, 0, 0,
			0.25, 0.25, 0,
		})
}

// RK4 is the classic fourth-order method.
func RK4() *Tableau {
	return mustNew("rk4",
		[]float64{0, 0.5, 0.5, 1},
		[]float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		[]float64{
			0, 0, 0, 0,
			0.5, 0, 0, 0,
			0, 0.5, 0, 0,
			0, 0, 1, 0,
		})
}

// Rule38 is the fourth-order 3/8-rule method.
func Rule38() *Tableau {
	return mustNew("rule38",
		[]float64{0, 1.0 / 3, 2.0 / 3, 1},
		[]float64{1.0 / 8, 3.0 / 8, 3.0 / 8, 1.0 / 8},
		[]float64{
			0, 0, 0, 0,
			1.0 / 3, 0, 0, 0,
			-1.0 / 3, 1, 0, 0,
			1, -1, 1, 0,
		})
}

// RalstonFourth is Ralston's fourth-order method with minimum truncation error.
func RalstonFourth() *Tableau {
	return mustNew("ralston4",
		[]float64{0, 0.4, 0.45573725, 1},
		[]float64{0.17476028, -0.55148066, 1.20553560, 0.17118478},
		[]float64{
			0, 0, 0, 0,
			0.4, 0, 0, 0,
			0.29697761, 0.15875964, 0, 0,
			0.21810040, -3.05096516, 3.83286476, 0,
		})
}

var registry = map[string]func() *Tableau{
	"euler":    Euler,
	"midpoint": Midpoint,
	"heun":     Heun,
	"ralston":  Ralston,
	"kutta3":   KuttaThird,
	"heun3":    HeunThird,
	"wray3":    WrayThird,
	"ralston3": RalstonThird,
	"ssprk3":   SSPRK3,
	"rk4":      RK4,
	"rule38":   Rule38,
	"ralston4": RalstonFourth,
}

// ByName returns the named method, as used in configuration files.
func ByName(name string) (*Tableau, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownMethod, name, Names())
	}
	return fn(), nil
}

// Names lists the registered method names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
