package integrator

import "gonum.org/v1/gonum/spatial/r2"

// Derivative evaluates dy/dt at time t and state y.
type Derivative func(t float64, y r2.Vec) r2.Vec

// maxInlineStages covers every registered method without a heap allocation.
const maxInlineStages = 4

// Step advances y from t by h with one explicit step of the method.
func (t *Tableau) Step(t0 float64, y r2.Vec, h float64, f Derivative) r2.Vec {
	s := t.Stages()
	var buf [maxInlineStages]r2.Vec
	var k []r2.Vec
	if s <= maxInlineStages {
		k = buf[:s]
	} else {
		k = make([]r2.Vec, s)
	}

	for i := 0; i < s; i++ {
		yi := y
		for j := 0; j < i; j++ {
			if aij := t.a.At(i, j); aij != 0 {
				yi = r2.Add(yi, r2.Scale(h*aij, k[j]))
			}
		}
		k[i] = f(t0+t.nodes[i]*h, yi)
	}

	out := y
	for i, bi := range t.b {
		if bi != 0 {
			out = r2.Add(out, r2.Scale(h*bi, k[i]))
		}
	}
	return out
}
