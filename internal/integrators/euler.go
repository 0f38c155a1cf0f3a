package integrators

import (
	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/physics"
)

type Euler struct {
	MaxStep float64
}

func NewEuler() *Euler {
	return &Euler{MaxStep: 0.001}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.Vector, t, dt float64) dynamo.Vector {
	return x.Add(dyn.Derive(x, t).Scale(dt))
}

func (e *Euler) Solve(seg *physics.Segment, elapsed []float64, ti dynamo.Vector) ([]dynamo.Vector, error) {
	return march(e, e.MaxStep, seg, elapsed, ti)
}
