package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/physics"
)

// DefaultMaxStep bounds the RK4 sub-step, in ksec.
const DefaultMaxStep = 0.05

type RK4 struct {
	MaxStep float64
}

func NewRK4() *RK4 {
	return &RK4{MaxStep: DefaultMaxStep}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.Vector, t, dt float64) dynamo.Vector {
	k1 := dyn.Derive(x, t)
	k2 := dyn.Derive(x.Add(k1.Scale(dt*0.5)), t+dt*0.5)
	k3 := dyn.Derive(x.Add(k2.Scale(dt*0.5)), t+dt*0.5)
	k4 := dyn.Derive(x.Add(k3.Scale(dt)), t+dt)

	dt6 := dt / 6.0
	return dynamo.Vector{
		x[0] + dt6*(k1[0]+2*k2[0]+2*k3[0]+k4[0]),
		x[1] + dt6*(k1[1]+2*k2[1]+2*k3[1]+k4[1]),
	}
}

func (r *RK4) Solve(seg *physics.Segment, elapsed []float64, ti dynamo.Vector) ([]dynamo.Vector, error) {
	return march(r, r.MaxStep, seg, elapsed, ti)
}

// march integrates seg numerically from t=0, recording x at each elapsed
// time. Sub-steps never exceed maxStep ksec.
func march(integ dynamo.Integrator, maxStep float64, seg *physics.Segment, elapsed []float64, ti dynamo.Vector) ([]dynamo.Vector, error) {
	if !ti.IsValid() {
		return nil, fmt.Errorf("%w: initial temperatures %v", dynamo.ErrNumericDomain, ti)
	}
	if maxStep <= 0 {
		return nil, fmt.Errorf("max step must be positive, got %f", maxStep)
	}

	out := make([]dynamo.Vector, len(elapsed))
	x := ti
	t := 0.0

	for i, target := range elapsed {
		target /= 1000.0
		span := target - t
		if span < 0 {
			return nil, fmt.Errorf("elapsed times must be non-decreasing (%.3f after %.3f ksec)", target, t)
		}
		if span > 0 {
			n := int(math.Ceil(span / maxStep))
			h := span / float64(n)
			for j := 0; j < n; j++ {
				x = integ.Step(seg, x, t+float64(j)*h, h)
			}
		}
		t = target

		if !x.IsValid() {
			return nil, fmt.Errorf("%w: solution diverged at t=%.2f ksec", dynamo.ErrNumericDomain, t)
		}
		out[i] = x
	}
	return out, nil
}
