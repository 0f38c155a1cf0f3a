package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Segment is the linear ODE dT/dt = M*T + Heat for one operating state,
// with time measured in ksec.
type Segment struct {
	Eigen
	M    Matrix
	Heat dynamo.Vector

	// Inputs the segment was built from.
	U01, C1, C2 float64
	Tf          float64
}

// NewSegment builds the segment for a state with the given power (W),
// pitch (deg) and SIM position.
func NewSegment(p Params, power, pitch, simpos float64) (*Segment, error) {
	if math.IsNaN(power) || math.IsInf(power, 0) {
		return nil, fmt.Errorf("%w: power=%v", dynamo.ErrNumericDomain, power)
	}

	m, eig, err := Coupling(p, pitch)
	if err != nil {
		return nil, err
	}

	tf, err := TfZeroPower(p, pitch, simpos)
	if err != nil {
		return nil, err
	}

	u01 := p.EffectiveU01(pitch)
	return &Segment{
		Eigen: eig,
		M:     m,
		Heat:  dynamo.Vector{u01 * tf / p.C1, power / p.C2},
		U01:   u01,
		C1:    p.C1,
		C2:    p.C2,
		Tf:    tf,
	}, nil
}

// Derive implements dynamo.System; t is in ksec and unused.
func (s *Segment) Derive(x dynamo.Vector, t float64) dynamo.Vector {
	return s.M.MulVec(x).Add(s.Heat)
}

// SteadyState solves M*T + Heat = 0.
func (s *Segment) SteadyState() (dynamo.Vector, error) {
	a := mat.NewDense(2, 2, []float64{s.M[0][0], s.M[0][1], s.M[1][0], s.M[1][1]})
	b := mat.NewVecDense(2, []float64{-s.Heat[0], -s.Heat[1]})

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return dynamo.Vector{}, fmt.Errorf("%w: no fixed point: %v", dynamo.ErrModelConfiguration, err)
	}
	return dynamo.Vector{x.AtVec(0), x.AtVec(1)}, nil
}
