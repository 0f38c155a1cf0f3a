package sim

import (
	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/physics"
)

// Solver integrates one segment from ti at the given elapsed seconds.
type Solver interface {
	Solve(seg *physics.Segment, elapsed []float64, ti dynamo.Vector) ([]dynamo.Vector, error)
}
