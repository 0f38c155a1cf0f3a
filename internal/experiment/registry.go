package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/integrators"
	"github.com/san-kum/psmcsim/internal/metrics"
	"github.com/san-kum/psmcsim/internal/sim"
)

type Registry struct {
	solvers map[string]func() sim.Solver
}

func NewRegistry() *Registry {
	r := &Registry{
		solvers: make(map[string]func() sim.Solver),
	}

	r.solvers["analytic"] = func() sim.Solver { return integrators.NewAnalytic() }
	r.solvers["rk4"] = func() sim.Solver { return integrators.NewRK4() }
	r.solvers["euler"] = func() sim.Solver { return integrators.NewEuler() }

	return r
}

// Register adds or replaces a named solver.
func (r *Registry) Register(name string, fn func() sim.Solver) {
	r.solvers[name] = fn
}

func (r *Registry) GetSolver(name string) (sim.Solver, error) {
	fn, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver: %s (have %v)", name, r.ListSolvers())
	}
	return fn(), nil
}

func (r *Registry) ListSolvers() []string {
	names := make([]string, 0, len(r.solvers))
	for name := range r.solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics observes the peak, mean and time above the planning limit
// of every limited node.
func (r *Registry) DefaultMetrics(limits map[string]metrics.Limit) []dynamo.Metric {
	var out []dynamo.Metric
	for _, msid := range metrics.SortedMSIDs(limits) {
		l := limits[msid]
		out = append(out,
			metrics.NewPeak(l.Node),
			metrics.NewMean(l.Node),
			metrics.NewTimeAbove(l.Node, l.PlanningLimit()),
		)
	}
	return out
}
