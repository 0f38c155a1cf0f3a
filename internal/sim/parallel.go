package sim

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/states"
)

// Chunk is an independently integrable slice of a long state sequence.
type Chunk struct {
	States []states.State
	PIN0   float64
	DEA0   float64
	Times  []float64
}

// InitialFunc supplies the PIN and DEA temperatures (degC) at time t,
// usually from telemetry.
type InitialFunc func(t float64) (pin, dea float64, err error)

// SplitChunks divides ss and the sorted output times into at most n pieces
// over evenly spaced time bounds. Each chunk restarts from initial at the
// start of its first state, so the pieces are only approximately continuous.
func SplitChunks(ss []states.State, times []float64, n int, initial InitialFunc) ([]Chunk, error) {
	if err := states.Validate(ss); err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no output times")
	}
	if !sort.Float64sAreSorted(times) {
		return nil, fmt.Errorf("output times must be sorted")
	}
	if n < 1 {
		n = 1
	}

	first, last := times[0], times[len(times)-1]
	stateIdx := make([]int, n+1)
	for k := range stateIdx {
		bound := first + (last-first)*float64(k)/float64(n)
		stateIdx[k] = sort.Search(len(ss), func(i int) bool { return ss[i].Stop >= bound })
	}
	stateIdx[0] = 0
	stateIdx[n] = len(ss)

	var groups [][]states.State
	for k := 0; k < n; k++ {
		if stateIdx[k] < stateIdx[k+1] {
			groups = append(groups, ss[stateIdx[k]:stateIdx[k+1]])
		}
	}

	timeIdx := make([]int, len(groups)+1)
	for k, g := range groups {
		timeIdx[k] = sort.SearchFloat64s(times, g[0].Start)
	}
	timeIdx[0] = 0
	timeIdx[len(groups)] = len(times)

	chunks := make([]Chunk, len(groups))
	for k, g := range groups {
		pin, dea, err := initial(g[0].Start)
		if err != nil {
			return nil, fmt.Errorf("initial temperatures for chunk %d: %w", k, err)
		}
		chunks[k] = Chunk{
			States: g,
			PIN0:   pin,
			DEA0:   dea,
			Times:  times[timeIdx[k]:timeIdx[k+1]],
		}
	}
	return chunks, nil
}

// Ensemble evaluates chunks concurrently with a bounded number of workers.
type Ensemble struct {
	solver  Solver
	cfg     dynamo.Config
	workers int
}

// NewEnsemble uses GOMAXPROCS workers when workers <= 0.
func NewEnsemble(solver Solver, cfg dynamo.Config, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{solver: solver, cfg: cfg, workers: workers}
}

// Run predicts every chunk with params and concatenates the results in
// chunk order. The first error cancels the remaining chunks.
func (e *Ensemble) Run(ctx context.Context, chunks []Chunk, params physics.Params) (pin, dea []float64, err error) {
	pins := make([][]float64, len(chunks))
	deas := make([][]float64, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, ch := range chunks {
		i, ch := i, ch
		g.Go(func() error {
			p, d, err := New(e.solver, params, e.cfg).Predict(ctx, ch.States, ch.PIN0, ch.DEA0, ch.Times)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			pins[i], deas[i] = p, d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i := range chunks {
		pin = append(pin, pins[i]...)
		dea = append(dea, deas[i]...)
	}
	return pin, dea, nil
}
