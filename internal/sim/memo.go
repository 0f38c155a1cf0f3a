package sim

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/states"
)

// DefaultMemoSize bounds the number of cached trajectories.
const DefaultMemoSize = 64

// Memo caches trajectories for a fixed state sequence and initial
// temperatures, keyed by parameter set. Calibration loops evaluate the same
// parameters repeatedly, and concurrent requests for one set share a single
// run. Safe for concurrent use.
type Memo struct {
	solver Solver
	cfg    dynamo.Config
	states []states.State
	pin0   float64
	dea0   float64

	cache  *lru.Cache
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

type MemoStats struct {
	Hits   int64
	Misses int64
	Size   int
}

// NewMemo copies ss, so later changes by the caller are not seen.
func NewMemo(solver Solver, cfg dynamo.Config, ss []states.State, pin0, dea0 float64, size int) (*Memo, error) {
	if size <= 0 {
		size = DefaultMemoSize
	}
	if err := states.Validate(ss); err != nil {
		return nil, err
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &Memo{
		solver: solver,
		cfg:    cfg,
		states: append([]states.State(nil), ss...),
		pin0:   pin0,
		dea0:   dea0,
		cache:  cache,
	}, nil
}

// Trajectory returns the cached trajectory for params, running the model on
// a miss. Callers must not modify the returned value.
func (m *Memo) Trajectory(ctx context.Context, params physics.Params) (*dynamo.Trajectory, error) {
	key := memoKey(params)
	if v, ok := m.cache.Get(key); ok {
		m.hits.Add(1)
		return v.(*dynamo.Trajectory), nil
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		if v, ok := m.cache.Get(key); ok {
			m.hits.Add(1)
			return v, nil
		}
		m.misses.Add(1)

		result, err := New(m.solver, params, m.cfg).Run(ctx, m.states, m.pin0, m.dea0)
		if err != nil {
			return nil, err
		}
		m.cache.Add(key, result.Trajectory)
		return result.Trajectory, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dynamo.Trajectory), nil
}

// Predict resamples the memoized trajectory at times, in degC.
func (m *Memo) Predict(ctx context.Context, params physics.Params, times []float64) (pin, dea []float64, err error) {
	if err := checkTimes(times); err != nil {
		return nil, nil, err
	}
	tr, err := m.Trajectory(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	return Resample(tr, times)
}

func (m *Memo) Stats() MemoStats {
	return MemoStats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Size:   m.cache.Len(),
	}
}

// memoKey formats every coefficient with round-trip precision.
func memoKey(p physics.Params) string {
	return fmt.Sprintf("%v", p)
}
