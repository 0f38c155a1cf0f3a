package analysis

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/sim"
	"github.com/san-kum/psmcsim/internal/states"
)

// SimPosHRCS is the nominal HRC-S SIM translation position.
const SimPosHRCS = -99616

// SettlingPoint is the outcome of one sweep step, in degC.
type SettlingPoint struct {
	Pitch float64
	PIN   float64
	DEA   float64
	// Fixed is the analytic fixed point the run converges to.
	Fixed dynamo.Vector
}

type SweepConfig struct {
	Power    float64
	SimPos   float64
	Duration float64
	PIN0     float64
	DEA0     float64
	Dt       float64
}

// DefaultSweep holds one FEP powered at HRC-S for 500 ks, sampled every
// 10 ks.
func DefaultSweep() SweepConfig {
	return SweepConfig{
		Power:    40.0,
		SimPos:   SimPosHRCS,
		Duration: 500000,
		PIN0:     35,
		DEA0:     25,
		Dt:       10000,
	}
}

// PitchRange returns lo, lo+step, ... up to and including hi.
func PitchRange(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}
	n := int((hi-lo)/step+1e-9) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// SettlingSweep runs a single constant state at every pitch and records the
// final temperatures. Pitches are evaluated concurrently; the result keeps
// their order.
func SettlingSweep(ctx context.Context, solver sim.Solver, params physics.Params, pitches []float64, cfg SweepConfig) ([]SettlingPoint, error) {
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("sweep duration must be positive, got %f", cfg.Duration)
	}
	dcfg := dynamo.DefaultConfig()
	if cfg.Dt > 0 {
		dcfg.Dt = cfg.Dt
	}

	results := make([]SettlingPoint, len(pitches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, pitch := range pitches {
		i, pitch := i, pitch
		g.Go(func() error {
			ss := []states.State{{Start: 0, Stop: cfg.Duration, Power: cfg.Power, Pitch: pitch, SimPos: cfg.SimPos}}
			result, err := sim.New(solver, params, dcfg).Run(ctx, ss, cfg.PIN0, cfg.DEA0)
			if err != nil {
				return fmt.Errorf("pitch %.1f: %w", pitch, err)
			}

			seg, err := physics.NewSegment(params, cfg.Power, pitch, cfg.SimPos)
			if err != nil {
				return fmt.Errorf("pitch %.1f: %w", pitch, err)
			}
			fixed, err := seg.SteadyState()
			if err != nil {
				return fmt.Errorf("pitch %.1f: %w", pitch, err)
			}

			_, last := result.Trajectory.Last()
			c := last.Celsius()
			results[i] = SettlingPoint{Pitch: pitch, PIN: c[0], DEA: c[1], Fixed: fixed.Celsius()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
