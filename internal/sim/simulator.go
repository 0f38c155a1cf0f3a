package sim

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/integrators"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/states"
)

// Simulator chains a Solver across a sequence of contiguous states.
type Simulator struct {
	solver  Solver
	params  physics.Params
	cfg     dynamo.Config
	metrics []dynamo.Metric
	inst    *Instruments
	log     logrus.FieldLogger
}

func New(solver Solver, params physics.Params, cfg dynamo.Config) *Simulator {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	return &Simulator{
		solver:  solver,
		params:  params,
		cfg:     cfg,
		metrics: make([]dynamo.Metric, 0),
		log:     quiet,
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric) { s.metrics = append(s.metrics, m) }

func (s *Simulator) SetLogger(l logrus.FieldLogger) {
	s.log = l
}

func (s *Simulator) SetInstruments(inst *Instruments) {
	s.inst = inst
}

func (s *Simulator) Params() physics.Params {
	return s.params
}

func (s *Simulator) Config() dynamo.Config {
	return s.cfg
}

// SampleTimes returns the elapsed times, in seconds, at which a segment of
// the given duration is evaluated: max(1, floor(duration/dt)) + 2 evenly
// spaced points including both ends. A zero-length segment gets its two
// end points only.
func SampleTimes(duration, dt float64) []float64 {
	return fillSampleTimes(nil, duration, dt)
}

func sampleCount(duration, dt float64) int {
	if duration <= 0 {
		return 2
	}
	n := int(math.Floor(duration / dt))
	if n < 1 {
		n = 1
	}
	return n + 2
}

func fillSampleTimes(buf []float64, duration, dt float64) []float64 {
	n := sampleCount(duration, dt)
	if cap(buf) < n {
		buf = make([]float64, n)
	}
	buf = buf[:n]
	if duration <= 0 {
		buf[0], buf[1] = 0, 0
		return buf
	}

	for k := range buf {
		buf[k] = duration * float64(k) / float64(n-1)
	}
	buf[n-1] = duration
	return buf
}

// Run integrates ss from the initial temperatures (degC) at ss[0].Start and
// returns the internal trajectory.
func (s *Simulator) Run(ctx context.Context, ss []states.State, pin0, dea0 float64) (result *dynamo.Result, err error) {
	start := time.Now()
	defer func() { s.inst.observeRun(start, result, err) }()

	if err := s.validateConfig(); err != nil {
		return nil, err
	}
	if err := states.Validate(ss); err != nil {
		return nil, err
	}

	ti := dynamo.Vector{dynamo.ToInternal(pin0), dynamo.ToInternal(dea0)}
	if !ti.IsValid() {
		return nil, fmt.Errorf("%w: initial temperatures pin=%v dea=%v", dynamo.ErrNumericDomain, pin0, dea0)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	capacity := 0
	for _, st := range ss {
		capacity += int(st.Duration()/s.cfg.Dt) + 2
	}

	result = &dynamo.Result{
		Trajectory: dynamo.NewTrajectory(capacity),
		Bounds:     make([]int, 0, len(ss)),
		Metrics:    make(map[string]float64),
	}

	for i, st := range ss {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Validate tolerates a small gap or overlap; each segment starts
		// where the previous one stopped so the time axis never steps back.
		if i > 0 {
			st.Start = ss[i-1].Stop
			if st.Stop < st.Start {
				st.Stop = st.Start
			}
		}

		seg, err := physics.NewSegment(s.params, st.Power, st.Pitch, st.SimPos)
		if err != nil {
			return nil, &dynamo.SegmentError{Index: i, Start: st.Start, Wrapped: err}
		}

		elapsed := fillSampleTimes(elapsedPool.Get(sampleCount(st.Duration(), s.cfg.Dt)), st.Duration(), s.cfg.Dt)
		temps, err := s.solver.Solve(seg, elapsed, ti)
		if err != nil {
			elapsedPool.Put(elapsed)
			return nil, &dynamo.SegmentError{Index: i, Start: st.Start, Wrapped: err}
		}

		result.Bounds = append(result.Bounds, result.Trajectory.Len())
		last := len(elapsed) - 1
		for k, x := range temps {
			t := st.Start + elapsed[k]
			if k == last {
				t = st.Stop
			}
			if s.cfg.ValidateState && !x.IsValid() {
				elapsedPool.Put(elapsed)
				return nil, &dynamo.SegmentError{Index: i, Start: st.Start, Wrapped: dynamo.ErrNumericDomain}
			}
			result.Trajectory.Append(t, x)
			for _, m := range s.metrics {
				m.Observe(x, t)
			}
		}
		ti = temps[last]
		result.Segments++
		samples := len(elapsed)
		elapsedPool.Put(elapsed)

		s.log.WithFields(logrus.Fields{
			"segment": i,
			"tstart":  st.Start,
			"samples": samples,
			"tau1":    -1 / seg.Values[0],
			"tau2":    -1 / seg.Values[1],
		}).Debug("segment integrated")
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// Predict runs ss and resamples PIN and DEA (degC) at times.
func (s *Simulator) Predict(ctx context.Context, ss []states.State, pin0, dea0 float64, times []float64) (pin, dea []float64, err error) {
	if err := checkTimes(times); err != nil {
		return nil, nil, err
	}
	result, err := s.Run(ctx, ss, pin0, dea0)
	if err != nil {
		return nil, nil, err
	}
	return Resample(result.Trajectory, times)
}

// Resample interpolates both channels of tr, in degC, at times.
func Resample(tr *dynamo.Trajectory, times []float64) (pin, dea []float64, err error) {
	pin, err = Interpolate(tr.Times, tr.Channel(dynamo.NodePIN, true), times)
	if err != nil {
		return nil, nil, err
	}
	dea, err = Interpolate(tr.Times, tr.Channel(dynamo.NodeDEA, true), times)
	if err != nil {
		return nil, nil, err
	}
	return pin, dea, nil
}

func checkTimes(times []float64) error {
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: output time %d is %v", dynamo.ErrNumericDomain, i, t)
		}
	}
	return nil
}

// Predict evaluates the model with the analytic solver and returns PIN and
// DEA in degC at times. dt <= 0 selects dynamo.DefaultDt.
func Predict(ctx context.Context, ss []states.State, pin0, dea0 float64, times []float64, params physics.Params, dt float64) ([]float64, []float64, error) {
	cfg := dynamo.DefaultConfig()
	if dt > 0 {
		cfg.Dt = dt
	}
	return New(integrators.NewAnalytic(), params, cfg).Predict(ctx, ss, pin0, dea0, times)
}

func (s *Simulator) validateConfig() error {
	if s.solver == nil {
		return fmt.Errorf("no solver configured")
	}
	if s.cfg.Dt <= 0 || math.IsNaN(s.cfg.Dt) || math.IsInf(s.cfg.Dt, 0) {
		return fmt.Errorf("dt must be positive, got %f", s.cfg.Dt)
	}
	return nil
}
