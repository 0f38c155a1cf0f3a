// Package experiment wires a configured prediction: solver, parameters,
// metrics and limit checks.
package experiment

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/metrics"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/sim"
	"github.com/san-kum/psmcsim/internal/states"
)

type Config struct {
	Solver string
	Params physics.Params
	Dt     float64
	PIN0   float64
	DEA0   float64
	States []states.State
	Limits map[string]metrics.Limit
}

type Experiment struct {
	cfg       Config
	simulator *sim.Simulator
	log       logrus.FieldLogger
}

// Outcome is a finished prediction with its planning-limit violations.
type Outcome struct {
	Result     *dynamo.Result
	Violations []metrics.Violation
}

func New(cfg Config, log logrus.FieldLogger) *Experiment {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	if cfg.Limits == nil {
		cfg.Limits = metrics.DefaultLimits()
	}
	return &Experiment{cfg: cfg, log: log}
}

func (e *Experiment) Setup(reg *Registry, inst *sim.Instruments) error {
	solver, err := reg.GetSolver(e.cfg.Solver)
	if err != nil {
		return err
	}

	dcfg := dynamo.DefaultConfig()
	if e.cfg.Dt > 0 {
		dcfg.Dt = e.cfg.Dt
	}

	e.simulator = sim.New(solver, e.cfg.Params, dcfg)
	e.simulator.SetLogger(e.log)
	e.simulator.SetInstruments(inst)
	for _, m := range reg.DefaultMetrics(e.cfg.Limits) {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	result, err := e.simulator.Run(ctx, e.cfg.States, e.cfg.PIN0, e.cfg.DEA0)
	if err != nil {
		return nil, err
	}

	viols := metrics.CheckTrajectory(result.Trajectory, e.cfg.Limits)
	for _, v := range viols {
		e.log.WithFields(logrus.Fields{
			"msid":     v.MSID,
			"limit":    v.Limit,
			"tstart":   v.Start,
			"tstop":    v.Stop,
			"max_temp": v.MaxTemp,
		}).Warn("planning limit exceeded")
	}

	e.log.WithFields(logrus.Fields{
		"segments": result.Segments,
		"samples":  result.Trajectory.Len(),
	}).Info("prediction complete")

	return &Outcome{Result: result, Violations: viols}, nil
}
