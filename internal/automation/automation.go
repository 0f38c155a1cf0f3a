// Package automation runs batches of predictions and parameter
// sensitivity sweeps.
package automation

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/psmcsim/internal/config"
	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/experiment"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/sim"
	"github.com/san-kum/psmcsim/internal/states"
	"github.com/san-kum/psmcsim/internal/storage"
)

// Scenario is a scripted set of predictions, for example one per load in
// a review week.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Cases       []Case `yaml:"cases"`

	dir string
}

// Case is one prediction. StatesFile is relative to the scenario file.
type Case struct {
	Name       string             `yaml:"name"`
	StatesFile string             `yaml:"states_file"`
	Preset     string             `yaml:"preset"`
	Overrides  map[string]float64 `yaml:"overrides"`
	Solver     string             `yaml:"solver"`
	Dt         float64            `yaml:"dt"`
	PIN0       float64            `yaml:"pin0"`
	DEA0       float64            `yaml:"dea0"`
}

type CaseResult struct {
	Name    string
	States  []states.State
	Outcome *experiment.Outcome
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	scenario.dir = filepath.Dir(path)
	return &scenario, nil
}

func (s *Scenario) resolve(p string) string {
	if filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// RunScenario executes every case in order, stopping at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, log logrus.FieldLogger) ([]CaseResult, error) {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	results := make([]CaseResult, 0, len(scenario.Cases))

	for i, c := range scenario.Cases {
		clog := log.WithFields(logrus.Fields{"case": c.Name, "step": fmt.Sprintf("%d/%d", i+1, len(scenario.Cases))})
		clog.Info("running case")

		ss, err := storage.LoadStates(scenario.resolve(c.StatesFile))
		if err != nil {
			return results, fmt.Errorf("case %q: %w", c.Name, err)
		}

		cfg := config.DefaultConfig()
		if c.Preset != "" {
			cfg.Preset = c.Preset
		}
		cfg.Overrides = c.Overrides
		params, err := cfg.ResolveParams()
		if err != nil {
			return results, fmt.Errorf("case %q: %w", c.Name, err)
		}

		solver := c.Solver
		if solver == "" {
			solver = config.DefaultSolver
		}

		exp := experiment.New(experiment.Config{
			Solver: solver,
			Params: params,
			Dt:     c.Dt,
			PIN0:   c.PIN0,
			DEA0:   c.DEA0,
			States: ss,
		}, clog)
		if err := exp.Setup(registry, nil); err != nil {
			return results, fmt.Errorf("case %q setup: %w", c.Name, err)
		}

		out, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("case %q run: %w", c.Name, err)
		}

		results = append(results, CaseResult{Name: c.Name, States: ss, Outcome: out})
	}

	return results, nil
}

// ParameterSweep varies one coefficient over an even grid while the
// timeline stays fixed.
type ParameterSweep struct {
	Param    string
	Min      float64
	Max      float64
	NumSteps int
}

// SweepResult holds the response of one sweep step, in degC.
type SweepResult struct {
	ParamValue float64
	PeakPIN    float64
	PeakDEA    float64
	Final      dynamo.Vector
}

// RunSweep evaluates the sweep through memo so repeated values are only
// integrated once.
func RunSweep(ctx context.Context, sweep ParameterSweep, base physics.Params, memo *sim.Memo) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step")
	}
	step := 0.0
	if sweep.NumSteps > 1 {
		step = (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		val := sweep.Min + float64(i)*step
		p := base
		if err := p.SetParam(sweep.Param, val); err != nil {
			return nil, err
		}

		tr, err := memo.Trajectory(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, val, err)
		}

		r := SweepResult{ParamValue: val, PeakPIN: math.Inf(-1), PeakDEA: math.Inf(-1)}
		for _, x := range tr.Temps {
			c := x.Celsius()
			r.PeakPIN = math.Max(r.PeakPIN, c[dynamo.NodePIN])
			r.PeakDEA = math.Max(r.PeakDEA, c[dynamo.NodeDEA])
		}
		_, last := tr.Last()
		r.Final = last.Celsius()
		results = append(results, r)
	}

	return results, nil
}
