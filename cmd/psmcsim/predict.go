package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/psmcsim/internal/automation"
	"github.com/san-kum/psmcsim/internal/config"
	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/experiment"
	"github.com/san-kum/psmcsim/internal/metrics"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/sim"
	"github.com/san-kum/psmcsim/internal/states"
	"github.com/san-kum/psmcsim/internal/storage"
	"github.com/san-kum/psmcsim/internal/viz"
)

// prediction is a finished run together with the inputs that produced it.
type prediction struct {
	cfg     *config.Config
	params  physics.Params
	limits  map[string]metrics.Limit
	states  []states.State
	outcome *experiment.Outcome
}

func statesPath(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.StatesFile != "" {
		return cfg.StatesFile, nil
	}
	return "", fmt.Errorf("no states file given")
}

func runPrediction(ctx context.Context, args []string, inst *sim.Instruments) (*prediction, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	params, err := cfg.ResolveParams()
	if err != nil {
		return nil, err
	}
	limits, err := cfg.ResolveLimits()
	if err != nil {
		return nil, err
	}

	path, err := statesPath(cfg, args)
	if err != nil {
		return nil, err
	}
	ss, err := storage.LoadStates(path)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"file": path, "states": len(ss)}).Info("states loaded")

	exp := experiment.New(experiment.Config{
		Solver: cfg.Solver,
		Params: params,
		Dt:     cfg.Dt,
		PIN0:   cfg.InitState.PIN,
		DEA0:   cfg.InitState.DEA,
		States: ss,
		Limits: limits,
	}, log)
	if err := exp.Setup(registry, inst); err != nil {
		return nil, err
	}

	out, err := exp.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &prediction{cfg: cfg, params: params, limits: limits, states: ss, outcome: out}, nil
}

func newPredictCmd() *cobra.Command {
	var (
		noSave      bool
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "predict [states-file]",
		Short: "predict 1PIN1AT and 1PDEAAT over a state sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				reg  *prometheus.Registry
				inst *sim.Instruments
			)
			if metricsFile != "" {
				reg = prometheus.NewRegistry()
				var err error
				if inst, err = sim.NewInstruments(reg); err != nil {
					return err
				}
			}

			p, err := runPrediction(cmd.Context(), args, inst)
			if err != nil {
				return err
			}
			printSummary(p)

			if !noSave {
				id, err := saveRun(p)
				if err != nil {
					return err
				}
				fmt.Printf("\nsaved run %s\n", id)
			}

			if reg != nil {
				if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
	return cmd
}

func printSummary(p *prediction) {
	res := p.outcome.Result
	t0, x0 := res.Trajectory.At(0)
	t1, x1 := res.Trajectory.Last()
	c0, c1 := x0.Celsius(), x1.Celsius()

	fmt.Printf("segments: %d  samples: %d\n", res.Segments, res.Trajectory.Len())
	fmt.Printf("start  t=%-12.1f 1PIN1AT=%7.2f C  1PDEAAT=%7.2f C\n", t0, c0[dynamo.NodePIN], c0[dynamo.NodeDEA])
	fmt.Printf("end    t=%-12.1f 1PIN1AT=%7.2f C  1PDEAAT=%7.2f C\n", t1, c1[dynamo.NodePIN], c1[dynamo.NodeDEA])
	fmt.Println()
	fmt.Println(viz.PlotTemperatures(res.Trajectory, 80, 12))

	if n := len(p.outcome.Violations); n > 0 {
		fmt.Printf("\n%d planning limit violation(s), run 'check' for details\n", n)
	}
}

func saveRun(p *prediction) (string, error) {
	st := storage.New(dataDir(), log)
	if err := st.Init(); err != nil {
		return "", err
	}

	meta := storage.RunMetadata{
		Preset:     p.cfg.Preset,
		Params:     p.params,
		Solver:     p.cfg.Solver,
		Dt:         p.cfg.DynamoConfig().Dt,
		PIN0:       p.cfg.InitState.PIN,
		DEA0:       p.cfg.InitState.DEA,
		Violations: p.outcome.Violations,
	}
	if p.cfg.Params != nil {
		meta.Preset = ""
	}
	return st.Save(meta, p.outcome.Result, p.states)
}

func newCheckCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "check [states-file]",
		Short: "check a state sequence against the planning limits",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := runPrediction(cmd.Context(), args, nil)
			if err != nil {
				return err
			}

			viols := p.outcome.Violations
			if jsonOut {
				if err := storage.ExportViolations(os.Stdout, viols); err != nil {
					return err
				}
			} else {
				fmt.Println(viz.CheckReport(p.outcome.Result.Trajectory, p.limits, viols, p.outcome.Result.Metrics))
			}

			if len(viols) > 0 {
				return fmt.Errorf("%d planning limit violation(s)", len(viols))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print violations as JSON")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var chunks int

	cmd := &cobra.Command{
		Use:   "validate [telemetry-csv] [states-file]",
		Short: "compare the model with telemetry and check residual quantiles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			params, err := cfg.ResolveParams()
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			tlm, err := storage.ReadTemperaturesCSV(file)
			file.Close()
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			if tlm.Len() == 0 {
				return fmt.Errorf("telemetry: no samples")
			}

			ss, err := storage.LoadStates(args[1])
			if err != nil {
				return err
			}

			pinT := tlm.Channel(dynamo.NodePIN, true)
			deaT := tlm.Channel(dynamo.NodeDEA, true)
			initial := func(t float64) (float64, float64, error) {
				at := []float64{t}
				pin, err := sim.Interpolate(tlm.Times, pinT, at)
				if err != nil {
					return 0, 0, fmt.Errorf("telemetry: %w", err)
				}
				dea, err := sim.Interpolate(tlm.Times, deaT, at)
				if err != nil {
					return 0, 0, fmt.Errorf("telemetry: %w", err)
				}
				return pin[0], dea[0], nil
			}

			if chunks <= 0 {
				chunks = 1
			}
			parts, err := sim.SplitChunks(ss, tlm.Times, chunks, initial)
			if err != nil {
				return err
			}

			solver, err := registry.GetSolver(cfg.Solver)
			if err != nil {
				return err
			}
			ens := sim.NewEnsemble(solver, cfg.DynamoConfig(), cfg.Workers)
			pin, dea, err := ens.Run(cmd.Context(), parts, params)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"chunks": len(parts), "samples": len(pin)}).Info("model evaluated")

			resid := map[string][]float64{
				metrics.MSIDPIN: residuals(pinT, pin),
				metrics.MSIDDEA: residuals(deaT, dea),
			}

			allOK := true
			for _, msid := range []string{metrics.MSIDDEA, metrics.MSIDPIN} {
				checks, ok, err := metrics.CheckValidation(msid, resid[msid], metrics.ValidationLimits)
				if err != nil {
					return err
				}
				fmt.Println(viz.ValidationReport(msid, checks))
				allOK = allOK && ok
			}

			if !allOK {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&chunks, "chunks", 1, "split the timeline into this many independent chunks")
	return cmd
}

func residuals(tlm, model []float64) []float64 {
	out := make([]float64, len(tlm))
	for i := range tlm {
		out[i] = tlm[i] - model[i]
	}
	return out
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [scenario-yaml]",
		Short: "run every case of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"scenario": scenario.Name, "cases": len(scenario.Cases)}).Info("running scenario")

			results, err := automation.RunScenario(cmd.Context(), scenario, registry, log)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CASE\tSEGMENTS\tEND PIN\tEND DEA\tPEAK DEA\tVIOLATIONS")
			for _, r := range results {
				res := r.Outcome.Result
				_, last := res.Trajectory.Last()
				c := last.Celsius()
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%d\n",
					r.Name, res.Segments, c[dynamo.NodePIN], c[dynamo.NodeDEA],
					res.Metrics["peak_"+metrics.MSIDDEA], len(r.Outcome.Violations))
			}
			return w.Flush()
		},
	}
}

func newSweepCmd() *cobra.Command {
	var (
		param    string
		lo, hi   float64
		numSteps int
	)

	cmd := &cobra.Command{
		Use:   "sweep [states-file]",
		Short: "vary one model coefficient and report the peak temperatures",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			params, err := cfg.ResolveParams()
			if err != nil {
				return err
			}
			path, err := statesPath(cfg, args)
			if err != nil {
				return err
			}
			ss, err := storage.LoadStates(path)
			if err != nil {
				return err
			}
			solver, err := registry.GetSolver(cfg.Solver)
			if err != nil {
				return err
			}

			memo, err := sim.NewMemo(solver, cfg.DynamoConfig(), ss, cfg.InitState.PIN, cfg.InitState.DEA, cfg.MemoSize)
			if err != nil {
				return err
			}

			sweep := automation.ParameterSweep{Param: strings.ToLower(param), Min: lo, Max: hi, NumSteps: numSteps}
			results, err := automation.RunSweep(cmd.Context(), sweep, params, memo)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tPEAK PIN\tPEAK DEA\tEND PIN\tEND DEA\n", strings.ToUpper(sweep.Param))
			peaks := make([]float64, len(results))
			for i, r := range results {
				peaks[i] = r.PeakDEA
				fmt.Fprintf(w, "%.4g\t%.2f\t%.2f\t%.2f\t%.2f\n",
					r.ParamValue, r.PeakPIN, r.PeakDEA, r.Final[dynamo.NodePIN], r.Final[dynamo.NodeDEA])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println()
			fmt.Println(viz.PlotSeries(peaks, 60, 10, fmt.Sprintf("peak 1PDEAAT vs %s", sweep.Param)))
			return nil
		},
	}
	cmd.Flags().StringVar(&param, "param", "u01", "coefficient to vary")
	cmd.Flags().Float64Var(&lo, "min", 5, "first value")
	cmd.Flags().Float64Var(&hi, "max", 7, "last value")
	cmd.Flags().IntVar(&numSteps, "steps", 11, "number of values")
	return cmd
}
