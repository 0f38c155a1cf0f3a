package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/psmcsim/internal/analysis"
	"github.com/san-kum/psmcsim/internal/config"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/power"
	"github.com/san-kum/psmcsim/internal/storage"
	"github.com/san-kum/psmcsim/internal/viz"
)

func newSettleCmd() *cobra.Command {
	sc := analysis.DefaultSweep()
	var pitchMin, pitchMax, pitchStep float64

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "settling temperatures of a long constant state across pitch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			params, err := cfg.ResolveParams()
			if err != nil {
				return err
			}
			solver, err := registry.GetSolver(cfg.Solver)
			if err != nil {
				return err
			}

			pitches := analysis.PitchRange(pitchMin, pitchMax, pitchStep)
			if len(pitches) == 0 {
				return fmt.Errorf("empty pitch range %g..%g step %g", pitchMin, pitchMax, pitchStep)
			}

			points, err := analysis.SettlingSweep(cmd.Context(), solver, params, pitches, sc)
			if err != nil {
				return err
			}

			fmt.Printf("%.1f W at SIM position %.0f for %.0f ks\n\n", sc.Power, sc.SimPos, sc.Duration/1000)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PITCH\tPIN\tDEA\tFIXED PIN\tFIXED DEA")
			for _, p := range points {
				fmt.Fprintf(w, "%.1f\t%.2f\t%.2f\t%.2f\t%.2f\n", p.Pitch, p.PIN, p.DEA, p.Fixed[0], p.Fixed[1])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println()
			fmt.Println(viz.PlotSettling(points, 70, 12))
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&sc.Power, "power", sc.Power, "PSMC power in W")
	f.Float64Var(&sc.SimPos, "simpos", sc.SimPos, "SIM translation position")
	f.Float64Var(&sc.Duration, "duration", sc.Duration, "state length in seconds")
	f.Float64Var(&sc.PIN0, "start-pin", sc.PIN0, "initial 1PIN1AT in degC")
	f.Float64Var(&sc.DEA0, "start-dea", sc.DEA0, "initial 1PDEAAT in degC")
	f.Float64Var(&sc.Dt, "sweep-dt", sc.Dt, "sample spacing of each run in seconds")
	f.Float64Var(&pitchMin, "pitch-min", 45, "first pitch in degrees")
	f.Float64Var(&pitchMax, "pitch-max", 170, "last pitch in degrees")
	f.Float64Var(&pitchStep, "pitch-step", 5, "pitch step in degrees")
	return cmd
}

func newPhaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phase [run_id]",
		Short: "plot a stored run in the 1PIN1AT/1PDEAAT plane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir(), log)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			tr, err := st.LoadTemperatures(args[0])
			if err != nil {
				return err
			}
			ss, err := st.LoadRunStates(args[0])
			if err != nil {
				return err
			}

			portrait := analysis.NewPhasePortrait(tr)
			if portrait == nil {
				return fmt.Errorf("run %s has no samples", args[0])
			}

			last := ss[len(ss)-1]
			seg, err := physics.NewSegment(meta.Params, last.Power, last.Pitch, last.SimPos)
			if err != nil {
				return err
			}
			fixed, err := seg.SteadyState()
			if err != nil {
				return err
			}
			portrait.Mark(fixed.Celsius())

			fmt.Printf("run: %s  x: 1PIN1AT  y: 1PDEAAT  (× = fixed point of the last state)\n\n", meta.ID)
			fmt.Println(analysis.PhasePortraitToASCII(portrait, 70, 20))
			return nil
		},
	}
}

func newParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "list parameter presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tNOTE")
			for _, name := range config.ListPresets() {
				marker := ""
				if name == config.DefaultPreset {
					marker = " (default)"
				}
				fmt.Fprintf(w, "%s%s\t%s\n", name, marker, config.PresetNote(name))
			}
			return w.Flush()
		},
	}

	var savePath string
	show := &cobra.Command{
		Use:   "show [preset]",
		Short: "show the resolved coefficients",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Preset = args[0]
				cfg.Params = nil
			}
			params, err := cfg.ResolveParams()
			if err != nil {
				return err
			}

			values := params.GetParams()
			names := make([]string, 0, len(values))
			for name := range values {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%g\n", strings.ToUpper(name), values[name])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if savePath == "" {
				return nil
			}
			cfg.Params = &params
			cfg.Overrides = nil
			if err := config.Save(savePath, cfg); err != nil {
				return err
			}
			log.WithField("path", savePath).Info("config saved")
			return nil
		},
	}
	show.Flags().StringVar(&savePath, "save", "", "write the settings with these coefficients inlined to a config file")
	cmd.AddCommand(show)
	return cmd
}

func newPowerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "power",
		Short: "print the power calibration table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FEP_COUNT\tVID_BOARD\tCLOCKING\tPOWER (W)")
			for _, k := range power.Default.Keys() {
				fmt.Fprintf(w, "%d\t%d\t%d\t%.1f\n", k.FEPCount, k.VidBoard, k.Clocking, power.Default[k])
			}
			return w.Flush()
		},
	}
}
