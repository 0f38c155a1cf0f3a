package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/psmcsim/internal/config"
	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/experiment"
)

var (
	settings = viper.New()
	log      = logrus.New()
	registry = experiment.NewRegistry()
)

// main registers the psmcsim commands and runs the selected one until it
// finishes or the process is interrupted.
func main() {
	rootCmd := &cobra.Command{
		Use:               "psmcsim",
		Short:             "PSMC two-node thermal prediction",
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("data", ".psmcsim", "data directory")
	pf.String("config", "", "config file path (yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text or json)")
	pf.String("preset", config.DefaultPreset, "parameter preset")
	pf.String("solver", config.DefaultSolver, "segment solver")
	pf.Float64("dt", dynamo.DefaultDt, "sample spacing in seconds")
	pf.Float64("pin0", config.DefaultPIN, "initial 1PIN1AT in degC")
	pf.Float64("dea0", config.DefaultDEA, "initial 1PDEAAT in degC")
	pf.Int("workers", 0, "parallel workers (0 = GOMAXPROCS)")

	settings.SetEnvPrefix("PSMCSIM")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(pf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		newPredictCmd(),
		newCheckCmd(),
		newValidateCmd(),
		newScenarioCmd(),
		newSweepCmd(),
		newSettleCmd(),
		newPhaseCmd(),
		newParamsCmd(),
		newPowerCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportCmd(),
		newExportCSVCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	log.SetOutput(os.Stderr)

	switch settings.GetString("log-format") {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", settings.GetString("log-format"))
	}

	level := settings.GetString("log-level")
	if !settings.IsSet("log-level") {
		if path := settings.GetString("config"); path != "" {
			if cfg, err := config.Load(path); err == nil && cfg.LogLevel != "" {
				level = cfg.LogLevel
			}
		}
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// loadSettings merges the config file with flags and PSMCSIM_* variables.
// Explicitly set flags and variables win over the file.
func loadSettings() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := settings.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if settings.IsSet("preset") {
		cfg.Preset = settings.GetString("preset")
		cfg.Params = nil
	}
	if settings.IsSet("solver") {
		cfg.Solver = settings.GetString("solver")
	}
	if settings.IsSet("dt") {
		cfg.Dt = settings.GetFloat64("dt")
	}
	if settings.IsSet("pin0") {
		cfg.InitState.PIN = settings.GetFloat64("pin0")
	}
	if settings.IsSet("dea0") {
		cfg.InitState.DEA = settings.GetFloat64("dea0")
	}
	if settings.IsSet("workers") {
		cfg.Workers = settings.GetInt("workers")
	}

	log.WithFields(logrus.Fields{
		"preset": cfg.Preset,
		"solver": cfg.Solver,
		"dt":     cfg.Dt,
	}).Debug("settings resolved")
	return cfg, nil
}

func dataDir() string {
	return settings.GetString("data")
}
