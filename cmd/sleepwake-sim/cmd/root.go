package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/service/device"
	"github.com/oshokin/sleepwake/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateDir is the power-domain directory override.
	stateDir string
	// spoolDir is the event spool directory override.
	spoolDir string
	// scenarioFile is the scenario script override.
	scenarioFile string
	// logLevel is the minimum level for log output.
	logLevel string

	// rootCmd represents the base command for running the simulated device.
	rootCmd = &cobra.Command{
		Use:   "sleepwake-sim [scenario-file]",
		Short: "Run the simulated sleep-capable device.",
		Long: `Boots a simulated board, resolves the wake alarm for this run and serves
injected wake events from the spool directory.

With a scenario script the device executes its steps: logging, reports, light
sleeps and deep sleeps. A deep-sleep wake re-executes the process, so a single
script describes every boot of a multi-reset run through wake-cause guards.
Without a scenario the device idles until interrupted and reacts to events
injected by sleepwake-bench.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use scenario argument if provided, otherwise rely on flags and config.
			scenario := scenarioFile
			if len(args) > 0 {
				scenario = args[0]
			}

			options := &device.Options{
				ConfigPath:   configPath,
				StateDir:     stateDir,
				SpoolDir:     spoolDir,
				ScenarioFile: scenario,
			}

			return device.Run(ctx, options)
		},
	}
)

// Execute runs the sleepwake-sim CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (defaults apply when empty)")
	rootCmd.Flags().StringVarP(&stateDir, "state-dir", "d", "", "power-domain directory")
	rootCmd.Flags().StringVar(&spoolDir, "spool-dir", "", "event spool directory")
	rootCmd.Flags().StringVarP(&scenarioFile, "scenario", "s", "", "path to scenario script")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}
