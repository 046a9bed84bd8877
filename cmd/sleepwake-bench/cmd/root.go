package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/service/bench"
	"github.com/oshokin/sleepwake/internal/spool"
	"github.com/oshokin/sleepwake/internal/version"
)

// defaultTouchReading comfortably exceeds the thresholds used in scenarios.
const defaultTouchReading uint16 = 1000

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateDir is the power-domain directory override.
	stateDir string
	// spoolDir is the event spool directory override.
	spoolDir string
	// touchReading is the pad reading delivered by send-touch.
	touchReading uint16
	// logLevel is the minimum level for log output.
	logLevel string

	// rootCmd represents the base command for the device test bench.
	rootCmd = &cobra.Command{
		Use:   "sleepwake-bench",
		Short: "Inject wake events into a simulated device and inspect its state.",
		Long: `Operates the test bench side of the simulator: queues wake events in the
spool directory a running sleepwake-sim watches, and reports what the bench
can see of the device from outside its process.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}

	// sendPinCmd injects a pin level change.
	sendPinCmd = &cobra.Command{
		Use:   "send-pin [pin] [high|low]",
		Short: "Drive a pin level, waking a device sleeping on that pin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			pin, err := parsePinNumber(args[0])
			if err != nil {
				return err
			}

			// The level defaults to high, the usual wake polarity.
			high := true
			if len(args) > 1 {
				if high, err = parseLevel(args[1]); err != nil {
					return err
				}
			}

			return runWithSignals(func(ctx context.Context) error {
				return bench.Send(ctx, benchOptions(), &spool.Event{
					Kind: spool.EventPin,
					Pin:  pin,
					High: high,
				})
			})
		},
	}

	// sendTouchCmd injects a touch pad reading.
	sendTouchCmd = &cobra.Command{
		Use:   "send-touch [pad]",
		Short: "Deliver a touch reading, waking a device sleeping on that pad.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pad, err := parsePinNumber(args[0])
			if err != nil {
				return err
			}

			return runWithSignals(func(ctx context.Context) error {
				return bench.Send(ctx, benchOptions(), &spool.Event{
					Kind:    spool.EventTouch,
					Pin:     pad,
					Reading: touchReading,
				})
			})
		},
	}

	// sendCoprocCmd injects a coprocessor wake signal.
	sendCoprocCmd = &cobra.Command{
		Use:   "send-coproc",
		Short: "Signal a wake from the always-on coprocessor.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWithSignals(func(ctx context.Context) error {
				return bench.Send(ctx, benchOptions(), &spool.Event{Kind: spool.EventCoproc})
			})
		},
	}

	// statusCmd reports device process, board state and spool backlog.
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Report device process, persisted board state and spool backlog.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWithSignals(func(ctx context.Context) error {
				return bench.Status(ctx, benchOptions())
			})
		},
	}
)

// Execute runs the sleepwake-bench CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "path to configuration file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&stateDir, "state-dir", "d", "", "power-domain directory")
	rootCmd.PersistentFlags().StringVar(&spoolDir, "spool-dir", "", "event spool directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	sendTouchCmd.Flags().Uint16Var(&touchReading, "reading", defaultTouchReading, "touch reading to deliver")

	rootCmd.AddCommand(sendPinCmd, sendTouchCmd, sendCoprocCmd, statusCmd)
}

// runWithSignals runs an operation under graceful shutdown handling.
func runWithSignals(run func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return run(ctx)
}

// benchOptions collects the persistent flags into bench options.
func benchOptions() *bench.Options {
	return &bench.Options{
		ConfigPath: configPath,
		StateDir:   stateDir,
		SpoolDir:   spoolDir,
	}
}

// parsePinNumber parses a pin or pad number argument.
func parsePinNumber(s string) (uint8, error) {
	value, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parse pin number %q: %w", s, err)
	}

	return uint8(value), nil
}

// parseLevel parses a pin level argument.
func parseLevel(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "high":
		return true, nil
	case "low":
		return false, nil
	default:
		return false, fmt.Errorf("unknown pin level %q, want high or low", s)
	}
}
