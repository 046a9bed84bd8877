package device

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/sleepwake/internal/config"
	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/scenario"
	"github.com/oshokin/sleepwake/internal/spool"
	"github.com/oshokin/sleepwake/pkg/hal"
	"github.com/oshokin/sleepwake/pkg/hal/sim"
	"github.com/oshokin/sleepwake/pkg/sleep"
)

// Options controls the simulated device run.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file. Defaults apply
	// when empty.
	ConfigPath string
	// StateDir provides an optional power-domain directory override.
	StateDir string
	// SpoolDir provides an optional event spool directory override.
	SpoolDir string
	// ScenarioFile provides an optional scenario script override.
	ScenarioFile string
	// Restart replaces the process re-exec performed after a deep-sleep wake.
	// Tests inject a hook here; the binary leaves it nil.
	Restart func()
}

// Run boots a simulated board and blocks until the scenario completes or ctx
// is cancelled. Without a scenario the device idles and serves injected wake
// events until cancellation.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sleepwake-sim")

	// Load settings and apply command line overrides.
	cfg, err := resolveConfig(opts)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	restart := opts.Restart
	if restart == nil {
		restart = execRestart(ctx)
	}

	// A configured profile replaces the default devkit capabilities.
	var caps hal.Capabilities
	if cfg.Profile != nil {
		caps = cfg.Profile.Capabilities()
	}

	// Open the power domain and boot the board from whatever the previous run
	// left there.
	board, err := sim.New(sim.Options{
		StateDir:     cfg.StateDir,
		Profile:      caps,
		RetainedSize: cfg.RetainedSize,
		Restart:      restart,
	})
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}

	// Ensure the software reset cause is persisted on a plain exit.
	defer func() {
		_ = board.Close()
	}()

	// The engine resolves the wake alarm for this boot before anything else
	// observes the board.
	engine, err := sleep.New(ctx, board)
	if err != nil {
		return fmt.Errorf("start alarm engine: %w", err)
	}

	reportBoot(ctx, board, engine)

	// An optional scenario script drives the rest of the run.
	var script *scenario.Scenario
	if cfg.ScenarioFile != "" {
		if script, err = scenario.Load(cfg.ScenarioFile); err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}

		logger.InfoKV(ctx, "Scenario loaded",
			"name", script.Name,
			"events", len(script.Events),
			"steps", len(script.Steps))
	}

	// Watch the spool for injected wake events.
	watcher, err := spool.NewWatcher(cfg.SpoolDir, board)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}

	// Scenario completion stops the group; any subsystem error cancels the
	// rest through the group context.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		if werr := watcher.Run(gctx); werr != nil && !errors.Is(werr, context.Canceled) {
			return fmt.Errorf("spool watcher: %w", werr)
		}

		return nil
	})

	switch {
	case script != nil:
		if len(script.Events) > 0 {
			g.Go(func() error {
				return pumpEvents(gctx, cfg.SpoolDir, script.Events)
			})
		}

		g.Go(func() error {
			defer stop()

			return runSteps(gctx, engine, board, script)
		})
	default:
		logger.InfoKV(ctx, "No scenario, serving injected events", "spool_dir", cfg.SpoolDir)
	}

	err = g.Wait()

	// Cancellation is the regular stop path, including an external reset
	// during deep sleep.
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info(ctx, "Device stopped")

	return nil
}

// resolveConfig loads the configuration file and applies overrides. The spool
// directory follows a state directory override unless set explicitly.
func resolveConfig(opts *Options) (*config.Config, error) {
	cfg := &config.Config{}

	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if opts.StateDir != "" {
		cfg.StateDir = opts.StateDir
		cfg.SpoolDir = filepath.Join(opts.StateDir, config.DefaultSpoolDirname)
	}

	if opts.SpoolDir != "" {
		cfg.SpoolDir = opts.SpoolDir
	}

	if opts.ScenarioFile != "" {
		cfg.ScenarioFile = opts.ScenarioFile
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
