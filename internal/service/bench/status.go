package bench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/sleepwake/internal/config"
	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/spool"
	"github.com/oshokin/sleepwake/pkg/hal/sim"
)

// baseDeviceExecutable is the device binary name without platform extension.
const baseDeviceExecutable = "sleepwake-sim"

// Status reports what the bench can see of a device: whether its process is
// running, the persisted board state and the spool backlog.
func Status(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sleepwake-bench")

	// Load settings and apply command line overrides.
	cfg, err := resolveConfig(opts)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = reportProcesses(ctx); err != nil {
		return err
	}

	reportBoard(ctx, cfg)

	return reportSpool(ctx, cfg)
}

// reportProcesses scans the process table for running device instances.
func reportProcesses(ctx context.Context) error {
	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()
	target := deviceExecutable()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != target {
			continue
		}

		pids = append(pids, process.Pid())
	}

	if len(pids) == 0 {
		logger.Info(ctx, "Device process not running")
		return nil
	}

	logger.InfoKV(ctx, "Device process running", "pids", pids)

	return nil
}

// reportBoard reads the persisted board state without opening the board.
func reportBoard(ctx context.Context, cfg *config.Config) {
	status, err := sim.ReadStatus(cfg.StateDir)

	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.InfoKV(ctx, "No board state, device never ran", "state_dir", cfg.StateDir)
		return
	case err != nil:
		logger.WarnKV(ctx, "Board state unreadable", "state_dir", cfg.StateDir, "error", err)
		return
	}

	kvs := []any{
		"boot_id", status.BootID,
		"written_at", status.WrittenAt.Format(time.RFC3339),
		"driven_pins", len(status.PinLevels),
	}

	if status.PendingWake != nil {
		kvs = append(kvs,
			"pending_cause", status.PendingWake.Cause,
			"pending_sources", pendingSources(status.PendingWake))
	}

	logger.InfoKV(ctx, "Board state", kvs...)
}

// reportSpool counts events still waiting for the device.
func reportSpool(ctx context.Context, cfg *config.Config) error {
	events, err := spool.Pending(cfg.SpoolDir)
	if err != nil {
		return fmt.Errorf("read spool: %w", err)
	}

	if len(events) == 0 {
		logger.Info(ctx, "Spool empty")
		return nil
	}

	logger.InfoKV(ctx, "Spool backlog",
		"events", len(events),
		"oldest_age", time.Since(events[0].SentAt).Round(time.Millisecond).String())

	return nil
}

// pendingSources renders the latched wake sources of a handoff.
func pendingSources(wake *sim.PendingWake) string {
	var parts []string

	if wake.Timer {
		parts = append(parts, "timer")
	}

	for _, pin := range wake.Pins {
		parts = append(parts, fmt.Sprintf("pin%d", pin))
	}

	for _, pad := range wake.TouchPads {
		parts = append(parts, fmt.Sprintf("touch%d", pad))
	}

	if wake.Coproc {
		parts = append(parts, "coproc")
	}

	if len(parts) == 0 {
		return "none"
	}

	return strings.Join(parts, ",")
}

// deviceExecutable returns the device binary name for the current platform.
func deviceExecutable() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return baseDeviceExecutable + ".exe"
	}

	return baseDeviceExecutable
}
