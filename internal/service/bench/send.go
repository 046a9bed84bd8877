package bench

import (
	"context"
	"fmt"

	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/spool"
)

// Send validates a wake event and queues it in the device spool. The device
// picks it up through its spool watcher, so delivery works whether the board
// is awake or light-sleeping.
func Send(ctx context.Context, opts *Options, event *spool.Event) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sleepwake-bench")

	// Load settings and apply command line overrides.
	cfg, err := resolveConfig(opts)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	path, err := spool.Write(cfg.SpoolDir, event)
	if err != nil {
		return fmt.Errorf("queue event: %w", err)
	}

	logger.InfoKV(ctx, "Event queued",
		"kind", string(event.Kind),
		"id", event.ID,
		"path", path)

	return nil
}
