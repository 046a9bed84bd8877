package device

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/scenario"
	"github.com/oshokin/sleepwake/internal/spool"
	"github.com/oshokin/sleepwake/pkg/alarm"
	"github.com/oshokin/sleepwake/pkg/hal/sim"
	"github.com/oshokin/sleepwake/pkg/sleep"
)

// pumpEvents writes scheduled wake events into the spool at their offsets,
// measured from the moment the pump starts. Delivery then goes through the
// same watcher path as events injected from the bench.
func pumpEvents(ctx context.Context, spoolDir string, events []scenario.ScheduledEvent) error {
	ordered := make([]scenario.ScheduledEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].After < ordered[j].After
	})

	base := time.Now()

	for i := range ordered {
		event := &ordered[i]

		timer := time.NewTimer(time.Until(base.Add(event.After)))

		select {
		case <-ctx.Done():
			timer.Stop()

			return nil
		case <-timer.C:
		}

		spoolEvent := event.SpoolEvent()

		if _, err := spool.Write(spoolDir, &spoolEvent); err != nil {
			return fmt.Errorf("write scheduled event: %w", err)
		}

		logger.InfoKV(ctx, "Scheduled event injected",
			"kind", string(spoolEvent.Kind),
			"after", event.After.String())
	}

	return nil
}

// runSteps executes the scenario steps in order. Steps guarded by a wake
// cause that does not match this boot's wake alarm are skipped, which lets
// one script describe every boot of a multi-reset run.
func runSteps(ctx context.Context, engine *sleep.Engine, board *sim.Board, script *scenario.Scenario) error {
	for i := range script.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := &script.Steps[i]
		stepCtx := logger.WithKV(ctx, "step", i+1)

		if !step.When.Matches(engine.WakeAlarm()) {
			logger.Debug(stepCtx, "Step skipped, wake cause does not match")
			continue
		}

		if err := runStep(stepCtx, engine, board, step); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Scenario complete", "name", script.Name)

	return nil
}

// runStep executes a single scenario step.
func runStep(ctx context.Context, engine *sleep.Engine, board *sim.Board, step *scenario.Step) error {
	switch {
	case step.Log != "":
		logger.Info(ctx, step.Log)
	case step.Report:
		reportState(ctx, board, engine)
	case step.LightSleep != nil:
		woke, err := engine.LightSleepUntilAlarms(ctx, step.LightSleep.Descriptors(time.Now())...)
		if err != nil {
			return fmt.Errorf("light sleep: %w", err)
		}

		logger.InfoKV(ctx, "Woke from light sleep", "alarm", describeAlarm(woke))
	case step.DeepSleep != nil:
		logger.InfoKV(ctx, "Entering deep sleep", "alarms", len(step.DeepSleep.Alarms))

		// A wake re-executes the process instead of returning, so reaching
		// the error below means the run was cancelled while asleep.
		if err := engine.DeepSleepUntilAlarms(ctx, step.DeepSleep.Descriptors(time.Now())...); err != nil {
			return fmt.Errorf("deep sleep: %w", err)
		}
	}

	return nil
}

// reportBoot logs the identity of this boot right after wake resolution.
func reportBoot(ctx context.Context, board *sim.Board, engine *sleep.Engine) {
	logger.InfoKV(ctx, "Board booted",
		"board", board.Capabilities().Name,
		"boot_id", board.BootID(),
		"reset_cause", board.ResetCause().String(),
		"wake_alarm", describeAlarm(engine.WakeAlarm()))
}

// reportState logs the state an operator checks mid-scenario.
func reportState(ctx context.Context, board *sim.Board, engine *sleep.Engine) {
	logger.InfoKV(ctx, "Device report",
		"reset_cause", board.ResetCause().String(),
		"wake_alarm", describeAlarm(engine.WakeAlarm()),
		"boot_id", board.BootID())
}

func describeAlarm(d alarm.Descriptor) string {
	if d == nil {
		return "none"
	}

	return d.String()
}
