package sleep

import (
	"context"
	"fmt"

	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/retained"
	"github.com/oshokin/sleepwake/pkg/alarm"
)

// LightSleepUntilAlarms halts execution in place until one of the alarms
// fires, then returns that descriptor as the caller passed it. A sleep that
// ends for another reason, such as ctx cancellation, returns (nil, nil). The
// result also replaces the engine's wake alarm.
//
// Arming is all-or-nothing: a failure while arming releases every source
// armed so far, in reverse order, and reports the fault. Descriptors are
// validated, armed and polled in declaration order, so when several
// conditions are satisfiable at once the first declared one wins.
func (e *Engine) LightSleepUntilAlarms(ctx context.Context, alarms ...alarm.Descriptor) (alarm.Descriptor, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.finish()

	if len(alarms) == 0 {
		return nil, alarm.ErrEmptyAlarmSet
	}

	if err := e.validate(alarms, false); err != nil {
		return nil, err
	}

	if err := e.armAll(ctx, alarms, false); err != nil {
		return nil, err
	}

	e.setPhase(ctx, phaseSleeping)
	logger.DebugKV(ctx, "entering light sleep", "alarms", len(alarms))

	sleepErr := e.board.LightSleep(ctx)
	if sleepErr != nil && ctx.Err() == nil {
		_ = e.disarmAll(ctx, alarms)

		// A latch set during the faulted cycle must not release the next
		// sleep's pre-entry check.
		_ = e.board.ClearWakeStatus()

		return nil, fmt.Errorf("light sleep: %w: %w", alarm.ErrHardwareFault, sleepErr)
	}

	e.setPhase(ctx, phaseResolving)

	if err := e.disarmAll(ctx, alarms); err != nil {
		return nil, err
	}

	woke, err := e.firstFired(alarms)
	if err != nil {
		return nil, err
	}

	if err = e.board.ClearWakeStatus(); err != nil {
		return nil, fmt.Errorf("clear wake status: %w: %w", alarm.ErrHardwareFault, err)
	}

	e.setWakeAlarm(woke)

	if woke != nil {
		logger.InfoKV(ctx, "woke from light sleep", "alarm", woke.String())
	} else {
		logger.InfoKV(ctx, "light sleep ended without an alarm")
	}

	return woke, nil
}

// DeepSleepUntilAlarms validates and arms the alarms, persists the wake
// record for the next boot and powers the board down. On a wake the program
// restarts from the top, so the call never returns then; the next run's
// engine reports the triggering alarm through WakeAlarm. The call comes back
// only when ctx is cancelled, standing in for an external reset, or when the
// board faults.
func (e *Engine) DeepSleepUntilAlarms(ctx context.Context, alarms ...alarm.Descriptor) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.finish()

	if len(alarms) == 0 {
		return alarm.ErrEmptyAlarmSet
	}

	if err := e.validate(alarms, true); err != nil {
		return err
	}

	rec, err := retained.FromAlarms(alarms)
	if err != nil {
		return fmt.Errorf("build wake record: %w", err)
	}

	if err = e.armAll(ctx, alarms, true); err != nil {
		return err
	}

	if err = e.store.Save(rec); err != nil {
		e.rollback(ctx, alarms)

		return fmt.Errorf("persist wake record: %w: %w", alarm.ErrHardwareFault, err)
	}

	e.setPhase(ctx, phaseSleeping)
	logger.InfoKV(ctx, "entering deep sleep", "alarms", len(alarms))

	sleepErr := e.board.DeepSleep(ctx)

	// Control came back, so the reset never happened. Release the hardware
	// before reporting what interrupted the sleep.
	disarmErr := e.disarmAll(ctx, alarms)

	switch {
	case sleepErr != nil && ctx.Err() == nil:
		return fmt.Errorf("deep sleep: %w: %w", alarm.ErrHardwareFault, sleepErr)
	case sleepErr != nil:
		return sleepErr
	default:
		return disarmErr
	}
}

// validate runs the full matrix over the set: per-descriptor rules, one
// hardware claim per pin, and the per-kind set rules.
func (e *Engine) validate(alarms []alarm.Descriptor, deep bool) error {
	byKind := make(map[alarm.Kind][]alarm.Descriptor, 4)
	claimedPins := make(map[uint8]alarm.Descriptor)

	for _, d := range alarms {
		if err := e.sourceFor(d).validateOne(d, deep); err != nil {
			return err
		}

		var pin uint8

		switch v := d.(type) {
		case alarm.PinAlarm:
			pin = v.Pin
		case alarm.TouchAlarm:
			pin = v.Pin
		default:
			byKind[d.Kind()] = append(byKind[d.Kind()], d)
			continue
		}

		if prev, taken := claimedPins[pin]; taken {
			return fmt.Errorf("pin %d claimed by both %s and %s: %w",
				pin, prev, d, alarm.ErrResourceConflict)
		}

		claimedPins[pin] = d
		byKind[d.Kind()] = append(byKind[d.Kind()], d)
	}

	for _, src := range e.allSources() {
		if ds := byKind[src.kind()]; len(ds) > 0 {
			if err := src.validateSet(ds, deep); err != nil {
				return err
			}
		}
	}

	return nil
}

// armAll configures every source in declaration order. The first failure
// rolls the armed prefix back in reverse order and reports a hardware fault.
func (e *Engine) armAll(ctx context.Context, alarms []alarm.Descriptor, deep bool) error {
	for i, d := range alarms {
		if err := e.sourceFor(d).arm(d, deep); err != nil {
			e.rollback(ctx, alarms[:i])

			return fmt.Errorf("arm %s: %w: %w", d, alarm.ErrHardwareFault, err)
		}

		logger.DebugKV(ctx, "armed wake source", "alarm", d.String(), "deep", deep)
	}

	return nil
}

// rollback releases an armed prefix in reverse order, best effort.
func (e *Engine) rollback(ctx context.Context, armed []alarm.Descriptor) {
	for i := len(armed) - 1; i >= 0; i-- {
		if err := e.sourceFor(armed[i]).disarm(armed[i]); err != nil {
			logger.ErrorKV(ctx, "rollback disarm failed", "alarm", armed[i].String(), "error", err)
		}
	}
}

// disarmAll releases every source, attempting all of them even after a
// failure, and reports the first fault.
func (e *Engine) disarmAll(ctx context.Context, alarms []alarm.Descriptor) error {
	var firstErr error

	for _, d := range alarms {
		if err := e.sourceFor(d).disarm(d); err != nil {
			logger.ErrorKV(ctx, "disarm failed", "alarm", d.String(), "error", err)

			if firstErr == nil {
				firstErr = fmt.Errorf("disarm %s: %w: %w", d, alarm.ErrHardwareFault, err)
			}
		}
	}

	return firstErr
}

// firstFired polls the latches in declaration order and returns the first
// descriptor that fired, exactly as the caller passed it.
func (e *Engine) firstFired(alarms []alarm.Descriptor) (alarm.Descriptor, error) {
	for _, d := range alarms {
		fired, err := e.sourceFor(d).fired(d)
		if err != nil {
			return nil, fmt.Errorf("query latch for %s: %w: %w", d, alarm.ErrHardwareFault, err)
		}

		if fired {
			return d, nil
		}
	}

	return nil, nil
}
