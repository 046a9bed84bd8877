package sleep

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/retained"
	"github.com/oshokin/sleepwake/pkg/alarm"
	"github.com/oshokin/sleepwake/pkg/hal"
)

// resolveWake reconstructs the alarm that ended the previous run's deep
// sleep. Unless the reset cause names a deep-sleep alarm the retained bytes
// are untrusted and left alone; otherwise the record is matched against the
// hardware latches in its recorded declaration order, and both the record and
// the latches are consumed so the wake is delivered exactly once.
func (e *Engine) resolveWake(ctx context.Context) error {
	cause := e.board.ResetCause()

	if cause != hal.ResetDeepSleepAlarm {
		logger.InfoKV(ctx, "boot without wake alarm", "reset_cause", cause.String())

		return nil
	}

	rec, err := e.store.Load()

	switch {
	case errors.Is(err, retained.ErrNoRecord):
		// The chip woke from deep sleep, but nothing this runtime wrote
		// explains it. Drop the latches so they cannot leak into later cycles.
		logger.WarnKV(ctx, "deep-sleep wake without a retained record")

		if clearErr := e.board.ClearWakeStatus(); clearErr != nil {
			return fmt.Errorf("clear wake status: %w: %w", alarm.ErrHardwareFault, clearErr)
		}

		return nil
	case err != nil:
		return fmt.Errorf("load wake record: %w: %w", alarm.ErrHardwareFault, err)
	}

	woke, err := e.matchLatches(rec)
	if err != nil {
		return err
	}

	if err = e.store.Clear(); err != nil {
		return fmt.Errorf("clear wake record: %w: %w", alarm.ErrHardwareFault, err)
	}

	if err = e.board.ClearWakeStatus(); err != nil {
		return fmt.Errorf("clear wake status: %w: %w", alarm.ErrHardwareFault, err)
	}

	e.setWakeAlarm(woke)

	if woke != nil {
		logger.InfoKV(ctx, "woke from deep sleep", "alarm", woke.String())
	} else {
		logger.WarnKV(ctx, "deep-sleep wake matched none of the armed sources",
			"armed_kinds", len(rec.Kinds))
	}

	return nil
}

// matchLatches walks the armed kinds in their recorded order and rebuilds the
// descriptor of the first one whose latch fired. Within the pin kind the
// recorded pin order decides.
func (e *Engine) matchLatches(rec *retained.Record) (alarm.Descriptor, error) {
	for _, kind := range rec.Kinds {
		switch kind {
		case alarm.KindTime:
			fired, err := e.board.TimerFired()
			if err != nil {
				return nil, fmt.Errorf("query timer latch: %w: %w", alarm.ErrHardwareFault, err)
			}

			if fired {
				return rec.TimeDescriptor(), nil
			}
		case alarm.KindPin:
			for _, pin := range rec.Pins {
				fired, err := e.board.PinFired(pin.Number)
				if err != nil {
					return nil, fmt.Errorf("query pin %d latch: %w: %w", pin.Number, alarm.ErrHardwareFault, err)
				}

				if fired {
					return pin.Descriptor(), nil
				}
			}
		case alarm.KindTouch:
			fired, err := e.board.TouchFired(rec.TouchPad)
			if err != nil {
				return nil, fmt.Errorf("query touch latch: %w: %w", alarm.ErrHardwareFault, err)
			}

			if fired {
				return rec.TouchDescriptor(), nil
			}
		case alarm.KindCoproc:
			fired, err := e.board.CoprocFired()
			if err != nil {
				return nil, fmt.Errorf("query coprocessor latch: %w: %w", alarm.ErrHardwareFault, err)
			}

			if fired {
				return alarm.CoprocAlarm{}, nil
			}
		}
	}

	return nil, nil
}
