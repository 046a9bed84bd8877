package sleep

import (
	"fmt"
	"time"

	"github.com/oshokin/sleepwake/internal/retained"
	"github.com/oshokin/sleepwake/pkg/alarm"
	"github.com/oshokin/sleepwake/pkg/hal"
)

// source drives one wake-source kind through a sleep cycle: validation against
// the board profile, arming, disarming and latch polling. The engine
// dispatches each descriptor to its kind's source and never crosses kinds.
type source interface {
	// kind returns the wake-source kind this source drives.
	kind() alarm.Kind
	// validateOne checks a single descriptor against the board and mode.
	validateOne(d alarm.Descriptor, deep bool) error
	// validateSet checks the per-kind rules over all descriptors of this kind.
	validateSet(ds []alarm.Descriptor, deep bool) error
	// arm configures the hardware for the descriptor.
	arm(d alarm.Descriptor, deep bool) error
	// disarm releases the hardware for the descriptor.
	disarm(d alarm.Descriptor) error
	// fired reports whether the descriptor's latch is set.
	fired(d alarm.Descriptor) (bool, error)
}

type timeSource struct {
	board hal.TimerWaker
}

func (s *timeSource) kind() alarm.Kind { return alarm.KindTime }

func (s *timeSource) validateOne(d alarm.Descriptor, _ bool) error {
	ta := d.(alarm.TimeAlarm)

	if ta.WakeAt.IsZero() {
		return fmt.Errorf("time alarm has no deadline: %w", alarm.ErrConfiguration)
	}

	if !ta.WakeAt.After(time.Now()) {
		return fmt.Errorf("deadline %s is not in the future: %w",
			ta.WakeAt.Format(time.RFC3339Nano), alarm.ErrConfiguration)
	}

	return nil
}

func (s *timeSource) validateSet(ds []alarm.Descriptor, _ bool) error {
	if len(ds) > 1 {
		return fmt.Errorf("only one time alarm per set: %w", alarm.ErrConfiguration)
	}

	return nil
}

func (s *timeSource) arm(d alarm.Descriptor, deep bool) error {
	return s.board.ArmTimer(d.(alarm.TimeAlarm).WakeAt, deep)
}

func (s *timeSource) disarm(alarm.Descriptor) error {
	return s.board.DisarmTimer()
}

func (s *timeSource) fired(alarm.Descriptor) (bool, error) {
	return s.board.TimerFired()
}

type pinSource struct {
	board hal.PinWaker
	caps  hal.Capabilities
}

func (s *pinSource) kind() alarm.Kind { return alarm.KindPin }

func (s *pinSource) validateOne(d alarm.Descriptor, deep bool) error {
	pa := d.(alarm.PinAlarm)

	if !s.caps.PinValid(pa.Pin) {
		return fmt.Errorf("pin %d does not exist on %s: %w", pa.Pin, s.caps.Name, alarm.ErrConfiguration)
	}

	if s.caps.Reserved(pa.Pin) {
		return fmt.Errorf("pin %d is reserved: %w", pa.Pin, alarm.ErrResourceConflict)
	}

	if deep && pa.Edge {
		return fmt.Errorf("deep sleep wakes on pin levels only: %w", alarm.ErrUnsupported)
	}

	if deep && !s.caps.WakeCapable(pa.Pin) {
		return fmt.Errorf("pin %d cannot wake from deep sleep: %w", pa.Pin, alarm.ErrUnsupported)
	}

	return nil
}

func (s *pinSource) validateSet(ds []alarm.Descriptor, deep bool) error {
	if !deep {
		return nil
	}

	// The wake record crossing the reset bounds the set, whatever the board
	// profile claims.
	limit := s.caps.MaxDeepPinAlarms
	if limit > retained.MaxPins {
		limit = retained.MaxPins
	}

	if len(ds) > limit {
		return fmt.Errorf("deep sleep holds at most %d pin alarms: %w",
			limit, alarm.ErrUnsupported)
	}

	return nil
}

func (s *pinSource) arm(d alarm.Descriptor, deep bool) error {
	pa := d.(alarm.PinAlarm)

	return s.board.ArmPin(hal.PinWakeRequest{
		Pin:  pa.Pin,
		High: pa.Value == alarm.High,
		Edge: pa.Edge,
		Pull: pa.Pull,
	}, deep)
}

func (s *pinSource) disarm(d alarm.Descriptor) error {
	return s.board.DisarmPin(d.(alarm.PinAlarm).Pin)
}

func (s *pinSource) fired(d alarm.Descriptor) (bool, error) {
	return s.board.PinFired(d.(alarm.PinAlarm).Pin)
}

type touchSource struct {
	board hal.TouchWaker
	caps  hal.Capabilities
}

func (s *touchSource) kind() alarm.Kind { return alarm.KindTouch }

func (s *touchSource) validateOne(d alarm.Descriptor, _ bool) error {
	ta := d.(alarm.TouchAlarm)

	if !s.caps.TouchCapable(ta.Pin) {
		return fmt.Errorf("pad %d has no touch sensing on %s: %w", ta.Pin, s.caps.Name, alarm.ErrUnsupported)
	}

	if s.caps.Reserved(ta.Pin) {
		return fmt.Errorf("pad %d is reserved: %w", ta.Pin, alarm.ErrResourceConflict)
	}

	if ta.Threshold == 0 {
		return fmt.Errorf("touch threshold must be positive: %w", alarm.ErrConfiguration)
	}

	return nil
}

func (s *touchSource) validateSet(ds []alarm.Descriptor, deep bool) error {
	if !deep {
		return nil
	}

	limit := s.caps.MaxDeepTouchAlarms
	if limit > retained.MaxTouch {
		limit = retained.MaxTouch
	}

	if len(ds) > limit {
		return fmt.Errorf("deep sleep holds at most %d touch alarms: %w",
			limit, alarm.ErrUnsupported)
	}

	return nil
}

func (s *touchSource) arm(d alarm.Descriptor, deep bool) error {
	ta := d.(alarm.TouchAlarm)

	return s.board.ArmTouch(ta.Pin, ta.Threshold, deep)
}

func (s *touchSource) disarm(d alarm.Descriptor) error {
	return s.board.DisarmTouch(d.(alarm.TouchAlarm).Pin)
}

func (s *touchSource) fired(d alarm.Descriptor) (bool, error) {
	return s.board.TouchFired(d.(alarm.TouchAlarm).Pin)
}

type coprocSource struct {
	board hal.CoprocWaker
	caps  hal.Capabilities
}

func (s *coprocSource) kind() alarm.Kind { return alarm.KindCoproc }

func (s *coprocSource) validateOne(_ alarm.Descriptor, _ bool) error {
	if !s.caps.HasCoproc {
		return fmt.Errorf("%s has no coprocessor: %w", s.caps.Name, alarm.ErrUnsupported)
	}

	return nil
}

func (s *coprocSource) validateSet(ds []alarm.Descriptor, deep bool) error {
	// The deep-sleep controller holds a single coprocessor wake request.
	if deep && len(ds) > 1 {
		return fmt.Errorf("only one coprocessor alarm can be set in deep sleep: %w", alarm.ErrConfiguration)
	}

	return nil
}

func (s *coprocSource) arm(_ alarm.Descriptor, deep bool) error {
	return s.board.ArmCoproc(deep)
}

func (s *coprocSource) disarm(alarm.Descriptor) error {
	return s.board.DisarmCoproc()
}

func (s *coprocSource) fired(alarm.Descriptor) (bool, error) {
	return s.board.CoprocFired()
}
