package sim

import (
	"fmt"
	"time"

	"github.com/oshokin/sleepwake/pkg/hal"
)

// ArmTimer schedules a wake at the deadline.
func (b *Board) ArmTimer(deadline time.Time, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timerArmed = true
	b.timerDeadline = deadline

	return nil
}

// DisarmTimer cancels the pending timer wake, keeping any latch observable.
func (b *Board) DisarmTimer() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timerArmed = false

	return nil
}

// TimerFired reports whether the timer latched a wake this cycle.
func (b *Board) TimerFired() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.timerLatched, nil
}

// ArmPin configures one pin as a wake source. An enabled pull settles an
// undriven pin at the level opposite its trigger; a level-triggered pin that
// already sits at its trigger level latches immediately.
func (b *Board) ArmPin(req hal.PinWakeRequest, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.caps.PinValid(req.Pin) {
		return fmt.Errorf("pin %d outside profile %s", req.Pin, b.caps.Name)
	}

	if b.caps.Reserved(req.Pin) {
		return fmt.Errorf("pin %d is reserved on profile %s", req.Pin, b.caps.Name)
	}

	b.armedPins[req.Pin] = req

	if req.Pull {
		if _, driven := b.pinLevels[req.Pin]; !driven {
			b.pinLevels[req.Pin] = !req.High
		}
	}

	if !req.Edge && b.levelLocked(req.Pin) == req.High {
		b.pinLatches[req.Pin] = true
		b.signalLocked()
	}

	return nil
}

// DisarmPin releases the pin, keeping any latch observable.
func (b *Board) DisarmPin(pin uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.armedPins, pin)

	return nil
}

// PinFired reports whether the pin latched a wake this cycle.
func (b *Board) PinFired(pin uint8) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pinLatches[pin], nil
}

// ArmTouch configures one pad with its trigger threshold.
func (b *Board) ArmTouch(pad uint8, threshold uint16, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.caps.TouchCapable(pad) {
		return fmt.Errorf("pad %d has no touch sensing on profile %s", pad, b.caps.Name)
	}

	b.armedTouch[pad] = threshold

	return nil
}

// DisarmTouch releases the pad, keeping any latch observable.
func (b *Board) DisarmTouch(pad uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.armedTouch, pad)

	return nil
}

// TouchFired reports whether the pad latched a wake this cycle.
func (b *Board) TouchFired(pad uint8) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.touchLatches[pad], nil
}

// ArmCoproc enables waking on the coprocessor signal.
func (b *Board) ArmCoproc(_ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.caps.HasCoproc {
		return fmt.Errorf("profile %s has no coprocessor", b.caps.Name)
	}

	b.coprocArmed = true

	return nil
}

// DisarmCoproc disables the coprocessor wake, keeping any latch observable.
func (b *Board) DisarmCoproc() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.coprocArmed = false

	return nil
}

// CoprocFired reports whether the coprocessor latched a wake this cycle.
func (b *Board) CoprocFired() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.coprocLatched, nil
}

// ClearWakeStatus clears every wake latch and any pending wake signal.
func (b *Board) ClearWakeStatus() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timerLatched = false
	b.coprocLatched = false
	clear(b.pinLatches)
	clear(b.touchLatches)

	select {
	case <-b.wakeCh:
	default:
	}

	return nil
}

// SetPinLevel drives a pin to the given level. A level transition latches any
// armed alarm whose trigger it satisfies and signals the sleeper.
func (b *Board) SetPinLevel(pin uint8, high bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.caps.PinValid(pin) {
		return fmt.Errorf("pin %d outside profile %s", pin, b.caps.Name)
	}

	previous := b.levelLocked(pin)
	b.pinLevels[pin] = high

	req, armed := b.armedPins[pin]
	if !armed || high != req.High {
		return nil
	}

	if req.Edge && previous == high {
		return nil
	}

	b.pinLatches[pin] = true
	b.signalLocked()

	return nil
}

// Touch injects one reading on a pad. A reading at or above the armed
// threshold latches the alarm and signals the sleeper.
func (b *Board) Touch(pad uint8, reading uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.caps.TouchCapable(pad) {
		return fmt.Errorf("pad %d has no touch sensing on profile %s", pad, b.caps.Name)
	}

	threshold, armed := b.armedTouch[pad]
	if !armed || reading < threshold {
		return nil
	}

	b.touchLatches[pad] = true
	b.signalLocked()

	return nil
}

// CoprocSignal raises the coprocessor wake request. It latches only while the
// coprocessor wake is armed.
func (b *Board) CoprocSignal() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.caps.HasCoproc {
		return fmt.Errorf("profile %s has no coprocessor", b.caps.Name)
	}

	if !b.coprocArmed {
		return nil
	}

	b.coprocLatched = true
	b.signalLocked()

	return nil
}

// levelLocked reads a pin's electrical level; undriven pins idle low.
func (b *Board) levelLocked(pin uint8) bool {
	return b.pinLevels[pin]
}

// anyLatchLocked reports whether any wake latch is set.
func (b *Board) anyLatchLocked() bool {
	if b.timerLatched || b.coprocLatched {
		return true
	}

	for _, latched := range b.pinLatches {
		if latched {
			return true
		}
	}

	for _, latched := range b.touchLatches {
		if latched {
			return true
		}
	}

	return false
}

// signalLocked hands one wake signal to a blocked sleeper.
func (b *Board) signalLocked() {
	select {
	case b.wakeCh <- struct{}{}:
	default:
	}
}
