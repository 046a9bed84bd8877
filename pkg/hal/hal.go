package hal

import (
	"context"
	"time"
)

// PinWakeRequest configures one digital pin as a wake source.
type PinWakeRequest struct {
	// Pin is the board pin number.
	Pin uint8
	// High selects the trigger level (true = high).
	High bool
	// Edge selects transition triggering instead of level triggering.
	Edge bool
	// Pull enables the internal pull resistor opposite to the trigger level.
	Pull bool
}

// TimerWaker arms the wake timer.
type TimerWaker interface {
	// ArmTimer schedules a wake at the deadline. Deep selects the arming that
	// survives a chip reset.
	ArmTimer(deadline time.Time, deep bool) error
	// DisarmTimer cancels a pending timer wake. Disarming leaves an already
	// latched wake status observable.
	DisarmTimer() error
	// TimerFired reports whether the timer latched a wake this cycle.
	TimerFired() (bool, error)
}

// PinWaker arms digital pins as wake sources.
type PinWaker interface {
	// ArmPin configures one pin per the request.
	ArmPin(req PinWakeRequest, deep bool) error
	// DisarmPin releases the pin. The wake latch, if set, stays observable.
	DisarmPin(pin uint8) error
	// PinFired reports whether the given pin latched a wake this cycle.
	PinFired(pin uint8) (bool, error)
}

// TouchWaker arms capacitive touch pads as wake sources.
type TouchWaker interface {
	// ArmTouch configures one pad with its trigger threshold.
	ArmTouch(pad uint8, threshold uint16, deep bool) error
	// DisarmTouch releases the pad, keeping any latched wake observable.
	DisarmTouch(pad uint8) error
	// TouchFired reports whether the given pad latched a wake this cycle.
	TouchFired(pad uint8) (bool, error)
}

// CoprocWaker arms the always-on coprocessor wake request.
type CoprocWaker interface {
	// ArmCoproc enables waking on the coprocessor signal.
	ArmCoproc(deep bool) error
	// DisarmCoproc disables the coprocessor wake, keeping the latch observable.
	DisarmCoproc() error
	// CoprocFired reports whether the coprocessor latched a wake this cycle.
	CoprocFired() (bool, error)
}

// Sleeper enters the low-power states. Both calls block until a wake source
// fires or ctx is cancelled.
type Sleeper interface {
	// LightSleep halts execution preserving all state and returns when any
	// armed source fires. A ctx cancellation is the non-alarm wake: LightSleep
	// returns ctx.Err() with no source latched by the cancellation itself.
	LightSleep(ctx context.Context) error

	// DeepSleep powers the chip down. On real hardware the call never returns:
	// the wake is a reset and the program restarts from the top. The host
	// implementation emulates the reset via a restart hook and returns only
	// when ctx is cancelled, which stands in for an external reset.
	DeepSleep(ctx context.Context) error
}

// ResetControl exposes the reset-cause register and the wake-status latches.
type ResetControl interface {
	// ResetCause reports why the current run started.
	ResetCause() ResetCause
	// ClearWakeStatus clears every wake latch so a stale status cannot be
	// mistaken for a fresh wake on the next sleep.
	ClearWakeStatus() error
}

// RetainedMemory is the byte region in the always-on power domain. Its
// contents survive deep sleep but not necessarily other resets; readers must
// validate what they find.
type RetainedMemory interface {
	// RetainedSize returns the region length in bytes.
	RetainedSize() int
	// ReadRetained copies len(dst) bytes starting at offset into dst.
	ReadRetained(offset int, dst []byte) error
	// WriteRetained copies src into the region starting at offset.
	WriteRetained(offset int, src []byte) error
}

// Board is the full hardware surface the engine drives.
type Board interface {
	TimerWaker
	PinWaker
	TouchWaker
	CoprocWaker
	Sleeper
	ResetControl
	RetainedMemory

	// Capabilities describes the board profile the validators check against.
	Capabilities() Capabilities
}
