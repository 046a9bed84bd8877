package alarm

import (
	"fmt"
	"time"
)

// Kind discriminates the wake-source variants.
type Kind uint8

const (
	// KindNone marks the absence of an alarm (no wake condition fired).
	KindNone Kind = iota
	// KindTime is a timer deadline alarm.
	KindTime
	// KindPin is a digital pin level or edge alarm.
	KindPin
	// KindTouch is a capacitive touch pad alarm.
	KindTouch
	// KindCoproc is an always-on coprocessor signal alarm.
	KindCoproc
)

// kindNames maps kinds to their wire/log names.
var kindNames = map[Kind]string{
	KindNone:   "none",
	KindTime:   "time",
	KindPin:    "pin",
	KindTouch:  "touch",
	KindCoproc: "coproc",
}

// String returns the short lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the defined alarm kinds (KindNone excluded).
func (k Kind) Valid() bool {
	return k == KindTime || k == KindPin || k == KindTouch || k == KindCoproc
}

// Level is a digital pin level.
type Level uint8

const (
	// Low is the logical low level.
	Low Level = iota
	// High is the logical high level.
	High
)

// String returns "low" or "high".
func (l Level) String() string {
	if l == High {
		return "high"
	}

	return "low"
}

// Descriptor is the sealed sum over the wake-source variants.
// Only the types declared in this package implement it.
type Descriptor interface {
	// Kind returns the variant discriminator.
	Kind() Kind
	// String describes the descriptor for logs.
	String() string

	// sealed keeps the variant set closed so switches stay exhaustive.
	sealed()
}

// TimeAlarm wakes the device once the monotonic clock reaches WakeAt.
type TimeAlarm struct {
	// WakeAt is the deadline; it must be in the future when the alarm is armed.
	WakeAt time.Time
}

// Kind returns KindTime.
func (TimeAlarm) Kind() Kind { return KindTime }

// String describes the deadline for logs.
func (a TimeAlarm) String() string {
	return fmt.Sprintf("time(wake_at=%s)", a.WakeAt.Format(time.RFC3339Nano))
}

func (TimeAlarm) sealed() {}

// PinAlarm wakes the device on a digital pin condition.
//
// Value is the level that triggers the alarm. With Edge false the alarm fires
// while the pin holds Value (and immediately if it already does when armed);
// with Edge true it fires only on a transition to Value. Pull enables the
// internal pull resistor opposite to Value so an unconnected pin idles away
// from its trigger level.
type PinAlarm struct {
	// Pin is the board pin number.
	Pin uint8
	// Value is the level that triggers the alarm.
	Value Level
	// Edge selects transition triggering instead of level triggering.
	Edge bool
	// Pull enables the internal pull resistor opposite to Value.
	Pull bool
}

// Kind returns KindPin.
func (PinAlarm) Kind() Kind { return KindPin }

// String describes the pin trigger for logs.
func (a PinAlarm) String() string {
	mode := "level"
	if a.Edge {
		mode = "edge"
	}

	return fmt.Sprintf("pin(%d %s=%s pull=%t)", a.Pin, mode, a.Value, a.Pull)
}

func (PinAlarm) sealed() {}

// TouchAlarm wakes the device when the touch reading on Pin reaches Threshold.
type TouchAlarm struct {
	// Pin is the touch-capable pad number.
	Pin uint8
	// Threshold is the minimal touch reading that fires the alarm; zero is invalid.
	Threshold uint16
}

// Kind returns KindTouch.
func (TouchAlarm) Kind() Kind { return KindTouch }

// String describes the touch trigger for logs.
func (a TouchAlarm) String() string {
	return fmt.Sprintf("touch(%d threshold=%d)", a.Pin, a.Threshold)
}

func (TouchAlarm) sealed() {}

// CoprocAlarm wakes the device when the always-on coprocessor raises its wake
// request. The alarm carries no configuration: its presence in the set is the
// entire contract.
type CoprocAlarm struct{}

// Kind returns KindCoproc.
func (CoprocAlarm) Kind() Kind { return KindCoproc }

// String names the coprocessor source.
func (CoprocAlarm) String() string { return "coproc" }

func (CoprocAlarm) sealed() {}
