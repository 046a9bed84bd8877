package hal

import "time"

// Capabilities describes a board profile: which pins exist, which of them can
// wake the chip, and what the deep-sleep controller can hold at once.
type Capabilities struct {
	// Name identifies the board in logs and status output.
	Name string
	// PinCount is the number of digital pins; valid pins are [0, PinCount).
	PinCount uint8
	// WakePins lists the pins able to wake the chip from deep sleep.
	WakePins []uint8
	// TouchPins lists the pads with capacitive touch sensing.
	TouchPins []uint8
	// ReservedPins lists pins claimed by other peripherals and unavailable as
	// wake sources.
	ReservedPins []uint8
	// TimerResolution is the granularity of the wake timer.
	TimerResolution time.Duration
	// MaxDeepPinAlarms caps how many pin alarms deep sleep can hold at once.
	MaxDeepPinAlarms int
	// MaxDeepTouchAlarms caps how many touch alarms deep sleep can hold at once.
	MaxDeepTouchAlarms int
	// HasCoproc reports whether the board has the always-on coprocessor.
	HasCoproc bool
}

// PinValid reports whether pin exists on the board.
func (c Capabilities) PinValid(pin uint8) bool {
	return pin < c.PinCount
}

// WakeCapable reports whether pin can wake the chip from deep sleep.
func (c Capabilities) WakeCapable(pin uint8) bool {
	return containsPin(c.WakePins, pin)
}

// TouchCapable reports whether pin has touch sensing.
func (c Capabilities) TouchCapable(pin uint8) bool {
	return containsPin(c.TouchPins, pin)
}

// Reserved reports whether pin is claimed by another peripheral.
func (c Capabilities) Reserved(pin uint8) bool {
	return containsPin(c.ReservedPins, pin)
}

func containsPin(pins []uint8, pin uint8) bool {
	for _, p := range pins {
		if p == pin {
			return true
		}
	}

	return false
}
