package hal

import "fmt"

// ResetCause identifies why the current run of the program started.
type ResetCause uint8

const (
	// ResetUnknown means the cause register held no recognizable value.
	ResetUnknown ResetCause = iota
	// ResetPowerOn is a cold start from an unpowered state.
	ResetPowerOn
	// ResetExternal is a reset requested from outside the chip.
	ResetExternal
	// ResetSoftware is a reset requested by the program itself.
	ResetSoftware
	// ResetWatchdog is a reset forced by the watchdog timer.
	ResetWatchdog
	// ResetBrownout is a reset caused by supply voltage dropping too low.
	ResetBrownout
	// ResetDeepSleepAlarm is a wake from deep sleep caused by an armed alarm.
	// Only this cause makes retained wake state trustworthy.
	ResetDeepSleepAlarm
)

// causeNames maps causes to their wire/log names.
var causeNames = map[ResetCause]string{
	ResetUnknown:        "unknown",
	ResetPowerOn:        "power_on",
	ResetExternal:       "external",
	ResetSoftware:       "software",
	ResetWatchdog:       "watchdog",
	ResetBrownout:       "brownout",
	ResetDeepSleepAlarm: "deep_sleep_alarm",
}

// String returns the short lowercase name of the cause.
func (c ResetCause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}

	return fmt.Sprintf("cause(%d)", uint8(c))
}

// ParseResetCause maps a short name back to its cause.
// It reports false for unknown names.
func ParseResetCause(s string) (ResetCause, bool) {
	for cause, name := range causeNames {
		if name == s {
			return cause, true
		}
	}

	return ResetUnknown, false
}
