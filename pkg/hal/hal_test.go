package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestResetCauseString verifies the short names and the fallback.
func TestResetCauseString(t *testing.T) {
	t.Parallel()

	cases := map[ResetCause]string{
		ResetUnknown:        "unknown",
		ResetPowerOn:        "power_on",
		ResetExternal:       "external",
		ResetSoftware:       "software",
		ResetWatchdog:       "watchdog",
		ResetBrownout:       "brownout",
		ResetDeepSleepAlarm: "deep_sleep_alarm",
	}
	for cause, want := range cases {
		require.Equal(t, want, cause.String())
	}

	require.Equal(t, "cause(200)", ResetCause(200).String())
}

// TestParseResetCause checks the name-to-cause roundtrip and unknown names.
func TestParseResetCause(t *testing.T) {
	t.Parallel()

	for cause := range causeNames {
		parsed, ok := ParseResetCause(cause.String())
		require.True(t, ok)
		require.Equal(t, cause, parsed)
	}

	_, ok := ParseResetCause("restart")
	require.False(t, ok)
}

// TestCapabilitiesHelpers verifies the pin classification helpers.
func TestCapabilitiesHelpers(t *testing.T) {
	t.Parallel()

	caps := Capabilities{
		Name:               "testboard",
		PinCount:           8,
		WakePins:           []uint8{0, 2, 4},
		TouchPins:          []uint8{2, 3},
		ReservedPins:       []uint8{7},
		TimerResolution:    time.Millisecond,
		MaxDeepPinAlarms:   2,
		MaxDeepTouchAlarms: 1,
		HasCoproc:          true,
	}

	require.True(t, caps.PinValid(0))
	require.True(t, caps.PinValid(7))
	require.False(t, caps.PinValid(8))

	require.True(t, caps.WakeCapable(2))
	require.False(t, caps.WakeCapable(1))

	require.True(t, caps.TouchCapable(3))
	require.False(t, caps.TouchCapable(4))

	require.True(t, caps.Reserved(7))
	require.False(t, caps.Reserved(0))
}
