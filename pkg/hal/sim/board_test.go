package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/sleepwake/pkg/hal"
)

func newTestBoard(t *testing.T, dir string) *Board {
	t.Helper()

	board, err := New(Options{StateDir: dir})
	require.NoError(t, err)

	return board
}

// TestBootFreshDirectory verifies a first boot reads as a power-on reset.
func TestBootFreshDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	board := newTestBoard(t, dir)

	require.Equal(t, hal.ResetPowerOn, board.ResetCause())
	require.Equal(t, DefaultRetainedSize, board.RetainedSize())
	require.NotEmpty(t, board.BootID())

	// Booting claims the directory.
	_, err := os.Stat(filepath.Join(dir, stateFileName))
	require.NoError(t, err)
}

// TestRetainedSurvivesReboot checks the retained region crosses a close/open
// cycle and a graceful close reads as a software reset.
func TestRetainedSurvivesReboot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := newTestBoard(t, dir)

	payload := []byte{0xAA, 0xBB, 0xCC}
	require.NoError(t, first.WriteRetained(5, payload))
	require.NoError(t, first.Close())

	second := newTestBoard(t, dir)
	require.Equal(t, hal.ResetSoftware, second.ResetCause())

	got := make([]byte, 3)
	require.NoError(t, second.ReadRetained(5, got))
	require.Equal(t, payload, got)
}

// TestBootAfterCrash verifies a run that never persisted its exit reads as an
// unexplained reset, with the retained region intact.
func TestBootAfterCrash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := newTestBoard(t, dir)
	require.NoError(t, first.WriteRetained(0, []byte{1, 2, 3}))
	// No Close: the process just died.

	second := newTestBoard(t, dir)
	require.Equal(t, hal.ResetUnknown, second.ResetCause())

	got := make([]byte, 3)
	require.NoError(t, second.ReadRetained(0, got))
	require.Equal(t, []byte{1, 2, 3}, got)
}

// TestImmediateLatchOnArm checks a level alarm on a pin already at its trigger
// level latches at arm time.
func TestImmediateLatchOnArm(t *testing.T) {
	t.Parallel()

	board := newTestBoard(t, t.TempDir())
	require.NoError(t, board.SetPinLevel(4, true))
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 4, High: true}, false))

	fired, err := board.PinFired(4)
	require.NoError(t, err)
	require.True(t, fired)
}

// TestPullSettlesIdleLevel verifies the pull holds an undriven pin away from
// its trigger level, and that undriven pins idle low.
func TestPullSettlesIdleLevel(t *testing.T) {
	t.Parallel()

	board := newTestBoard(t, t.TempDir())

	// Pull-down keeps the high trigger from latching.
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 4, High: true, Pull: true}, false))
	fired, err := board.PinFired(4)
	require.NoError(t, err)
	require.False(t, fired)

	// Without a pull the pin idles low, so a low trigger latches at once.
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 6, High: false}, false))
	fired, err = board.PinFired(6)
	require.NoError(t, err)
	require.True(t, fired)

	// Pull-up keeps the low trigger from latching.
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 8, High: false, Pull: true}, false))
	fired, err = board.PinFired(8)
	require.NoError(t, err)
	require.False(t, fired)
}

// TestEdgeRequiresTransition verifies edge alarms ignore the standing level
// and latch only on a transition to the trigger level.
func TestEdgeRequiresTransition(t *testing.T) {
	t.Parallel()

	board := newTestBoard(t, t.TempDir())
	require.NoError(t, board.SetPinLevel(4, true))
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 4, High: true, Edge: true}, false))

	fired, err := board.PinFired(4)
	require.NoError(t, err)
	require.False(t, fired)

	// Re-driving the same level is not a transition.
	require.NoError(t, board.SetPinLevel(4, true))
	fired, err = board.PinFired(4)
	require.NoError(t, err)
	require.False(t, fired)

	require.NoError(t, board.SetPinLevel(4, false))
	require.NoError(t, board.SetPinLevel(4, true))
	fired, err = board.PinFired(4)
	require.NoError(t, err)
	require.True(t, fired)
}

// TestLatchSurvivesDisarm checks disarming keeps the latch and only
// ClearWakeStatus drops it.
func TestLatchSurvivesDisarm(t *testing.T) {
	t.Parallel()

	board := newTestBoard(t, t.TempDir())
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 4, High: true}, false))
	require.NoError(t, board.SetPinLevel(4, true))
	require.NoError(t, board.DisarmPin(4))

	fired, err := board.PinFired(4)
	require.NoError(t, err)
	require.True(t, fired)

	require.NoError(t, board.ClearWakeStatus())

	fired, err = board.PinFired(4)
	require.NoError(t, err)
	require.False(t, fired)
}

// TestTouchThreshold verifies readings below the threshold never latch.
func TestTouchThreshold(t *testing.T) {
	t.Parallel()

	board := newTestBoard(t, t.TempDir())
	require.NoError(t, board.ArmTouch(3, 1000, false))

	require.NoError(t, board.Touch(3, 999))
	fired, err := board.TouchFired(3)
	require.NoError(t, err)
	require.False(t, fired)

	require.NoError(t, board.Touch(3, 1000))
	fired, err = board.TouchFired(3)
	require.NoError(t, err)
	require.True(t, fired)
}

// TestCoprocLatchRequiresArming checks the coprocessor signal latches only
// while armed.
func TestCoprocLatchRequiresArming(t *testing.T) {
	t.Parallel()

	board := newTestBoard(t, t.TempDir())

	require.NoError(t, board.CoprocSignal())
	fired, err := board.CoprocFired()
	require.NoError(t, err)
	require.False(t, fired)

	require.NoError(t, board.ArmCoproc(false))
	require.NoError(t, board.CoprocSignal())
	fired, err = board.CoprocFired()
	require.NoError(t, err)
	require.True(t, fired)
}

// TestArmRejectsBadTargets verifies the board defends its profile limits.
func TestArmRejectsBadTargets(t *testing.T) {
	t.Parallel()

	board := newTestBoard(t, t.TempDir())

	require.Error(t, board.ArmPin(hal.PinWakeRequest{Pin: 99, High: true}, false))
	require.Error(t, board.ArmPin(hal.PinWakeRequest{Pin: 1, High: true}, false))
	require.Error(t, board.ArmTouch(0, 100, false))
	require.Error(t, board.SetPinLevel(200, true))
	require.Error(t, board.Touch(0, 100))
}

// TestRetainedBounds checks out-of-range retained access fails.
func TestRetainedBounds(t *testing.T) {
	t.Parallel()

	board := newTestBoard(t, t.TempDir())
	size := board.RetainedSize()

	require.Error(t, board.ReadRetained(-1, make([]byte, 1)))
	require.Error(t, board.ReadRetained(size, make([]byte, 1)))
	require.Error(t, board.WriteRetained(size-1, []byte{1, 2}))
	require.NoError(t, board.WriteRetained(size-1, []byte{1}))
}

// TestCustomProfile checks the configured profile is served back.
func TestCustomProfile(t *testing.T) {
	t.Parallel()

	profile := hal.Capabilities{
		Name:     "two-pin",
		PinCount: 2,
		WakePins: []uint8{0},
	}

	board, err := New(Options{StateDir: t.TempDir(), Profile: profile, RetainedSize: 32})
	require.NoError(t, err)
	require.Equal(t, "two-pin", board.Capabilities().Name)
	require.Equal(t, 32, board.RetainedSize())

	require.Error(t, board.ArmPin(hal.PinWakeRequest{Pin: 2, High: true}, false))
}
