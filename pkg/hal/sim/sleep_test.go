package sim

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/oshokin/sleepwake/pkg/hal"
)

// TestLightSleepTimer verifies a timer wake releases light sleep at the
// deadline and latches the timer.
func TestLightSleepTimer(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		board := newTestBoard(t, t.TempDir())

		start := time.Now()
		require.NoError(t, board.ArmTimer(start.Add(500*time.Millisecond), false))

		require.NoError(t, board.LightSleep(context.Background()))
		require.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)

		fired, err := board.TimerFired()
		require.NoError(t, err)
		require.True(t, fired)
	})
}

// TestLightSleepPastDeadline checks an already expired deadline wakes at once.
func TestLightSleepPastDeadline(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		board := newTestBoard(t, t.TempDir())
		require.NoError(t, board.ArmTimer(time.Now().Add(-time.Second), false))

		require.NoError(t, board.LightSleep(context.Background()))

		fired, err := board.TimerFired()
		require.NoError(t, err)
		require.True(t, fired)
	})
}

// TestLightSleepCancellation verifies cancellation releases the sleeper with
// the ctx error and no latch.
func TestLightSleepCancellation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		board := newTestBoard(t, t.TempDir())
		require.NoError(t, board.ArmTimer(time.Now().Add(time.Hour), false))

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		err := board.LightSleep(ctx)
		require.ErrorIs(t, err, context.Canceled)

		fired, err := board.TimerFired()
		require.NoError(t, err)
		require.False(t, fired)
	})
}

// TestLightSleepInjectedPin verifies an injected level releases a sleeping
// board whichever side wins the race to block first.
func TestLightSleepInjectedPin(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	board := newTestBoard(t, t.TempDir())
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 4, High: true}, false))

	errCh := make(chan error, 1)
	go func() {
		errCh <- board.LightSleep(context.Background())
	}()

	require.NoError(t, board.SetPinLevel(4, true))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("light sleep did not wake on pin injection")
	}

	fired, err := board.PinFired(4)
	require.NoError(t, err)
	require.True(t, fired)
}

// TestLightSleepStaleSignal checks a wake signal left over from a cleared
// cycle does not release the next sleep.
func TestLightSleepStaleSignal(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	board := newTestBoard(t, t.TempDir())
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 4, High: true}, false))
	require.NoError(t, board.SetPinLevel(4, true))
	require.NoError(t, board.DisarmPin(4))
	require.NoError(t, board.ClearWakeStatus())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Nothing is latched anymore, so only the deadline releases the sleep.
	err := board.LightSleep(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestDeepSleepWakeHandoff walks a full deep-sleep cycle: board one persists
// the wake and reaches the restart hook, board two boots from the handoff.
func TestDeepSleepWakeHandoff(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	restarted := make(chan struct{}, 1)

	first, err := New(Options{
		StateDir: dir,
		Restart:  func() { restarted <- struct{}{} },
	})
	require.NoError(t, err)
	require.NoError(t, first.ArmPin(hal.PinWakeRequest{Pin: 4, High: true}, true))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- first.DeepSleep(ctx)
	}()

	require.NoError(t, first.SetPinLevel(4, true))

	select {
	case <-restarted:
	case <-time.After(5 * time.Second):
		t.Fatal("deep sleep never reached the restart hook")
	}

	// The reset is the only way out: the call must still be blocked.
	select {
	case <-errCh:
		t.Fatal("deep sleep returned without a reset")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	second := newTestBoard(t, dir)
	require.Equal(t, hal.ResetDeepSleepAlarm, second.ResetCause())

	fired, err := second.PinFired(4)
	require.NoError(t, err)
	require.True(t, fired)

	// The world state crossed the reset too: the pin still sits high, so a
	// fresh level arm latches at once.
	require.NoError(t, second.ClearWakeStatus())
	require.NoError(t, second.ArmPin(hal.PinWakeRequest{Pin: 4, High: true}, false))

	fired, err = second.PinFired(4)
	require.NoError(t, err)
	require.True(t, fired)
}

// TestDeepSleepExternalReset verifies cancelling deep sleep persists the
// external cause and leaves no latches for the next boot.
func TestDeepSleepExternalReset(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	first := newTestBoard(t, dir)
	require.NoError(t, first.ArmTimer(time.Now().Add(time.Hour), true))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- first.DeepSleep(ctx)
	}()

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	second := newTestBoard(t, dir)
	require.Equal(t, hal.ResetExternal, second.ResetCause())

	fired, err := second.TimerFired()
	require.NoError(t, err)
	require.False(t, fired)
}

// TestDeepSleepImmediateWake checks a latch set before entry resets at once.
func TestDeepSleepImmediateWake(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	restarted := make(chan struct{}, 1)

	board, err := New(Options{
		StateDir: dir,
		Restart:  func() { restarted <- struct{}{} },
	})
	require.NoError(t, err)

	require.NoError(t, board.SetPinLevel(4, true))
	require.NoError(t, board.ArmPin(hal.PinWakeRequest{Pin: 4, High: true}, true))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- board.DeepSleep(ctx)
	}()

	select {
	case <-restarted:
	case <-time.After(5 * time.Second):
		t.Fatal("deep sleep ignored the pre-set latch")
	}

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

// TestCloseAfterHandoffKeepsWakeState verifies a close following a deep-sleep
// wake does not overwrite the persisted handoff.
func TestCloseAfterHandoffKeepsWakeState(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	first, err := New(Options{StateDir: dir, Restart: func() {}})
	require.NoError(t, err)

	require.NoError(t, first.SetPinLevel(4, true))
	require.NoError(t, first.ArmPin(hal.PinWakeRequest{Pin: 4, High: true}, true))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- first.DeepSleep(ctx)
	}()

	cancel()
	<-errCh
	require.NoError(t, first.Close())

	second := newTestBoard(t, dir)
	require.Equal(t, hal.ResetDeepSleepAlarm, second.ResetCause())
}
