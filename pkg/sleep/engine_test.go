package sleep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/sleepwake/internal/retained"
	"github.com/oshokin/sleepwake/pkg/alarm"
	"github.com/oshokin/sleepwake/pkg/hal"
)

func newTestEngine(t *testing.T, board *fakeBoard) *Engine {
	t.Helper()

	engine, err := New(context.Background(), board)
	require.NoError(t, err)

	return engine
}

func writeRecord(t *testing.T, board *fakeBoard, rec *retained.Record) {
	t.Helper()

	data, err := rec.Encode()
	require.NoError(t, err)
	require.NoError(t, board.WriteRetained(0, data))
}

func requireNoRecord(t *testing.T, board *fakeBoard) {
	t.Helper()

	buf := make([]byte, retained.Size)
	require.NoError(t, board.ReadRetained(0, buf))

	_, err := retained.Decode(buf)
	require.ErrorIs(t, err, retained.ErrNoRecord)
}

// TestNewRejectsSmallRetainedRegion verifies the engine refuses a board whose
// always-on region cannot hold a wake record.
func TestNewRejectsSmallRetainedRegion(t *testing.T) {
	t.Parallel()

	board := newFakeBoard()
	board.retained = make([]byte, 8)

	_, err := New(context.Background(), board)
	require.Error(t, err)
}

// TestColdBootLeavesRecordAlone verifies that without a deep-sleep reset
// cause the retained bytes are untrusted: no wake alarm is reported and the
// stale record stays in place.
func TestColdBootLeavesRecordAlone(t *testing.T) {
	t.Parallel()

	board := newFakeBoard()
	board.cause = hal.ResetPowerOn

	writeRecord(t, board, &retained.Record{
		Kinds:         []alarm.Kind{alarm.KindTime},
		TimerDeadline: time.Unix(1700000000, 0),
	})
	board.setLatch("time")

	engine := newTestEngine(t, board)
	require.Nil(t, engine.WakeAlarm())
	require.Zero(t, board.clearCalls)

	buf := make([]byte, retained.Size)
	require.NoError(t, board.ReadRetained(0, buf))

	rec, err := retained.Decode(buf)
	require.NoError(t, err)
	require.Equal(t, []alarm.Kind{alarm.KindTime}, rec.Kinds)
}

// TestDeepWakeReconstructsPinAlarm verifies a deep-sleep reset rebuilds the
// latched pin descriptor and consumes both the record and the latches.
func TestDeepWakeReconstructsPinAlarm(t *testing.T) {
	t.Parallel()

	board := newFakeBoard()
	board.cause = hal.ResetDeepSleepAlarm

	writeRecord(t, board, &retained.Record{
		Kinds:         []alarm.Kind{alarm.KindPin, alarm.KindTime},
		TimerDeadline: time.Unix(1700000000, 0),
		Pins:          []retained.Pin{{Number: 4, High: true, Pull: true}},
	})
	board.setLatch(pinKey(4))

	engine := newTestEngine(t, board)
	require.Equal(t, alarm.PinAlarm{Pin: 4, Value: alarm.High, Pull: true}, engine.WakeAlarm())

	requireNoRecord(t, board)
	require.Empty(t, board.latches)
	require.Equal(t, 1, board.clearCalls)
}

// TestDeepWakeRecordedOrderWins verifies a tie between simultaneously latched
// sources resolves to the first recorded alarm.
func TestDeepWakeRecordedOrderWins(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		kinds []alarm.Kind
		want  alarm.Descriptor
	}{
		{
			name:  "time first",
			kinds: []alarm.Kind{alarm.KindTime, alarm.KindPin},
			want:  alarm.TimeAlarm{WakeAt: time.Unix(1700000000, 0)},
		},
		{
			name:  "pin first",
			kinds: []alarm.Kind{alarm.KindPin, alarm.KindTime},
			want:  alarm.PinAlarm{Pin: 4, Value: alarm.High},
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			board := newFakeBoard()
			board.cause = hal.ResetDeepSleepAlarm

			writeRecord(t, board, &retained.Record{
				Kinds:         tc.kinds,
				TimerDeadline: time.Unix(1700000000, 0),
				Pins:          []retained.Pin{{Number: 4, High: true}},
			})
			board.setLatch("time")
			board.setLatch(pinKey(4))

			engine := newTestEngine(t, board)
			require.Equal(t, tc.want, engine.WakeAlarm())
		})
	}
}

// TestDeepWakeWithoutRecord verifies a deep-sleep reset with an empty region
// clears the leftover latches and reports no alarm.
func TestDeepWakeWithoutRecord(t *testing.T) {
	t.Parallel()

	board := newFakeBoard()
	board.cause = hal.ResetDeepSleepAlarm
	board.setLatch("time")

	engine := newTestEngine(t, board)

	require.Nil(t, engine.WakeAlarm())
	require.Empty(t, board.latches)
	require.Equal(t, 1, board.clearCalls)
}

// TestDeepWakeWithoutLatch verifies a recorded alarm whose source never
// latched resolves to no wake alarm while still consuming the record.
func TestDeepWakeWithoutLatch(t *testing.T) {
	t.Parallel()

	board := newFakeBoard()
	board.cause = hal.ResetDeepSleepAlarm

	writeRecord(t, board, &retained.Record{
		Kinds:          []alarm.Kind{alarm.KindTouch},
		TouchPad:       3,
		TouchThreshold: 800,
	})

	engine := newTestEngine(t, board)

	require.Nil(t, engine.WakeAlarm())
	requireNoRecord(t, board)
	require.Equal(t, 1, board.clearCalls)
}

// TestDeepWakeLatchQueryFault verifies a latch readback failure during boot
// resolution surfaces as a hardware fault.
func TestDeepWakeLatchQueryFault(t *testing.T) {
	t.Parallel()

	board := newFakeBoard()
	board.cause = hal.ResetDeepSleepAlarm
	board.failFired["coproc"] = errors.New("bus fault")

	writeRecord(t, board, &retained.Record{
		Kinds: []alarm.Kind{alarm.KindCoproc},
	})

	_, err := New(context.Background(), board)
	require.ErrorIs(t, err, alarm.ErrHardwareFault)
}

// TestWakeAlarmReplacedByNextSleep verifies every finished in-run sleep
// replaces the cached wake alarm, including with nil on a non-alarm wake.
func TestWakeAlarmReplacedByNextSleep(t *testing.T) {
	t.Parallel()

	board := newFakeBoard()
	board.cause = hal.ResetDeepSleepAlarm

	writeRecord(t, board, &retained.Record{
		Kinds: []alarm.Kind{alarm.KindCoproc},
	})
	board.setLatch("coproc")

	engine := newTestEngine(t, board)
	require.Equal(t, alarm.CoprocAlarm{}, engine.WakeAlarm())

	board.setLatch(pinKey(4))

	pin := alarm.PinAlarm{Pin: 4, Value: alarm.High}

	woke, err := engine.LightSleepUntilAlarms(context.Background(), pin)
	require.NoError(t, err)
	require.Equal(t, pin, woke)
	require.Equal(t, pin, engine.WakeAlarm())

	woke, err = engine.LightSleepUntilAlarms(context.Background(),
		alarm.TimeAlarm{WakeAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.Nil(t, woke)
	require.Nil(t, engine.WakeAlarm())
}
