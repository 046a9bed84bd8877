package sleep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/sleepwake/pkg/hal"
)

func pinKey(pin uint8) string   { return fmt.Sprintf("pin:%d", pin) }
func touchKey(pad uint8) string { return fmt.Sprintf("touch:%d", pad) }

// fakeBoard scripts a board for engine tests: it records arm and disarm
// order, injects failures per operation and exposes the latches directly.
type fakeBoard struct {
	mu sync.Mutex

	caps     hal.Capabilities
	cause    hal.ResetCause
	retained []byte

	calls      []string
	latches    map[string]bool
	pinReqs    map[uint8]hal.PinWakeRequest
	thresholds map[uint8]uint16

	failArm    map[string]error
	failDisarm map[string]error
	failFired  map[string]error
	writeErr   error

	clearCalls int

	lightSleepFn func(ctx context.Context) error
	deepSleepFn  func(ctx context.Context) error
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		caps: hal.Capabilities{
			Name:               "fake",
			PinCount:           16,
			WakePins:           []uint8{0, 2, 4, 6, 8, 10, 12, 14},
			TouchPins:          []uint8{3, 5, 7, 9},
			ReservedPins:       []uint8{1},
			TimerResolution:    time.Millisecond,
			MaxDeepPinAlarms:   2,
			MaxDeepTouchAlarms: 1,
			HasCoproc:          true,
		},
		cause:      hal.ResetPowerOn,
		retained:   make([]byte, 64),
		latches:    make(map[string]bool),
		pinReqs:    make(map[uint8]hal.PinWakeRequest),
		thresholds: make(map[uint8]uint16),
		failArm:    make(map[string]error),
		failDisarm: make(map[string]error),
		failFired:  make(map[string]error),
	}
}

func (f *fakeBoard) armOp(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "arm "+key)

	return f.failArm[key]
}

func (f *fakeBoard) disarmOp(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "disarm "+key)

	return f.failDisarm[key]
}

func (f *fakeBoard) firedOp(key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failFired[key]; err != nil {
		return false, err
	}

	return f.latches[key], nil
}

func (f *fakeBoard) setLatch(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latches[key] = true
}

func (f *fakeBoard) callsSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeBoard) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = nil
}

func (f *fakeBoard) ArmTimer(time.Time, bool) error { return f.armOp("time") }
func (f *fakeBoard) DisarmTimer() error             { return f.disarmOp("time") }
func (f *fakeBoard) TimerFired() (bool, error)      { return f.firedOp("time") }

func (f *fakeBoard) ArmPin(req hal.PinWakeRequest, _ bool) error {
	f.mu.Lock()
	f.pinReqs[req.Pin] = req
	f.mu.Unlock()

	return f.armOp(pinKey(req.Pin))
}

func (f *fakeBoard) DisarmPin(pin uint8) error        { return f.disarmOp(pinKey(pin)) }
func (f *fakeBoard) PinFired(pin uint8) (bool, error) { return f.firedOp(pinKey(pin)) }

func (f *fakeBoard) ArmTouch(pad uint8, threshold uint16, _ bool) error {
	f.mu.Lock()
	f.thresholds[pad] = threshold
	f.mu.Unlock()

	return f.armOp(touchKey(pad))
}

func (f *fakeBoard) DisarmTouch(pad uint8) error        { return f.disarmOp(touchKey(pad)) }
func (f *fakeBoard) TouchFired(pad uint8) (bool, error) { return f.firedOp(touchKey(pad)) }

func (f *fakeBoard) ArmCoproc(bool) error       { return f.armOp("coproc") }
func (f *fakeBoard) DisarmCoproc() error        { return f.disarmOp("coproc") }
func (f *fakeBoard) CoprocFired() (bool, error) { return f.firedOp("coproc") }

func (f *fakeBoard) LightSleep(ctx context.Context) error {
	if f.lightSleepFn != nil {
		return f.lightSleepFn(ctx)
	}

	return nil
}

func (f *fakeBoard) DeepSleep(ctx context.Context) error {
	if f.deepSleepFn != nil {
		return f.deepSleepFn(ctx)
	}

	return nil
}

func (f *fakeBoard) ResetCause() hal.ResetCause {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.cause
}

func (f *fakeBoard) ClearWakeStatus() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clearCalls++
	clear(f.latches)

	return nil
}

func (f *fakeBoard) Capabilities() hal.Capabilities { return f.caps }

func (f *fakeBoard) RetainedSize() int { return len(f.retained) }

func (f *fakeBoard) ReadRetained(offset int, dst []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if offset < 0 || offset+len(dst) > len(f.retained) {
		return fmt.Errorf("read [%d,%d) outside region", offset, offset+len(dst))
	}

	copy(dst, f.retained[offset:])

	return nil
}

func (f *fakeBoard) WriteRetained(offset int, src []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}

	if offset < 0 || offset+len(src) > len(f.retained) {
		return fmt.Errorf("write [%d,%d) outside region", offset, offset+len(src))
	}

	copy(f.retained[offset:], src)

	return nil
}
