package sim

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/sleepwake/pkg/hal"
)

const (
	// DefaultRetainedSize is the retained region length when none is configured.
	DefaultRetainedSize = 64

	stateDirPermissions = 0o755
)

// Options configures a simulated board.
type Options struct {
	// StateDir is the directory standing in for the always-on power domain.
	StateDir string
	// Profile is the board profile; the zero value selects DefaultProfile.
	Profile hal.Capabilities
	// RetainedSize overrides the retained region length in bytes.
	RetainedSize int
	// Restart runs after a qualifying deep-sleep wake has been persisted. The
	// demo binary re-execs the process here; tests signal a channel. DeepSleep
	// keeps blocking afterwards, matching hardware where the reset is the only
	// way out.
	Restart func()
}

// Board is a simulated device implementing hal.Board.
type Board struct {
	stateDir string
	caps     hal.Capabilities
	restart  func()
	bootID   string

	mu sync.Mutex

	// Armed wake sources.
	timerArmed    bool
	timerDeadline time.Time
	armedPins     map[uint8]hal.PinWakeRequest
	armedTouch    map[uint8]uint16
	coprocArmed   bool

	// Wake latches. Latches outlive disarm and are cleared only by
	// ClearWakeStatus or a non-wake reset.
	timerLatched  bool
	pinLatches    map[uint8]bool
	touchLatches  map[uint8]bool
	coprocLatched bool

	// World state: explicitly driven pin levels (true = high).
	pinLevels map[uint8]bool

	cause    hal.ResetCause
	retained []byte

	// handedOff marks that this run already persisted its exit state, either a
	// deep-sleep wake or an external reset. Close keeps its hands off then.
	handedOff bool

	// wakeCh carries one pending wake signal to a blocked sleeper.
	wakeCh chan struct{}
}

// DefaultProfile describes the simulated devkit: sixteen pins with the even
// ones wake-capable, four touch pads, one reserved pin and an always-on
// coprocessor.
func DefaultProfile() hal.Capabilities {
	return hal.Capabilities{
		Name:               "sim-devkit-1",
		PinCount:           16,
		WakePins:           []uint8{0, 2, 4, 6, 8, 10, 12, 14},
		TouchPins:          []uint8{3, 5, 7, 9},
		ReservedPins:       []uint8{1},
		TimerResolution:    time.Millisecond,
		MaxDeepPinAlarms:   2,
		MaxDeepTouchAlarms: 1,
		HasCoproc:          true,
	}
}

// New opens the power domain under opts.StateDir and boots a board from
// whatever the previous run left there: a fresh directory boots with the
// power-on cause, a persisted wake handoff is adopted and consumed, anything
// else reads as an unexplained reset.
func New(opts Options) (*Board, error) {
	if opts.StateDir == "" {
		return nil, fmt.Errorf("state directory is required")
	}

	caps := opts.Profile
	if caps.Name == "" {
		caps = DefaultProfile()
	}

	size := opts.RetainedSize
	if size == 0 {
		size = DefaultRetainedSize
	}

	if err := os.MkdirAll(opts.StateDir, stateDirPermissions); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	b := &Board{
		stateDir:     opts.StateDir,
		caps:         caps,
		restart:      opts.Restart,
		bootID:       uuid.NewString(),
		armedPins:    make(map[uint8]hal.PinWakeRequest),
		armedTouch:   make(map[uint8]uint16),
		pinLatches:   make(map[uint8]bool),
		touchLatches: make(map[uint8]bool),
		pinLevels:    make(map[uint8]bool),
		retained:     make([]byte, size),
		wakeCh:       make(chan struct{}, 1),
	}

	if err := b.loadRetained(); err != nil {
		return nil, err
	}

	if err := b.boot(); err != nil {
		return nil, err
	}

	return b, nil
}

// BootID identifies this run of the board in logs and status output.
func (b *Board) BootID() string {
	return b.bootID
}

// Capabilities returns the board profile.
func (b *Board) Capabilities() hal.Capabilities {
	return b.caps
}

// ResetCause reports why this run of the board started.
func (b *Board) ResetCause() hal.ResetCause {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cause
}

// Close persists a software-reset handoff, which the next boot reports as
// hal.ResetSoftware. After a deep-sleep wake or an external reset has been
// persisted, Close leaves the handoff untouched.
func (b *Board) Close() error {
	b.mu.Lock()
	if b.handedOff {
		b.mu.Unlock()
		return nil
	}

	b.handedOff = true
	state := b.persistentStateLocked(&wakeHandoff{Cause: hal.ResetSoftware.String()})
	b.mu.Unlock()

	if err := b.saveState(state); err != nil {
		return fmt.Errorf("persist shutdown state: %w", err)
	}

	return nil
}

// RetainedSize returns the retained region length in bytes.
func (b *Board) RetainedSize() int {
	return len(b.retained)
}

// ReadRetained copies len(dst) bytes starting at offset into dst.
func (b *Board) ReadRetained(offset int, dst []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if offset < 0 || offset+len(dst) > len(b.retained) {
		return fmt.Errorf("retained read [%d,%d) outside region of %d bytes",
			offset, offset+len(dst), len(b.retained))
	}

	copy(dst, b.retained[offset:])

	return nil
}

// WriteRetained copies src into the region starting at offset and persists the
// region. The retained file survives every kind of reset, like memory in the
// always-on domain.
func (b *Board) WriteRetained(offset int, src []byte) error {
	b.mu.Lock()

	if offset < 0 || offset+len(src) > len(b.retained) {
		b.mu.Unlock()
		return fmt.Errorf("retained write [%d,%d) outside region of %d bytes",
			offset, offset+len(src), len(b.retained))
	}

	copy(b.retained[offset:], src)
	snapshot := make([]byte, len(b.retained))
	copy(snapshot, b.retained)
	b.mu.Unlock()

	if err := b.saveRetained(snapshot); err != nil {
		return fmt.Errorf("persist retained region: %w", err)
	}

	return nil
}
