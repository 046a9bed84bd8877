package sleep

import (
	"context"
	"fmt"
	"sync"

	"github.com/oshokin/sleepwake/internal/logger"
	"github.com/oshokin/sleepwake/internal/retained"
	"github.com/oshokin/sleepwake/pkg/alarm"
	"github.com/oshokin/sleepwake/pkg/hal"
)

// phase tracks where the engine stands in a sleep cycle.
type phase uint8

const (
	phaseIdle phase = iota
	phaseArming
	phaseSleeping
	phaseResolving
)

// String returns the short lowercase name of the phase.
func (p phase) String() string {
	switch p {
	case phaseArming:
		return "arming"
	case phaseSleeping:
		return "sleeping"
	case phaseResolving:
		return "resolving"
	default:
		return "idle"
	}
}

// Engine coordinates wake alarms on one board. All methods are safe for
// concurrent use; only one sleep may be in flight at a time.
type Engine struct {
	board hal.Board
	store *retained.Store

	times  *timeSource
	pins   *pinSource
	touch  *touchSource
	coproc *coprocSource

	mu        sync.Mutex
	phase     phase
	wakeAlarm alarm.Descriptor
}

// New wires an engine to the board and resolves this run's wake cause. It
// must run early in the program, before anything touches the wake latches.
func New(ctx context.Context, board hal.Board) (*Engine, error) {
	store, err := retained.NewStore(board)
	if err != nil {
		return nil, fmt.Errorf("open retained store: %w", err)
	}

	caps := board.Capabilities()

	e := &Engine{
		board:  board,
		store:  store,
		times:  &timeSource{board: board},
		pins:   &pinSource{board: board, caps: caps},
		touch:  &touchSource{board: board, caps: caps},
		coproc: &coprocSource{board: board, caps: caps},
	}

	if err = e.resolveWake(ctx); err != nil {
		return nil, err
	}

	return e, nil
}

// WakeAlarm returns the descriptor that woke the device, rebuilt at boot after
// a deep-sleep reset and replaced by every finished light sleep. It is nil
// when the run did not start or resume because of an alarm.
func (e *Engine) WakeAlarm() alarm.Descriptor {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.wakeAlarm
}

// sourceFor dispatches a descriptor to the source driving its kind.
func (e *Engine) sourceFor(d alarm.Descriptor) source {
	switch d.(type) {
	case alarm.TimeAlarm:
		return e.times
	case alarm.PinAlarm:
		return e.pins
	case alarm.TouchAlarm:
		return e.touch
	}

	return e.coproc
}

// allSources lists the sources in their fixed kind order.
func (e *Engine) allSources() []source {
	return []source{e.times, e.pins, e.touch, e.coproc}
}

// begin claims the engine for one sleep cycle.
func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != phaseIdle {
		return alarm.ErrSleepInProgress
	}

	e.phase = phaseArming

	return nil
}

// finish releases the engine after a sleep cycle.
func (e *Engine) finish() {
	e.mu.Lock()
	e.phase = phaseIdle
	e.mu.Unlock()
}

func (e *Engine) setPhase(ctx context.Context, p phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()

	logger.DebugKV(ctx, "sleep phase changed", "phase", p.String())
}

func (e *Engine) setWakeAlarm(d alarm.Descriptor) {
	e.mu.Lock()
	e.wakeAlarm = d
	e.mu.Unlock()
}
