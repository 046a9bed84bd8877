package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"

	"github.com/oshokin/sleepwake/pkg/hal"
)

const (
	stateFileName    = "board.json"
	retainedFileName = "retained.bin"
)

// persistentState is the board.json schema.
type persistentState struct {
	// BootID identifies the run that wrote the file.
	BootID string `json:"boot_id"`
	// Wake is the handoff for the next boot; absent once consumed.
	Wake *wakeHandoff `json:"wake,omitempty"`
	// PinLevels are the explicitly driven pin levels; the world outlives resets.
	PinLevels map[uint8]bool `json:"pin_levels,omitempty"`
	// WrittenAt records the write time.
	WrittenAt time.Time `json:"written_at"`
}

// wakeHandoff carries the reset cause and the wake latches across the reset
// boundary.
type wakeHandoff struct {
	Cause     string  `json:"cause"`
	Timer     bool    `json:"timer,omitempty"`
	Pins      []uint8 `json:"pins,omitempty"`
	TouchPads []uint8 `json:"touch_pads,omitempty"`
	Coproc    bool    `json:"coproc,omitempty"`
}

// boot derives this run's reset cause and latches from whatever the previous
// run left in the state file, consumes the handoff and claims the directory.
func (b *Board) boot() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	previous, err := b.loadState()

	switch {
	case errors.Is(err, os.ErrNotExist):
		b.cause = hal.ResetPowerOn
	case err != nil:
		return err
	case previous.Wake != nil:
		cause, ok := hal.ParseResetCause(previous.Wake.Cause)
		if !ok {
			cause = hal.ResetUnknown
		}

		b.cause = cause
		b.adoptHandoffLocked(previous.Wake)
		b.adoptLevelsLocked(previous.PinLevels)
	default:
		// The previous run ended without persisting an exit state.
		b.cause = hal.ResetUnknown
		b.adoptLevelsLocked(previous.PinLevels)
	}

	if err = b.saveState(b.persistentStateLocked(nil)); err != nil {
		return fmt.Errorf("claim state directory: %w", err)
	}

	return nil
}

// adoptHandoffLocked turns a persisted handoff back into wake latches.
func (b *Board) adoptHandoffLocked(wake *wakeHandoff) {
	b.timerLatched = wake.Timer
	b.coprocLatched = wake.Coproc

	for _, pin := range wake.Pins {
		b.pinLatches[pin] = true
	}

	for _, pad := range wake.TouchPads {
		b.touchLatches[pad] = true
	}
}

func (b *Board) adoptLevelsLocked(levels map[uint8]bool) {
	for pin, high := range levels {
		b.pinLevels[pin] = high
	}
}

// wakeHandoffLocked snapshots the latches under the deep-sleep-alarm cause.
func (b *Board) wakeHandoffLocked() *wakeHandoff {
	wake := &wakeHandoff{
		Cause:  hal.ResetDeepSleepAlarm.String(),
		Timer:  b.timerLatched,
		Coproc: b.coprocLatched,
	}

	for pin, latched := range b.pinLatches {
		if latched {
			wake.Pins = append(wake.Pins, pin)
		}
	}

	for pad, latched := range b.touchLatches {
		if latched {
			wake.TouchPads = append(wake.TouchPads, pad)
		}
	}

	sort.Slice(wake.Pins, func(i, j int) bool { return wake.Pins[i] < wake.Pins[j] })
	sort.Slice(wake.TouchPads, func(i, j int) bool { return wake.TouchPads[i] < wake.TouchPads[j] })

	return wake
}

// persistentStateLocked snapshots the state file contents.
func (b *Board) persistentStateLocked(wake *wakeHandoff) *persistentState {
	levels := make(map[uint8]bool, len(b.pinLevels))
	for pin, high := range b.pinLevels {
		levels[pin] = high
	}

	return &persistentState{
		BootID:    b.bootID,
		Wake:      wake,
		PinLevels: levels,
		WrittenAt: time.Now(),
	}
}

func (b *Board) loadState() (*persistentState, error) {
	contents, err := os.ReadFile(b.statePath())
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state persistentState
	if err = json.Unmarshal(contents, &state); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return &state, nil
}

func (b *Board) saveState(state *persistentState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = atomicWrite(b.statePath(), data); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// loadRetained restores the always-on region. A length mismatch reads as a
// domain power loss and leaves the region zeroed.
func (b *Board) loadRetained() error {
	contents, err := os.ReadFile(b.retainedPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read retained file: %w", err)
	}

	if len(contents) != len(b.retained) {
		return nil
	}

	copy(b.retained, contents)

	return nil
}

func (b *Board) saveRetained(data []byte) error {
	return atomicWrite(b.retainedPath(), data)
}

func (b *Board) statePath() string {
	return filepath.Join(b.stateDir, stateFileName)
}

func (b *Board) retainedPath() string {
	return filepath.Join(b.stateDir, retainedFileName)
}

// atomicWrite replaces path in one step, fsync before rename.
func atomicWrite(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}

	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err = pending.Write(data); err != nil {
		return fmt.Errorf("write pending file: %w", err)
	}

	if err = pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	return nil
}
