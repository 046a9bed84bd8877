package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status is a read-only view of a board's persisted state, for tooling that
// inspects a power domain without opening the board.
type Status struct {
	// BootID identifies the run that last wrote the state file.
	BootID string
	// WrittenAt is when the state file was last written.
	WrittenAt time.Time
	// PinLevels are the explicitly driven pin levels.
	PinLevels map[uint8]bool
	// PendingWake describes a persisted handoff the next boot will consume.
	// It is nil once a boot has claimed the directory.
	PendingWake *PendingWake
}

// PendingWake is the exit state the previous run left for the next boot.
type PendingWake struct {
	// Cause is the reset cause the next boot will report.
	Cause string
	// Timer reports a latched wake timer.
	Timer bool
	// Pins are the latched wake pins.
	Pins []uint8
	// TouchPads are the latched touch pads.
	TouchPads []uint8
	// Coproc reports a latched coprocessor wake.
	Coproc bool
}

// ReadStatus reads the persisted state under stateDir without opening the
// board. A domain no board has ever claimed reports os.ErrNotExist.
func ReadStatus(stateDir string) (*Status, error) {
	contents, err := os.ReadFile(filepath.Join(stateDir, stateFileName))
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state persistentState
	if err = json.Unmarshal(contents, &state); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	status := &Status{
		BootID:    state.BootID,
		WrittenAt: state.WrittenAt,
		PinLevels: state.PinLevels,
	}

	if state.Wake != nil {
		status.PendingWake = &PendingWake{
			Cause:     state.Wake.Cause,
			Timer:     state.Wake.Timer,
			Pins:      state.Wake.Pins,
			TouchPads: state.Wake.TouchPads,
			Coproc:    state.Wake.Coproc,
		}
	}

	return status, nil
}
