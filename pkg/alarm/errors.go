package alarm

import "errors"

// Errors reported while validating and arming wake conditions.
var (
	// ErrConfiguration means a descriptor is self-contradictory or out of range
	// for the board (bad pin, zero threshold, deadline in the past).
	ErrConfiguration = errors.New("invalid alarm configuration")

	// ErrUnsupported means the board cannot serve the descriptor in the
	// requested sleep mode at all.
	ErrUnsupported = errors.New("alarm not supported on this board")

	// ErrResourceConflict means two descriptors in the same set compete for one
	// hardware resource, or a pin is reserved by the board.
	ErrResourceConflict = errors.New("alarm resource conflict")

	// ErrEmptyAlarmSet means a sleep was requested with no wake condition.
	ErrEmptyAlarmSet = errors.New("no alarms supplied")

	// ErrHardwareFault means the board rejected an arm or disarm request.
	ErrHardwareFault = errors.New("wake hardware fault")

	// ErrSleepInProgress means a sleep entry overlapped an ongoing one.
	ErrSleepInProgress = errors.New("sleep already in progress")
)
