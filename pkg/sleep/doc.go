// Package sleep coordinates wake alarms and the two low-power states.
//
// An Engine wraps one hal.Board. Creating it resolves the wake cause of the
// current run: after a deep-sleep reset the engine reads the retained wake
// record, matches it against the hardware latches and rebuilds the descriptor
// that ended the previous run's sleep. The result stays available through
// WakeAlarm for the rest of the run.
//
// LightSleepUntilAlarms blocks in place and returns the first declared
// descriptor whose condition fired, or nil when the sleep ended for another
// reason. DeepSleepUntilAlarms persists the wake record and powers the board
// down; control does not come back on a wake, the program restarts instead.
//
// Ordering is deterministic throughout: descriptors are validated, armed and
// polled in declaration order, arming is all-or-nothing with reverse rollback,
// and the recorded order decides ties after a deep-sleep reset.
package sleep
