// Package hal declares the narrow hardware interfaces the sleep engine
// coordinates: one waker per wake source, the sleeper that actually halts
// execution, the reset-cause register, and the retained memory region that
// survives deep sleep.
//
// The interfaces are written for the engine's needs, not for any particular
// chip. Arm, disarm and latch queries are register-style operations and do not
// take a context; both sleep entries block and honor cancellation. Package
// hal/sim provides the host implementation used by the demo binaries and the
// tests.
package hal
