// Package sim implements hal.Board as a simulated device for host development
// and tests.
//
// The simulated power domain is a state directory: board.json carries the
// reset cause and wake latches across the deep-sleep boundary, retained.bin
// holds the always-on retained memory region. Deep sleep blocks the calling
// goroutine like the real chip halts; a qualifying wake persists the handoff
// and invokes the configured restart hook, which on the demo binary re-execs
// the process to emulate the reset.
//
// World inputs arrive through the injection methods (SetPinLevel, Touch,
// CoprocSignal). Undriven pins idle low; an enabled pull holds an undriven pin
// at the level opposite its trigger. The simulated controller arms the same
// circuitry for light and deep sleep, so the deep flag on the arm calls is
// accepted and ignored.
package sim
