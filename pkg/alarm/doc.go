// Package alarm defines the wake-condition descriptors a program hands to the
// sleep engine and the error taxonomy reported while configuring them.
//
// A descriptor describes one condition that may wake the device from light or
// deep sleep: a timer deadline, a pin level or edge, a touch pad reading, or a
// signal from the always-on coprocessor. Descriptors are immutable values; the
// same value that was passed to the engine is returned when its condition is
// the one that caused the wake-up.
package alarm
