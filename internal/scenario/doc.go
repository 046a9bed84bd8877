// Package scenario defines the YAML script a simulated device executes after
// boot: a list of steps (sleeps, reports, log lines) with optional guards on
// the current wake cause, plus world events scheduled relative to the run
// start. The package is declarative; the device service interprets it.
package scenario
