// Package bench implements the operator side of the test bench: it injects
// wake events into a running device through the spool and inspects a power
// domain from the outside. The bench never opens the board itself, so it can
// poke at a device mid-run without disturbing it.
package bench
