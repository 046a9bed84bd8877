// Package device runs the simulated board end to end: it opens the power
// domain, boots the alarm engine, serves injected wake events from the spool
// and optionally executes a scenario script. A deep-sleep wake re-executes the
// process so the next run resolves its wake alarm from the persisted handoff,
// the same way a hardware reset would.
package device
