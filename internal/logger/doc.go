// Package logger wraps zap for the sleepwake binaries.
//
// A process-wide sugared logger writes console lines to stdout. SetLevel
// moves its threshold at runtime; WithLevel pins an individual logger to its
// own. Contexts carry scoped loggers: WithName tags a component and the name
// renders in the output, WithKV and WithFields attach structured context,
// and the package-level helpers (InfoKV, WarnKV, Fatal, ...) log through
// whatever logger the context holds.
package logger
