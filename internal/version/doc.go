// Package version carries the build metadata stamped into the sleepwake
// binaries.
//
// Version, Commit and BuildTime default to local-build values and are meant
// to be overridden with ldflags. Full renders them for the version subcommand
// that AttachCobraVersionCommand hangs off a CLI root.
package version
