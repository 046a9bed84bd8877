// Package config defines device settings used by the sleepwake binaries and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the power-domain state directory, the injection spool
// directory and an optional board profile override.
package config
