package bench

import (
	"path/filepath"

	"github.com/oshokin/sleepwake/internal/config"
)

// Options locates the device the bench talks to.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file. Defaults apply
	// when empty.
	ConfigPath string
	// StateDir provides an optional power-domain directory override.
	StateDir string
	// SpoolDir provides an optional event spool directory override.
	SpoolDir string
}

// resolveConfig loads the configuration file and applies overrides, mirroring
// how the device resolves its directories so both ends meet at the same spool.
func resolveConfig(opts *Options) (*config.Config, error) {
	cfg := &config.Config{}

	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if opts.StateDir != "" {
		cfg.StateDir = opts.StateDir
		cfg.SpoolDir = filepath.Join(opts.StateDir, config.DefaultSpoolDirname)
	}

	if opts.SpoolDir != "" {
		cfg.SpoolDir = opts.SpoolDir
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
