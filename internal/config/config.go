package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/sleepwake/pkg/hal"
)

// Config holds the device settings shared by the sleepwake binaries.
type Config struct {
	// StateDir is the directory standing in for the board's power domain.
	StateDir string `yaml:"state_dir"`
	// SpoolDir is the directory watched for injected wake events.
	SpoolDir string `yaml:"spool_dir"`
	// ScenarioFile is the optional scenario to execute after boot. When empty
	// the device only resolves its wake cause and serves injections.
	ScenarioFile string `yaml:"scenario_file"`
	// RetainedSize is the size of the always-on memory region in bytes.
	RetainedSize int `yaml:"retained_size"`
	// Profile overrides the built-in board profile when set.
	Profile *Profile `yaml:"profile"`
}

// Profile mirrors hal.Capabilities in YAML form.
type Profile struct {
	// Name identifies the board model in logs and status output.
	Name string `yaml:"name"`
	// PinCount is the number of GPIO pins, numbered from zero.
	PinCount uint8 `yaml:"pin_count"`
	// WakePins lists the pins able to wake the board from deep sleep.
	WakePins []uint8 `yaml:"wake_pins"`
	// TouchPins lists the touch-capable pads.
	TouchPins []uint8 `yaml:"touch_pins"`
	// ReservedPins lists pins claimed by other peripherals.
	ReservedPins []uint8 `yaml:"reserved_pins"`
	// TimerResolution is the granularity of the wake timer.
	TimerResolution time.Duration `yaml:"timer_resolution"`
	// MaxDeepPinAlarms caps pin alarms armed for deep sleep.
	MaxDeepPinAlarms int `yaml:"max_deep_pin_alarms"`
	// MaxDeepTouchAlarms caps touch alarms armed for deep sleep.
	MaxDeepTouchAlarms int `yaml:"max_deep_touch_alarms"`
	// Coproc reports whether a wake coprocessor is present.
	Coproc bool `yaml:"coproc"`
}

const (
	// DefaultConfigFilename is the default filename for device settings.
	DefaultConfigFilename = "sleepwake.yaml"

	// DefaultStateDirname is the default power-domain directory.
	DefaultStateDirname = "sleepwake-state"

	// DefaultSpoolDirname is the spool directory created under the state dir
	// when no explicit spool path is configured.
	DefaultSpoolDirname = "spool"

	// DefaultRetainedSize is the default always-on region size.
	DefaultRetainedSize = 32

	// MinRetainedSize is the smallest region able to hold a wake record.
	MinRetainedSize = 32

	// DefaultTimerResolution is the default wake-timer granularity.
	DefaultTimerResolution = time.Millisecond

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errProfileWithoutPins is returned when a profile declares no pins.
	errProfileWithoutPins = errors.New("board profile must declare at least one pin")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDirname
	}

	if cfg.SpoolDir == "" {
		cfg.SpoolDir = filepath.Join(cfg.StateDir, DefaultSpoolDirname)
	}

	if cfg.RetainedSize == 0 {
		cfg.RetainedSize = DefaultRetainedSize
	}

	if cfg.RetainedSize < MinRetainedSize {
		return fmt.Errorf("retained region of %d bytes cannot hold a wake record (minimum %d)",
			cfg.RetainedSize, MinRetainedSize)
	}

	if cfg.Profile == nil {
		return nil
	}

	return validateProfile(cfg.Profile)
}

func validateProfile(p *Profile) error {
	if p.PinCount == 0 {
		return errProfileWithoutPins
	}

	if p.Name == "" {
		p.Name = "custom"
	}

	if p.TimerResolution <= 0 {
		p.TimerResolution = DefaultTimerResolution
	}

	for _, group := range []struct {
		label string
		pins  []uint8
	}{
		{label: "wake", pins: p.WakePins},
		{label: "touch", pins: p.TouchPins},
		{label: "reserved", pins: p.ReservedPins},
	} {
		for _, pin := range group.pins {
			if pin >= p.PinCount {
				return fmt.Errorf("%s pin %d outside the board's %d pins",
					group.label, pin, p.PinCount)
			}
		}
	}

	if p.MaxDeepPinAlarms < 0 || p.MaxDeepTouchAlarms < 0 {
		return fmt.Errorf("deep alarm limits must not be negative")
	}

	return nil
}

// Capabilities converts the profile to its runtime form.
func (p *Profile) Capabilities() hal.Capabilities {
	return hal.Capabilities{
		Name:               p.Name,
		PinCount:           p.PinCount,
		WakePins:           append([]uint8(nil), p.WakePins...),
		TouchPins:          append([]uint8(nil), p.TouchPins...),
		ReservedPins:       append([]uint8(nil), p.ReservedPins...),
		TimerResolution:    p.TimerResolution,
		MaxDeepPinAlarms:   p.MaxDeepPinAlarms,
		MaxDeepTouchAlarms: p.MaxDeepTouchAlarms,
		HasCoproc:          p.Coproc,
	}
}
