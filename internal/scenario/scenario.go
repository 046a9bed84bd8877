package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one device script: scheduled world events plus ordered steps.
type Scenario struct {
	// Name labels the run in logs.
	Name string `yaml:"name"`
	// Events are world changes injected at fixed offsets from the run start.
	Events []ScheduledEvent `yaml:"events"`
	// Steps execute in order; guarded steps are skipped when the guard does
	// not match the current wake alarm.
	Steps []Step `yaml:"steps"`
}

// ScheduledEvent is a wake stimulus the device injects into itself partway
// through the run, standing in for the outside world.
type ScheduledEvent struct {
	// After is the offset from the run start.
	After time.Duration `yaml:"after"`
	// Kind is the stimulus: pin, touch or coproc.
	Kind string `yaml:"kind"`
	// Pin is the pin number for pin events and the pad for touch events.
	Pin uint8 `yaml:"pin,omitempty"`
	// High is the level a pin event drives.
	High bool `yaml:"high,omitempty"`
	// Reading is the touch measurement of a touch event.
	Reading uint16 `yaml:"reading,omitempty"`
}

// Step is one scenario action. Exactly one of the action fields must be set.
type Step struct {
	// Log writes a line at info level.
	Log string `yaml:"log,omitempty"`
	// Report logs the current wake alarm and reset cause.
	Report bool `yaml:"report,omitempty"`
	// LightSleep halts in place until one of its alarms fires.
	LightSleep *SleepStep `yaml:"light_sleep,omitempty"`
	// DeepSleep powers the device down; the run restarts from the top.
	DeepSleep *SleepStep `yaml:"deep_sleep,omitempty"`
	// When guards the step on the current wake cause.
	When *Guard `yaml:"when,omitempty"`
}

// SleepStep carries the alarm set of a sleep action.
type SleepStep struct {
	Alarms []AlarmSpec `yaml:"alarms"`
}

// Guard restricts a step to particular wake causes.
type Guard struct {
	// WakeCause lists accepted causes: time, pin, touch, coproc, or none for
	// a run without a wake alarm.
	WakeCause []string `yaml:"wake_cause"`
}

// AlarmSpec is the YAML form of one alarm descriptor. Exactly one of the
// fields must be set.
type AlarmSpec struct {
	Time   *TimeSpec  `yaml:"time,omitempty"`
	Pin    *PinSpec   `yaml:"pin,omitempty"`
	Touch  *TouchSpec `yaml:"touch,omitempty"`
	Coproc bool       `yaml:"coproc,omitempty"`
}

// TimeSpec arms a timer alarm relative to the moment the step executes.
type TimeSpec struct {
	WakeIn time.Duration `yaml:"wake_in"`
}

// PinSpec arms a pin alarm.
type PinSpec struct {
	Pin uint8 `yaml:"pin"`
	// Value is high or low; empty means high.
	Value string `yaml:"value,omitempty"`
	Edge  bool   `yaml:"edge,omitempty"`
	Pull  bool   `yaml:"pull,omitempty"`
}

// TouchSpec arms a touch alarm.
type TouchSpec struct {
	Pad       uint8  `yaml:"pad"`
	Threshold uint16 `yaml:"threshold"`
}

var (
	// errNoSteps is returned for scenarios without any steps.
	errNoSteps = errors.New("scenario has no steps")
	// errStepShape is returned when a step does not name exactly one action.
	errStepShape = errors.New("step must name exactly one action")
	// errAlarmShape is returned when an alarm spec does not name exactly one kind.
	errAlarmShape = errors.New("alarm must name exactly one kind")
)

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(contents, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal scenario: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}

	return &sc, nil
}

// Validate checks the scenario shape: step and alarm exclusivity, known
// guard causes, known event kinds.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return errNoSteps
	}

	for i, event := range s.Events {
		if err := event.validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	return nil
}

func (e *ScheduledEvent) validate() error {
	if e.After < 0 {
		return fmt.Errorf("negative offset %s", e.After)
	}

	switch e.Kind {
	case "pin", "touch", "coproc":
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

func (st *Step) validate() error {
	actions := 0

	if st.Log != "" {
		actions++
	}

	if st.Report {
		actions++
	}

	if st.LightSleep != nil {
		actions++
	}

	if st.DeepSleep != nil {
		actions++
	}

	if actions != 1 {
		return errStepShape
	}

	if st.When != nil {
		for _, cause := range st.When.WakeCause {
			switch cause {
			case "time", "pin", "touch", "coproc", "none":
			default:
				return fmt.Errorf("unknown wake cause %q", cause)
			}
		}
	}

	for _, sleepStep := range []*SleepStep{st.LightSleep, st.DeepSleep} {
		if sleepStep == nil {
			continue
		}

		if len(sleepStep.Alarms) == 0 {
			return errors.New("sleep step needs at least one alarm")
		}

		for i, spec := range sleepStep.Alarms {
			if err := spec.validate(); err != nil {
				return fmt.Errorf("alarm %d: %w", i, err)
			}
		}
	}

	return nil
}

func (a *AlarmSpec) validate() error {
	kinds := 0

	if a.Time != nil {
		kinds++
	}

	if a.Pin != nil {
		kinds++
	}

	if a.Touch != nil {
		kinds++
	}

	if a.Coproc {
		kinds++
	}

	if kinds != 1 {
		return errAlarmShape
	}

	if a.Time != nil && a.Time.WakeIn <= 0 {
		return fmt.Errorf("timer must wake in the future, got %s", a.Time.WakeIn)
	}

	if a.Pin != nil {
		switch a.Pin.Value {
		case "", "high", "low":
		default:
			return fmt.Errorf("unknown pin value %q", a.Pin.Value)
		}
	}

	return nil
}
