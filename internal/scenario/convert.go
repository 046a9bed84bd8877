package scenario

import (
	"time"

	"github.com/oshokin/sleepwake/internal/spool"
	"github.com/oshokin/sleepwake/pkg/alarm"
)

// Descriptors builds the alarm set of a sleep step, resolving relative timer
// deadlines against now.
func (ss *SleepStep) Descriptors(now time.Time) []alarm.Descriptor {
	out := make([]alarm.Descriptor, 0, len(ss.Alarms))

	for _, spec := range ss.Alarms {
		out = append(out, spec.Descriptor(now))
	}

	return out
}

// Descriptor converts one validated alarm spec.
func (a *AlarmSpec) Descriptor(now time.Time) alarm.Descriptor {
	switch {
	case a.Time != nil:
		return alarm.TimeAlarm{WakeAt: now.Add(a.Time.WakeIn)}
	case a.Pin != nil:
		value := alarm.High
		if a.Pin.Value == "low" {
			value = alarm.Low
		}

		return alarm.PinAlarm{Pin: a.Pin.Pin, Value: value, Edge: a.Pin.Edge, Pull: a.Pin.Pull}
	case a.Touch != nil:
		return alarm.TouchAlarm{Pin: a.Touch.Pad, Threshold: a.Touch.Threshold}
	default:
		return alarm.CoprocAlarm{}
	}
}

// SpoolEvent converts a scheduled event to its spool form.
func (e *ScheduledEvent) SpoolEvent() spool.Event {
	return spool.Event{
		Kind:    spool.EventKind(e.Kind),
		Pin:     e.Pin,
		High:    e.High,
		Reading: e.Reading,
	}
}

// Matches reports whether the guard accepts the current wake alarm; a nil or
// empty guard accepts everything.
func (g *Guard) Matches(woke alarm.Descriptor) bool {
	if g == nil || len(g.WakeCause) == 0 {
		return true
	}

	current := alarm.KindNone.String()
	if woke != nil {
		current = woke.Kind().String()
	}

	for _, cause := range g.WakeCause {
		if cause == current {
			return true
		}
	}

	return false
}
