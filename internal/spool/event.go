package spool

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// EventKind names an injectable wake stimulus.
type EventKind string

const (
	// EventPin drives a pin to a level.
	EventPin EventKind = "pin"
	// EventTouch reports a touch reading on a pad.
	EventTouch EventKind = "touch"
	// EventCoproc signals the wake coprocessor.
	EventCoproc EventKind = "coproc"
)

// fileSuffix marks complete event files; everything else in the spool dir is
// ignored, including the writer's pending temp files.
const fileSuffix = ".json"

// errUnknownKind is returned for events whose kind is not recognized.
var errUnknownKind = errors.New("unknown event kind")

// Event is one injected world change.
type Event struct {
	// ID identifies the event in logs; filled on write when empty.
	ID string `json:"id"`
	// Kind selects the stimulus.
	Kind EventKind `json:"kind"`
	// Pin is the pin number for pin events and the pad for touch events.
	Pin uint8 `json:"pin,omitempty"`
	// High is the level a pin event drives.
	High bool `json:"high,omitempty"`
	// Reading is the touch measurement of a touch event.
	Reading uint16 `json:"reading,omitempty"`
	// SentAt orders events; filled on write when zero.
	SentAt time.Time `json:"sent_at"`
}

// Validate checks that the event names a known stimulus.
func (e *Event) Validate() error {
	switch e.Kind {
	case EventPin, EventTouch, EventCoproc:
		return nil
	default:
		return fmt.Errorf("%q: %w", e.Kind, errUnknownKind)
	}
}

// Write persists the event atomically into dir and returns the file path.
// The spool contract is rename-based, so a reader never sees partial JSON.
func Write(dir string, event *Event) (string, error) {
	if err := event.Validate(); err != nil {
		return "", err
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.SentAt.IsZero() {
		event.SentAt = time.Now()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	// The nanosecond prefix makes lexicographic directory order the send
	// order.
	name := fmt.Sprintf("%d-%s%s", event.SentAt.UnixNano(), event.ID, fileSuffix)
	path := filepath.Join(dir, name)

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return "", fmt.Errorf("create pending event file: %w", err)
	}

	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err = pending.Write(data); err != nil {
		return "", fmt.Errorf("write event: %w", err)
	}

	if err = pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("replace event file: %w", err)
	}

	return path, nil
}

// Pending lists the events waiting in dir in send order without consuming
// them. Files vanishing mid-listing were consumed by the device and are
// skipped.
func Pending(dir string) ([]Event, error) {
	paths, err := pendingPaths(dir)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(paths))

	for _, path := range paths {
		event, err := readEvent(path)
		if err != nil {
			continue
		}

		events = append(events, *event)
	}

	return events, nil
}

// pendingPaths returns the event files in send order. ReadDir sorts by name,
// which the nanosecond prefix turns into chronological order.
func pendingPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read spool dir: %w", err)
	}

	paths := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileSuffix {
			continue
		}

		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return paths, nil
}

func readEvent(path string) (*Event, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}

	var event Event
	if err = json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	if err = event.Validate(); err != nil {
		return nil, err
	}

	return &event, nil
}
