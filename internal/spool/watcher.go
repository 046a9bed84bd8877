package spool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/sleepwake/internal/logger"
)

// Sink receives the world changes carried by spool events. The simulated
// board's injection surface satisfies it.
type Sink interface {
	SetPinLevel(pin uint8, high bool) error
	Touch(pad uint8, reading uint16) error
	CoprocSignal() error
}

// Watcher consumes event files from a spool directory and applies them to a
// sink. Applied and malformed files are both deleted; an event is delivered
// at most once.
type Watcher struct {
	dir  string
	sink Sink
}

// NewWatcher prepares the spool directory for watching.
func NewWatcher(dir string, sink Sink) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	return &Watcher{dir: dir, sink: sink}, nil
}

// Run sweeps the backlog and then applies events as they arrive, until ctx is
// cancelled. The watch is registered before the sweep, so an event written
// during the sweep is seen on one of the two paths.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}

	defer func() {
		_ = fsw.Close()
	}()

	if err = fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch spool dir: %w", err)
	}

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("spool watch closed")
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.apply(ctx, event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("spool watch closed")
			}

			logger.WarnKV(ctx, "spool watch error", "error", err)
		}
	}
}

// sweep applies the backlog accumulated while no watcher was running, oldest
// first.
func (w *Watcher) sweep(ctx context.Context) {
	paths, err := pendingPaths(w.dir)
	if err != nil {
		logger.WarnKV(ctx, "spool sweep failed", "error", err)

		return
	}

	if len(paths) > 0 {
		logger.InfoKV(ctx, "sweeping spool backlog", "events", len(paths))
	}

	for _, path := range paths {
		w.apply(ctx, path)
	}
}

// apply consumes one event file: parse, dispatch, delete. A file that
// vanished was already consumed on the other delivery path.
func (w *Watcher) apply(ctx context.Context, path string) {
	if filepath.Ext(path) != fileSuffix {
		return
	}

	event, err := readEvent(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}

	if err != nil {
		logger.WarnKV(ctx, "dropping bad spool event", "path", path, "error", err)
		w.remove(ctx, path)

		return
	}

	if err = w.dispatch(event); err != nil {
		logger.ErrorKV(ctx, "apply spool event failed",
			"id", event.ID, "kind", string(event.Kind), "error", err)
	} else {
		logger.InfoKV(ctx, "applied spool event", "id", event.ID, "kind", string(event.Kind))
	}

	w.remove(ctx, path)
}

func (w *Watcher) dispatch(event *Event) error {
	switch event.Kind {
	case EventPin:
		return w.sink.SetPinLevel(event.Pin, event.High)
	case EventTouch:
		return w.sink.Touch(event.Pin, event.Reading)
	case EventCoproc:
		return w.sink.CoprocSignal()
	default:
		return fmt.Errorf("%q: %w", event.Kind, errUnknownKind)
	}
}

func (w *Watcher) remove(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "remove spool event failed", "path", path, "error", err)
	}
}
