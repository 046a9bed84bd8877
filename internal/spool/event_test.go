package spool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestWriteAssignsIdentity checks that write fills the ID and timestamp and
// produces a file the listing can read back.
func TestWriteAssignsIdentity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	event := &Event{Kind: EventCoproc}

	path, err := Write(dir, event)
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)
	require.False(t, event.SentAt.IsZero())
	require.FileExists(t, path)

	pending, err := Pending(dir)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, event.ID, pending[0].ID)
	require.Equal(t, EventCoproc, pending[0].Kind)
}

// TestWriteRejectsUnknownKind checks validation happens before any file IO.
func TestWriteRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Write(dir, &Event{Kind: "blink"})
	require.ErrorIs(t, err, errUnknownKind)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestPendingSendOrder checks the listing follows send time, not write order.
func TestPendingSendOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Unix(1700000000, 0)

	// Written newest first.
	_, err := Write(dir, &Event{Kind: EventTouch, Pin: 3, Reading: 900, SentAt: base.Add(time.Second)})
	require.NoError(t, err)

	_, err = Write(dir, &Event{Kind: EventPin, Pin: 4, High: true, SentAt: base})
	require.NoError(t, err)

	pending, err := Pending(dir)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, EventPin, pending[0].Kind)
	require.Equal(t, EventTouch, pending[1].Kind)
}

// TestPendingMissingDir checks a spool dir that never existed reads as empty.
func TestPendingMissingDir(t *testing.T) {
	t.Parallel()

	pending, err := Pending(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	require.Empty(t, pending)
}

// TestPendingSkipsForeignFiles checks non-event files are ignored.
func TestPendingSkipsForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	_, err := Write(dir, &Event{Kind: EventCoproc})
	require.NoError(t, err)

	pending, err := Pending(dir)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}
