package test_utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klokku/planner/pkg/calendar"
)

// NewDataFile writes content to a fresh data file inside a per-test temp
// directory and returns its path. Empty content leaves the file absent so
// the repository creates it on first load.
func NewDataFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scheduler_data.txt")
	if content == "" {
		return path
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write data file: %v", err)
	}
	return path
}

// NewFileStore opens a store over a new temp data file.
func NewFileStore(t *testing.T, opts ...calendar.Option) (*calendar.Store, string) {
	t.Helper()

	path := NewDataFile(t, "")
	store, err := calendar.NewStore(calendar.NewFileRepository(path), opts...)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return store, path
}

// NewMemoryStore opens a store that never touches the disk.
func NewMemoryStore(t *testing.T, opts ...calendar.Option) *calendar.Store {
	t.Helper()

	store, err := calendar.NewStore(calendar.NewRepositoryStub(), opts...)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return store
}

// Appointment builds a valid appointment or fails the test.
func Appointment(t *testing.T, title string, start time.Time, minutes int) calendar.Event {
	t.Helper()

	e, err := calendar.NewEvent(calendar.EventParams{
		Kind:            calendar.KindAppointment,
		Title:           title,
		Start:           start,
		DurationMinutes: minutes,
	})
	if err != nil {
		t.Fatalf("Failed to build event: %v", err)
	}
	return e
}

// Date returns the given wall clock time in the local zone.
func Date(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.Local)
}
