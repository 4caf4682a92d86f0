package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrDuplicateID = errors.New("event with given ID already exists")

// ValidationError reports an event field that breaks the construction rules.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event %s: %s", e.Field, e.Reason)
}

// ConflictError is returned by Add and Update when the event would overlap
// stored events. Nothing has been changed when it is returned.
type ConflictError struct {
	Conflicting   []Event
	Suggested     time.Time
	HasSuggestion bool
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicting))
	for _, c := range e.Conflicting {
		parts = append(parts, c.String())
	}
	msg := "event conflicts with: " + strings.Join(parts, ", ")
	if e.HasSuggestion {
		return msg + "; suggested free slot: " + e.Suggested.Format("2006-01-02 at 15:04")
	}
	return msg + "; no free slot found near desired time"
}

// PersistenceError wraps a failed write of the data file. The store logs it
// and keeps the in-memory state.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist events to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DecodeWarning describes one record skipped while loading.
type DecodeWarning struct {
	Line   int
	Reason string
}

func (w DecodeWarning) String() string {
	if w.Line == 0 {
		return w.Reason
	}
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}
