package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/klokku/planner/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

type entry struct {
	event Event
	seq   uint64
}

// Store is the authoritative set of events. One mutex covers the event map
// and the reminder markers; every mutation persists the whole set before the
// lock is released.
type Store struct {
	mu       sync.Mutex
	events   map[string]*entry
	nextSeq  uint64
	notified *notifiedCache

	repo   Repository
	bus    *event_bus.EventBus
	slots  SlotSearch
	notCap int
}

type Option func(*Store)

// WithBus publishes store changes on bus after each successful mutation.
func WithBus(bus *event_bus.EventBus) Option {
	return func(s *Store) { s.bus = bus }
}

func WithSlotSearch(search SlotSearch) Option {
	return func(s *Store) { s.slots = search }
}

func WithReminderCapacity(capacity int) Option {
	return func(s *Store) { s.notCap = capacity }
}

func NewStore(repo Repository, opts ...Option) (*Store, error) {
	s := &Store{
		events: make(map[string]*entry),
		repo:   repo,
		slots:  DefaultSlotSearch(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.notified = newNotifiedCache(s.notCap)

	loaded, warnings, err := repo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	warnings = append(warnings, s.seed(loaded)...)
	for _, w := range warnings {
		log.Warnf("Skipping stored event record: %s", w)
	}
	log.Infof("Loaded %d events (%d records skipped)", len(s.events), len(warnings))
	return s, nil
}

// seed inserts loaded events in start order, refusing duplicates and
// overlaps so the invariants hold from the first query on.
func (s *Store) seed(events []Event) []DecodeWarning {
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start().Before(sorted[j].Start())
	})

	var warnings []DecodeWarning
	for _, e := range sorted {
		if err := e.Validate(); err != nil {
			warnings = append(warnings, DecodeWarning{Reason: fmt.Sprintf("event %s: %v", e.ID(), err)})
			continue
		}
		if _, exists := s.events[e.ID()]; exists {
			warnings = append(warnings, DecodeWarning{Reason: fmt.Sprintf("duplicate event id %s", e.ID())})
			continue
		}
		if conflicts := s.conflictsWith(e, ""); len(conflicts) > 0 {
			warnings = append(warnings, DecodeWarning{Reason: fmt.Sprintf("event %s overlaps %s", e.ID(), conflicts[0].ID())})
			continue
		}
		s.insert(e)
	}
	return warnings
}

// Add stores a new event. It fails with *ConflictError when the event would
// overlap a stored one and with ErrDuplicateID when the id is taken.
func (s *Store) Add(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.events[e.ID()]; exists {
		s.mu.Unlock()
		return fmt.Errorf("failed to add event %s: %w", e.ID(), ErrDuplicateID)
	}
	if err := s.checkConflicts(e, ""); err != nil {
		s.mu.Unlock()
		return err
	}
	s.insert(e)
	s.persist()
	s.mu.Unlock()

	s.publish(event_bus.EventScheduled, changedPayload(e))
	return nil
}

// Update replaces the event stored under e's id, or inserts it when the id
// is unknown. The previous version of the event never counts as a conflict.
// A successful update re-arms the reminder for the event.
func (s *Store) Update(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.checkConflicts(e, e.ID()); err != nil {
		s.mu.Unlock()
		return err
	}
	if existing, ok := s.events[e.ID()]; ok {
		existing.event = e
	} else {
		s.insert(e)
	}
	s.notified.forget(e.ID())
	s.persist()
	s.mu.Unlock()

	s.publish(event_bus.EventRescheduled, changedPayload(e))
	return nil
}

// Delete removes the event if present. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	_, existed := s.events[id]
	delete(s.events, id)
	s.notified.forget(id)
	s.persist()
	s.mu.Unlock()

	s.publish(event_bus.EventCancelled, event_bus.CalendarEventCancelled{UID: id, Existed: existed})
}

func (s *Store) Get(id string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return Event{}, false
	}
	return e.event, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// All returns a snapshot ordered by start time.
func (s *Store) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(Event) bool { return true })
}

// EventsInRange returns the events overlapping [start, end).
func (s *Store) EventsInRange(start, end time.Time) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(e Event) bool {
		return Overlaps(e.Start(), e.End(), start, end)
	})
}

func (s *Store) EventsForDay(date time.Time) []Event {
	day := midnight(date)
	return s.EventsInRange(day, day.AddDate(0, 0, 1))
}

func (s *Store) EventsForWeek(weekStart time.Time) []Event {
	first := midnight(weekStart)
	return s.EventsInRange(first, first.AddDate(0, 0, 7))
}

// EventsForMonth returns the events of the month containing month.
func (s *Store) EventsForMonth(month time.Time) []Event {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	return s.EventsInRange(first, first.AddDate(0, 1, 0))
}

// SuggestFreeSlot proposes a start time near desired where an event of the
// given length fits. The search is bounded by the configured SlotSearch.
func (s *Store) SuggestFreeSlot(desired time.Time, durationMinutes int) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.find(s.events, "", desired, durationMinutes)
}

// CollectDue returns the events whose reminder should fire at now and marks
// them as notified. Markers of long-started events are expired first.
func (s *Store) CollectDue(now time.Time, w ReminderWindow) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expired := s.notified.expire(now.Add(-w.Retain)); expired > 0 {
		log.Debugf("Expired %d reminder markers", expired)
	}
	due := s.collect(func(e Event) bool {
		return w.contains(now, e.Start()) && !s.notified.has(e.ID(), e.Start())
	})
	for _, e := range due {
		s.notified.mark(e.ID(), e.Start())
	}
	return due
}

func (s *Store) insert(e Event) {
	s.nextSeq++
	s.events[e.ID()] = &entry{event: e, seq: s.nextSeq}
}

func (s *Store) checkConflicts(e Event, exclude string) error {
	conflicts := s.conflictsWith(e, exclude)
	if len(conflicts) == 0 {
		return nil
	}
	suggested, ok := s.slots.find(s.events, exclude, e.Start(), e.DurationMinutes())
	return &ConflictError{
		Conflicting:   conflicts,
		Suggested:     suggested,
		HasSuggestion: ok,
	}
}

func (s *Store) conflictsWith(e Event, exclude string) []Event {
	var conflicts []*entry
	for id, existing := range s.events {
		if id == exclude {
			continue
		}
		if Conflicts(existing.event, e) {
			conflicts = append(conflicts, existing)
		}
	}
	return sortedEvents(conflicts)
}

func (s *Store) collect(keep func(Event) bool) []Event {
	matched := make([]*entry, 0, len(s.events))
	for _, e := range s.events {
		if keep(e.event) {
			matched = append(matched, e)
		}
	}
	return sortedEvents(matched)
}

// persist mirrors the current set to the repository. Failures are logged;
// the in-memory state stays authoritative and the next mutation retries.
func (s *Store) persist() {
	snapshot := s.collect(func(Event) bool { return true })
	if err := s.repo.Save(snapshot); err != nil {
		perr := &PersistenceError{Path: repoPath(s.repo), Err: err}
		log.Errorf("%v", perr)
	}
}

func (s *Store) publish(eventType event_bus.EventType, data any) {
	if s.bus == nil || !s.bus.HasSubscribers(eventType) {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(context.Background(), eventType, data)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}

func changedPayload(e Event) event_bus.CalendarEventChanged {
	return event_bus.CalendarEventChanged{
		UID:       e.ID(),
		Kind:      e.Kind().String(),
		Title:     e.Title(),
		StartTime: e.Start(),
		EndTime:   e.End(),
	}
}

func sortedEvents(entries []*entry) []Event {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.event.Start().Equal(b.event.Start()) {
			return a.event.Start().Before(b.event.Start())
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return a.event.ID() < b.event.ID()
	})
	out := make([]Event, len(entries))
	for i, e := range entries {
		out[i] = e.event
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func repoPath(repo Repository) string {
	if p, ok := repo.(interface{ Path() string }); ok {
		return p.Path()
	}
	return fmt.Sprintf("%T", repo)
}

// IsConflict unwraps a *ConflictError from err.
func IsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
