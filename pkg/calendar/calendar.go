package calendar

import "time"

// Calendar is the store surface consumed by presentation layers.
type Calendar interface {
	Add(event Event) error
	Update(event Event) error
	Delete(id string)
	Get(id string) (Event, bool)
	All() []Event
	EventsInRange(start, end time.Time) []Event
	EventsForDay(date time.Time) []Event
	EventsForWeek(weekStart time.Time) []Event
	EventsForMonth(month time.Time) []Event
	SuggestFreeSlot(desired time.Time, durationMinutes int) (time.Time, bool)
}

var _ Calendar = (*Store)(nil)
