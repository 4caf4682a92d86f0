package event_bus

import "time"

const (
	EventScheduled   EventType = "calendar.event.scheduled"
	EventRescheduled EventType = "calendar.event.rescheduled"
	EventCancelled   EventType = "calendar.event.cancelled"
	ReminderDue      EventType = "reminder.due"
)

// CalendarEventChanged is the payload of EventScheduled and EventRescheduled.
type CalendarEventChanged struct {
	UID       string
	Kind      string
	Title     string
	StartTime time.Time
	EndTime   time.Time
}

// CalendarEventCancelled is the payload of EventCancelled. Existed is false
// when the delete targeted an unknown id.
type CalendarEventCancelled struct {
	UID     string
	Existed bool
}

// ReminderFired is the payload of ReminderDue.
type ReminderFired struct {
	UID       string
	Kind      string
	Title     string
	Detail    string
	StartTime time.Time
	FiredAt   time.Time
}
