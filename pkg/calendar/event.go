package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tags what an event represents. It only changes how the event is
// labelled; storage and conflict rules are the same for every kind.
type Kind int

const (
	KindAppointment Kind = iota + 1
	KindDeadline
)

func (k Kind) String() string {
	switch k {
	case KindAppointment:
		return "Appointment"
	case KindDeadline:
		return "Deadline"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DetailLabel names the meaning of Event.Detail for this kind.
func (k Kind) DetailLabel() string {
	if k == KindDeadline {
		return "Course"
	}
	return "Location"
}

func (k Kind) valid() bool {
	return k == KindAppointment || k == KindDeadline
}

// ParseKind accepts "Appointment" and "Deadline" in any letter case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "appointment":
		return KindAppointment, nil
	case "deadline":
		return KindDeadline, nil
	default:
		return 0, fmt.Errorf("unknown event type %q", s)
	}
}

// EventParams carries the caller supplied values for NewEvent. An empty ID
// gets a freshly generated one and Start is cut to the whole minute.
type EventParams struct {
	ID              string
	Kind            Kind
	Title           string
	Description     string
	Start           time.Time
	DurationMinutes int
	Detail          string
}

// Event is a single scheduled item. Values are immutable once built; the
// store hands out copies only.
type Event struct {
	id              string
	kind            Kind
	title           string
	description     string
	start           time.Time
	durationMinutes int
	detail          string
}

func NewEvent(p EventParams) (Event, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	e := Event{
		id:              p.ID,
		kind:            p.Kind,
		title:           strings.TrimSpace(p.Title),
		description:     p.Description,
		start:           wholeMinute(p.Start),
		durationMinutes: p.DurationMinutes,
		detail:          p.Detail,
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// wholeMinute drops seconds and below. The data file stores minutes only.
func wholeMinute(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// Validate checks the construction rules again. The store calls it before
// every write because a zero Event can be declared without NewEvent.
func (e Event) Validate() error {
	switch {
	case e.id == "":
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	case !e.kind.valid():
		return &ValidationError{Field: "type", Reason: "must be Appointment or Deadline"}
	case e.title == "":
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	case e.start.IsZero():
		return &ValidationError{Field: "start", Reason: "is required"}
	case e.durationMinutes <= 0:
		return &ValidationError{Field: "duration", Reason: "must be a positive number of minutes"}
	}
	return nil
}

func (e Event) ID() string           { return e.id }
func (e Event) Kind() Kind           { return e.kind }
func (e Event) Title() string        { return e.title }
func (e Event) Description() string  { return e.description }
func (e Event) Start() time.Time     { return e.start }
func (e Event) DurationMinutes() int { return e.durationMinutes }
func (e Event) Detail() string       { return e.detail }

func (e Event) Duration() time.Duration {
	return time.Duration(e.durationMinutes) * time.Minute
}

// End is exclusive: the event occupies [Start, End).
func (e Event) End() time.Time {
	return e.start.Add(e.Duration())
}

// Location is the detail of an appointment.
func (e Event) Location() string {
	if e.kind != KindAppointment {
		return ""
	}
	return e.detail
}

// Course is the detail of a deadline.
func (e Event) Course() string {
	if e.kind != KindDeadline {
		return ""
	}
	return e.detail
}

// Rescheduled returns a copy with the same identity and new timing.
func (e Event) Rescheduled(start time.Time, durationMinutes int) (Event, error) {
	return NewEvent(EventParams{
		ID:              e.id,
		Kind:            e.kind,
		Title:           e.title,
		Description:     e.description,
		Start:           start,
		DurationMinutes: durationMinutes,
		Detail:          e.detail,
	})
}

func (e Event) Equal(o Event) bool {
	return e.id == o.id &&
		e.kind == o.kind &&
		e.title == o.title &&
		e.description == o.description &&
		e.start.Equal(o.start) &&
		e.durationMinutes == o.durationMinutes &&
		e.detail == o.detail
}

func (e Event) String() string {
	return fmt.Sprintf("'%s' (%s - %s)", e.title, e.start.Format("15:04"), e.End().Format("15:04"))
}
