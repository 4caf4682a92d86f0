package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/klokku/planner/pkg/calendar"
)

const (
	productID        = "-//planner//calendar export//EN"
	propertyDuration = ical.ComponentProperty("DURATION")
)

// Export renders events as one VCALENDAR with a VEVENT per event. The kind
// travels in CATEGORIES and the detail in LOCATION for appointments.
func Export(events []calendar.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		ve := cal.AddEvent(e.ID())
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Title())
		if e.Description() != "" {
			ve.SetDescription(e.Description())
		}
		ve.SetStartAt(e.Start())
		ve.SetEndAt(e.End())
		ve.SetProperty(ical.ComponentPropertyCategories, e.Kind().String())
		if loc := e.Location(); loc != "" {
			ve.SetLocation(loc)
		}
		if course := e.Course(); course != "" {
			ve.SetProperty(ical.ComponentProperty("X-PLANNER-COURSE"), course)
		}
	}
	return cal.Serialize()
}

// Import parses every VEVENT of r. Events that cannot be turned into a valid
// calendar.Event are reported in the error slice and skipped; the returned
// error is only set when the calendar itself cannot be read.
func Import(r io.Reader) ([]calendar.Event, []error, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	var (
		events []calendar.Event
		errs   []error
	)
	for i, ve := range cal.Events() {
		e, err := toEvent(ve)
		if err != nil {
			errs = append(errs, fmt.Errorf("vevent %d: %w", i+1, err))
			continue
		}
		events = append(events, e)
	}
	return events, errs, nil
}

func toEvent(ve *ical.VEvent) (calendar.Event, error) {
	uid := propertyValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return calendar.Event{}, errors.New("missing UID")
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return calendar.Event{}, fmt.Errorf("invalid DTSTART: %w", err)
	}
	span, err := eventSpan(ve, start)
	if err != nil {
		return calendar.Event{}, err
	}
	if span%time.Minute != 0 {
		return calendar.Event{}, fmt.Errorf("duration %s is not a whole number of minutes", span)
	}
	minutes := int(span / time.Minute)

	kind := calendar.KindAppointment
	if categories := propertyValue(ve, ical.ComponentPropertyCategories); categories != "" {
		for _, c := range strings.Split(categories, ",") {
			if k, err := calendar.ParseKind(c); err == nil {
				kind = k
				break
			}
		}
	}

	detail := propertyValue(ve, ical.ComponentPropertyLocation)
	if kind == calendar.KindDeadline {
		detail = propertyValue(ve, ical.ComponentProperty("X-PLANNER-COURSE"))
	}

	return calendar.NewEvent(calendar.EventParams{
		ID:              uid,
		Kind:            kind,
		Title:           propertyValue(ve, ical.ComponentPropertySummary),
		Description:     propertyValue(ve, ical.ComponentPropertyDescription),
		Start:           start.In(time.Local),
		DurationMinutes: minutes,
		Detail:          detail,
	})
}

// eventSpan reads DTEND, falling back to DURATION when DTEND is absent.
func eventSpan(ve *ical.VEvent, start time.Time) (time.Duration, error) {
	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		end, err := ve.GetEndAt()
		if err != nil {
			return 0, fmt.Errorf("invalid DTEND: %w", err)
		}
		return end.Sub(start), nil
	}
	value := propertyValue(ve, propertyDuration)
	if value == "" {
		return 0, errors.New("missing DTEND and DURATION")
	}
	span, err := parseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid DURATION: %w", err)
	}
	return span, nil
}

// parseDuration reads an iCalendar dur-value such as P1DT2H30M or PT45M.
// Negative durations are rejected.
func parseDuration(value string) (time.Duration, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(value)), "+")
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, fmt.Errorf("malformed duration %q", value)
	}

	units := map[byte]time.Duration{'W': 7 * 24 * time.Hour, 'D': 24 * time.Hour}
	timeUnits := map[byte]time.Duration{'H': time.Hour, 'M': time.Minute, 'S': time.Second}
	var (
		total  time.Duration
		number int
		digits int
	)
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			number = number*10 + int(c-'0')
			digits++
		case c == 'T' && digits == 0:
			units = timeUnits
		default:
			unit, ok := units[c]
			if !ok || digits == 0 {
				return 0, fmt.Errorf("malformed duration %q", value)
			}
			total += time.Duration(number) * unit
			number, digits = 0, 0
		}
	}
	if digits != 0 {
		return 0, fmt.Errorf("malformed duration %q", value)
	}
	return total, nil
}

func propertyValue(ve *ical.VEvent, property ical.ComponentProperty) string {
	if p := ve.GetProperty(property); p != nil {
		return p.Value
	}
	return ""
}
