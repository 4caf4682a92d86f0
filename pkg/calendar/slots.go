package calendar

import "time"

// SlotSearch bounds the free-slot probe: candidates start at desired+Offset
// and advance by Step for at most MaxAttempts tries.
type SlotSearch struct {
	Offset      time.Duration
	Step        time.Duration
	MaxAttempts int
}

func DefaultSlotSearch() SlotSearch {
	return SlotSearch{
		Offset:      30 * time.Minute,
		Step:        15 * time.Minute,
		MaxAttempts: 100,
	}
}

// find returns the first candidate start whose [start, start+minutes) range
// conflicts with none of events. The event with ID exclude is ignored.
func (s SlotSearch) find(events map[string]*entry, exclude string, desired time.Time, minutes int) (time.Time, bool) {
	if minutes <= 0 || s.Step <= 0 {
		return time.Time{}, false
	}
	length := time.Duration(minutes) * time.Minute
	candidate := desired.Add(s.Offset)
	for attempt := 0; attempt < s.MaxAttempts; attempt++ {
		if isFree(events, exclude, candidate, candidate.Add(length)) {
			return candidate, true
		}
		candidate = candidate.Add(s.Step)
	}
	return time.Time{}, false
}

func isFree(events map[string]*entry, exclude string, start, end time.Time) bool {
	for id, e := range events {
		if id == exclude {
			continue
		}
		if Overlaps(start, end, e.event.Start(), e.event.End()) {
			return false
		}
	}
	return true
}
