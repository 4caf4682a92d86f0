package calendar

import "time"

const defaultNotifiedCapacity = 1024

// ReminderWindow selects events whose start is in [now+Lead, now+Lead+Span).
// Markers for events that started more than Retain ago are forgotten.
type ReminderWindow struct {
	Lead   time.Duration
	Span   time.Duration
	Retain time.Duration
}

func DefaultReminderWindow() ReminderWindow {
	return ReminderWindow{
		Lead:   10 * time.Minute,
		Span:   time.Minute,
		Retain: time.Hour,
	}
}

func (w ReminderWindow) contains(now, start time.Time) bool {
	until := start.Sub(now)
	return until >= w.Lead && until < w.Lead+w.Span
}

// notifiedCache remembers, per event id, the start time a reminder already
// fired for. It is bounded both by capacity and by expiry; callers hold the
// store lock.
type notifiedCache struct {
	capacity int
	fired    map[string]time.Time
}

func newNotifiedCache(capacity int) *notifiedCache {
	if capacity <= 0 {
		capacity = defaultNotifiedCapacity
	}
	return &notifiedCache{
		capacity: capacity,
		fired:    make(map[string]time.Time),
	}
}

func (c *notifiedCache) has(id string, start time.Time) bool {
	firedFor, ok := c.fired[id]
	return ok && firedFor.Equal(start)
}

func (c *notifiedCache) mark(id string, start time.Time) {
	if _, ok := c.fired[id]; !ok && len(c.fired) >= c.capacity {
		c.evictOldest()
	}
	c.fired[id] = start
}

func (c *notifiedCache) forget(id string) {
	delete(c.fired, id)
}

// expire drops markers for starts before cutoff.
func (c *notifiedCache) expire(cutoff time.Time) int {
	removed := 0
	for id, start := range c.fired {
		if start.Before(cutoff) {
			delete(c.fired, id)
			removed++
		}
	}
	return removed
}

func (c *notifiedCache) evictOldest() {
	var (
		oldestID    string
		oldestStart time.Time
		found       bool
	)
	for id, start := range c.fired {
		if !found || start.Before(oldestStart) {
			oldestID, oldestStart, found = id, start, true
		}
	}
	if found {
		delete(c.fired, oldestID)
	}
}

func (c *notifiedCache) len() int {
	return len(c.fired)
}
