package reminder

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/klokku/planner/internal/event_bus"
	"github.com/klokku/planner/internal/rest"
	"github.com/klokku/planner/pkg/calendar"
)

const defaultFeedSize = 50

// Feed keeps the most recent fired reminders for clients that poll instead
// of receiving callbacks.
type Feed struct {
	mu      sync.Mutex
	size    int
	entries []event_bus.ReminderFired
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = defaultFeedSize
	}
	return &Feed{size: size}
}

// Subscribe records every ReminderDue event published on bus.
func (f *Feed) Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped(bus, event_bus.ReminderDue, func(e event_bus.EventT[event_bus.ReminderFired]) error {
		f.Record(e.Data)
		return nil
	})
}

func (f *Feed) Record(r event_bus.ReminderFired) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, r)
	if len(f.entries) > f.size {
		f.entries = append(f.entries[:0], f.entries[len(f.entries)-f.size:]...)
	}
}

// Recent returns up to limit reminders, newest first. A non-positive limit
// returns everything kept.
func (f *Feed) Recent(limit int) []event_bus.ReminderFired {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]event_bus.ReminderFired, 0, limit)
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out
}

type ReminderDTO struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Detail  string `json:"detail,omitempty"`
	Start   string `json:"start"`
	FiredAt string `json:"firedAt"`
	Message string `json:"message"`
}

type Handler struct {
	feed *Feed
}

func NewHandler(feed *Feed) *Handler {
	return &Handler{feed}
}

// GetReminders lists recently fired reminders; ?since= drops older ones.
func (h *Handler) GetReminders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			rest.WriteError(w, http.StatusBadRequest, "Invalid limit", "'limit' must be a non-negative number")
			return
		}
		limit = n
	}
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := rest.ParseTime(s)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid since format", "'since' must be 'yyyy-MM-dd HH:mm' or RFC3339")
			return
		}
		since = t
	}

	recent := h.feed.Recent(limit)
	dtos := make([]ReminderDTO, 0, len(recent))
	for _, fired := range recent {
		if fired.FiredAt.Before(since) {
			continue
		}
		dtos = append(dtos, ReminderDTO{
			ID:      fired.UID,
			Type:    fired.Kind,
			Title:   fired.Title,
			Detail:  fired.Detail,
			Start:   fired.StartTime.Format(calendar.TimestampLayout),
			FiredAt: fired.FiredAt.Format(calendar.TimestampLayout),
			Message: message(fired.Title, fired.StartTime),
		})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}
