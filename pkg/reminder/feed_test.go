package reminder

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klokku/planner/internal/event_bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fired(title string, at time.Time) event_bus.ReminderFired {
	return event_bus.ReminderFired{
		UID:       title + "-id",
		Kind:      "Appointment",
		Title:     title,
		StartTime: at.Add(10 * time.Minute),
		FiredAt:   at,
	}
}

func TestFeed_KeepsNewestEntries(t *testing.T) {
	feed := NewFeed(2)
	feed.Record(fired("one", now))
	feed.Record(fired("two", now.Add(time.Minute)))
	feed.Record(fired("three", now.Add(2*time.Minute)))

	recent := feed.Recent(0)

	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Title)
	assert.Equal(t, "two", recent[1].Title)
	assert.Len(t, feed.Recent(1), 1)
}

func TestFeed_Unsubscribe(t *testing.T) {
	bus := event_bus.NewEventBus()
	feed := NewFeed(0)
	unsubscribe := feed.Subscribe(bus)

	require.NoError(t, bus.Publish(event_bus.NewEvent(t.Context(), event_bus.ReminderDue, fired("kept", now))))
	unsubscribe()
	require.NoError(t, bus.Publish(event_bus.NewEvent(t.Context(), event_bus.ReminderDue, fired("ignored", now))))

	recent := feed.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, "kept", recent[0].Title)
}

func TestGetReminders(t *testing.T) {
	feed := NewFeed(10)
	feed.Record(fired("Early", now))
	feed.Record(fired("Later", now.Add(time.Hour)))
	handler := NewHandler(feed)

	tests := []struct {
		name   string
		target string
		status int
		titles []string
	}{
		{"all", "/api/reminders", http.StatusOK, []string{"Later", "Early"}},
		{"limit", "/api/reminders?limit=1", http.StatusOK, []string{"Later"}},
		{"since", "/api/reminders?since=2024-03-04+08:30", http.StatusOK, []string{"Later"}},
		{"bad limit", "/api/reminders?limit=x", http.StatusBadRequest, nil},
		{"bad since", "/api/reminders?since=yesterday", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.GetReminders(w, httptest.NewRequest(http.MethodGet, tt.target, nil))

			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				return
			}
			var dtos []ReminderDTO
			require.NoError(t, json.NewDecoder(w.Body).Decode(&dtos))
			titles := make([]string, 0, len(dtos))
			for _, d := range dtos {
				titles = append(titles, d.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestGetReminders_Message(t *testing.T) {
	feed := NewFeed(10)
	feed.Record(fired("Standup", now))

	w := httptest.NewRecorder()
	NewHandler(feed).GetReminders(w, httptest.NewRequest(http.MethodGet, "/api/reminders", nil))

	var dtos []ReminderDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, "Reminder: 'Standup' at 08:10", dtos[0].Message)
	assert.Equal(t, "2024-03-04 08:00", dtos[0].FiredAt)
}
