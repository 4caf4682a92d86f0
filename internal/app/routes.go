package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klokku/planner/internal/rest"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		rest.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "events": deps.Store.Len()})
	}).Methods("GET")

	// Calendar views
	r.HandleFunc("/api/events/day", deps.CalendarHandler.GetDay).Methods("GET")
	r.HandleFunc("/api/events/week", deps.CalendarHandler.GetWeek).Methods("GET")
	r.HandleFunc("/api/events/month", deps.CalendarHandler.GetMonth).Methods("GET")

	// iCalendar
	r.HandleFunc("/api/events.ics", deps.IcsHandler.ExportEvents).Methods("GET")
	r.HandleFunc("/api/events/import", deps.IcsHandler.ImportEvents).Methods("POST")

	// Events
	r.HandleFunc("/api/events", deps.CalendarHandler.GetEvents).Methods("GET")
	r.HandleFunc("/api/events", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/events/{eventId}", deps.CalendarHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/events/{eventId}", deps.CalendarHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/events/{eventId}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")

	// Free slots
	r.HandleFunc("/api/slots", deps.CalendarHandler.SuggestSlot).Methods("GET")

	// Reminders
	r.HandleFunc("/api/reminders", deps.ReminderHandler.GetReminders).Methods("GET")
}
