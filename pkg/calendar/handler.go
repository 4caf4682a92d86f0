package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/planner/internal/rest"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes caps create and update request bodies.
const maxBodyBytes = 1 << 20

type Handler struct {
	calendar Calendar
}

type EventDTO struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Start           string `json:"start"`
	End             string `json:"end,omitempty"`
	DurationMinutes int    `json:"durationMinutes"`
	Detail          string `json:"detail"`
	DetailLabel     string `json:"detailLabel,omitempty"`
}

type ConflictResponse struct {
	Error         string     `json:"error"`
	Conflicts     []EventDTO `json:"conflicts"`
	SuggestedSlot string     `json:"suggestedSlot,omitempty"`
}

type SlotResponse struct {
	Found bool   `json:"found"`
	Start string `json:"start,omitempty"`
}

func NewHandler(c Calendar) *Handler {
	return &Handler{c}
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	fromString := r.URL.Query().Get("from")
	toString := r.URL.Query().Get("to")
	if fromString == "" && toString == "" {
		writeEvents(w, h.calendar.All())
		return
	}

	from, err := rest.ParseTime(fromString)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be 'yyyy-MM-dd HH:mm' or RFC3339")
		return
	}
	to, err := rest.ParseTime(toString)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be 'yyyy-MM-dd HH:mm' or RFC3339")
		return
	}
	if !from.Before(to) {
		rest.WriteError(w, http.StatusBadRequest, "Invalid range", "'from' must be before 'to'")
		return
	}
	writeEvents(w, h.calendar.EventsInRange(from, to))
}

func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), time.Local)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date format", "'date' must be in yyyy-MM-dd format")
		return
	}
	writeEvents(w, h.calendar.EventsForDay(date))
}

func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	start, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("start"), time.Local)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid start format", "'start' must be in yyyy-MM-dd format")
		return
	}
	writeEvents(w, h.calendar.EventsForWeek(start))
}

func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	month, err := time.ParseInLocation("2006-01", r.URL.Query().Get("month"), time.Local)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid month format", "'month' must be in yyyy-MM format")
		return
	}
	writeEvents(w, h.calendar.EventsForMonth(month))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["eventId"]
	e, ok := h.calendar.Get(id)
	if !ok {
		rest.WriteError(w, http.StatusNotFound, "Event not found", id)
		return
	}
	rest.WriteJSON(w, http.StatusOK, EventToDTO(e))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	dto.ID = ""

	event, err := DTOToEvent(dto)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if err := h.calendar.Add(event); err != nil {
		writeMutationError(w, err)
		return
	}
	log.Debugf("Created event %s", event.ID())
	rest.WriteJSON(w, http.StatusCreated, EventToDTO(event))
}

// UpdateEvent replaces the event with the body. A body carrying only start
// and/or durationMinutes moves the stored event and keeps everything else.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	dto.ID = mux.Vars(r)["eventId"]

	var (
		event Event
		err   error
	)
	if timingOnly(dto) {
		stored, ok := h.calendar.Get(dto.ID)
		if !ok {
			rest.WriteError(w, http.StatusNotFound, "Event not found", dto.ID)
			return
		}
		event, err = reschedule(stored, dto)
	} else {
		event, err = DTOToEvent(dto)
	}
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if err := h.calendar.Update(event); err != nil {
		writeMutationError(w, err)
		return
	}
	log.Debugf("Updated event %s", event.ID())
	rest.WriteJSON(w, http.StatusOK, EventToDTO(event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	h.calendar.Delete(mux.Vars(r)["eventId"])
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SuggestSlot(w http.ResponseWriter, r *http.Request) {
	start, err := rest.ParseTime(r.URL.Query().Get("start"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid start format", "'start' must be 'yyyy-MM-dd HH:mm' or RFC3339")
		return
	}
	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil || duration <= 0 {
		rest.WriteError(w, http.StatusBadRequest, "Invalid duration", "'duration' must be a positive number of minutes")
		return
	}
	slot, ok := h.calendar.SuggestFreeSlot(start, duration)
	resp := SlotResponse{Found: ok}
	if ok {
		resp.Start = slot.Format(TimestampLayout)
	}
	rest.WriteJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dto *EventDTO) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rest.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
			return false
		}
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return false
	}
	return true
}

func timingOnly(dto EventDTO) bool {
	return dto.Type == "" && dto.Title == "" && dto.Description == "" && dto.Detail == "" &&
		(dto.Start != "" || dto.DurationMinutes != 0)
}

func reschedule(stored Event, dto EventDTO) (Event, error) {
	start := stored.Start()
	if dto.Start != "" {
		t, err := rest.ParseTime(dto.Start)
		if err != nil {
			return Event{}, &ValidationError{Field: "start", Reason: "must be 'yyyy-MM-dd HH:mm' or RFC3339"}
		}
		start = t
	}
	duration := stored.DurationMinutes()
	if dto.DurationMinutes != 0 {
		duration = dto.DurationMinutes
	}
	return stored.Rescheduled(start, duration)
}

func writeEvents(w http.ResponseWriter, events []Event) {
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, EventToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func writeMutationError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event", validation.Error())
		return
	}
	if conflict, ok := IsConflict(err); ok {
		WriteConflict(w, conflict)
		return
	}
	if errors.Is(err, ErrDuplicateID) {
		rest.WriteError(w, http.StatusConflict, "Duplicate event", err.Error())
		return
	}
	log.Errorf("failed to store event: %v", err)
	rest.WriteError(w, http.StatusInternalServerError, "Failed to store event", err.Error())
}

// WriteConflict renders a *ConflictError as a 409 response.
func WriteConflict(w http.ResponseWriter, conflict *ConflictError) {
	resp := ConflictResponse{
		Error:     conflict.Error(),
		Conflicts: make([]EventDTO, 0, len(conflict.Conflicting)),
	}
	for _, c := range conflict.Conflicting {
		resp.Conflicts = append(resp.Conflicts, EventToDTO(c))
	}
	if conflict.HasSuggestion {
		resp.SuggestedSlot = conflict.Suggested.Format(TimestampLayout)
	}
	rest.WriteJSON(w, http.StatusConflict, resp)
}

func EventToDTO(e Event) EventDTO {
	return EventDTO{
		ID:              e.ID(),
		Type:            e.Kind().String(),
		Title:           e.Title(),
		Description:     e.Description(),
		Start:           e.Start().Format(TimestampLayout),
		End:             e.End().Format(TimestampLayout),
		DurationMinutes: e.DurationMinutes(),
		Detail:          e.Detail(),
		DetailLabel:     e.Kind().DetailLabel(),
	}
}

func DTOToEvent(dto EventDTO) (Event, error) {
	kind := KindAppointment
	if dto.Type != "" {
		k, err := ParseKind(dto.Type)
		if err != nil {
			return Event{}, &ValidationError{Field: "type", Reason: err.Error()}
		}
		kind = k
	}
	var start time.Time
	if dto.Start != "" {
		t, err := rest.ParseTime(dto.Start)
		if err != nil {
			return Event{}, &ValidationError{Field: "start", Reason: "must be 'yyyy-MM-dd HH:mm' or RFC3339"}
		}
		start = t
	}
	return NewEvent(EventParams{
		ID:              dto.ID,
		Kind:            kind,
		Title:           dto.Title,
		Description:     dto.Description,
		Start:           start,
		DurationMinutes: dto.DurationMinutes,
		Detail:          dto.Detail,
	})
}
