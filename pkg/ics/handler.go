package ics

import (
	"errors"
	"net/http"

	"github.com/klokku/planner/internal/rest"
	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

const maxImportBytes = 5 << 20

type Handler struct {
	calendar calendar.Calendar
	clock    utils.Clock
}

type ImportConflict struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Error         string              `json:"error"`
	Conflicts     []calendar.EventDTO `json:"conflicts,omitempty"`
	SuggestedSlot string              `json:"suggestedSlot,omitempty"`
}

type ImportReport struct {
	Added    []string         `json:"added"`
	Rejected []ImportConflict `json:"rejected"`
	Invalid  []string         `json:"invalid"`
}

func NewHandler(c calendar.Calendar, clock utils.Clock) *Handler {
	return &Handler{c, clock}
}

func (h *Handler) ExportEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="planner.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(Export(h.calendar.All(), h.clock.Now()))); err != nil {
		log.Errorf("failed to write calendar export: %v", err)
	}
}

// ImportEvents adds every event of the uploaded calendar through the normal
// conflict checks. Rejected and unreadable events are listed in the report.
func (h *Handler) ImportEvents(w http.ResponseWriter, r *http.Request) {
	events, invalid, err := Import(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid calendar file", err.Error())
		return
	}

	report := ImportReport{
		Added:    []string{},
		Rejected: []ImportConflict{},
		Invalid:  make([]string, 0, len(invalid)),
	}
	for _, e := range invalid {
		report.Invalid = append(report.Invalid, e.Error())
	}
	for _, e := range events {
		err := h.calendar.Add(e)
		if err == nil {
			report.Added = append(report.Added, e.ID())
			continue
		}
		rejected := ImportConflict{ID: e.ID(), Title: e.Title(), Error: err.Error()}
		if conflict, ok := calendar.IsConflict(err); ok {
			for _, c := range conflict.Conflicting {
				rejected.Conflicts = append(rejected.Conflicts, calendar.EventToDTO(c))
			}
			if conflict.HasSuggestion {
				rejected.SuggestedSlot = conflict.Suggested.Format(calendar.TimestampLayout)
			}
		} else if !errors.Is(err, calendar.ErrDuplicateID) {
			log.Warnf("failed to import event %s: %v", e.ID(), err)
		}
		report.Rejected = append(report.Rejected, rejected)
	}

	log.Infof("Imported %d events (%d rejected, %d invalid)", len(report.Added), len(report.Rejected), len(report.Invalid))
	rest.WriteJSON(w, http.StatusOK, report)
}
