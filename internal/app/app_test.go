package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klokku/planner/internal/config"
	"github.com/klokku/planner/internal/test_utils"
	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T) (*Application, config.Application, *utils.MockClock) {
	cfg := config.Defaults()
	cfg.Listen = "127.0.0.1:0"
	cfg.DataFile = test_utils.NewDataFile(t, "")
	clock := &utils.MockClock{FixedNow: test_utils.Date(2024, time.June, 3, 8, 0)}
	application, err := New(cfg, clock)
	require.NoError(t, err)
	return application, cfg, clock
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes_EventLifecycle(t *testing.T) {
	application, cfg, _ := setupApp(t)
	h := application.Handler()

	w := do(t, h, http.MethodPost, "/api/events", `{"type":"Appointment","title":"Dentist","start":"2024-06-03 09:00","durationMinutes":30,"detail":"Main St"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created calendar.EventDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	w = do(t, h, http.MethodPost, "/api/events", `{"title":"Overlap","start":"2024-06-03 09:10","durationMinutes":30}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodGet, "/api/events/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/events/day?date=2024-06-03", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dentist")

	w = do(t, h, http.MethodGet, "/api/events/day", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/slots?start=2024-06-03+09:00&duration=30", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2024-06-03 09:30")

	w = do(t, h, http.MethodGet, "/api/events.ics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SUMMARY:Dentist")

	content, err := os.ReadFile(cfg.DataFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), created.ID+";Appointment;Dentist;;2024-06-03 09:00;30;Main St")

	w = do(t, h, http.MethodDelete, "/api/events/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/api/events/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_Health(t *testing.T) {
	application, _, _ := setupApp(t)

	w := do(t, application.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","events":0}`, w.Body.String())
}

func TestCors(t *testing.T) {
	application, _, _ := setupApp(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	application.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestReminderFeedIsWired(t *testing.T) {
	application, _, clock := setupApp(t)
	deps := application.Dependencies()
	e, err := calendar.NewEvent(calendar.EventParams{
		Kind:            calendar.KindDeadline,
		Title:           "Essay",
		Start:           clock.Now().Add(10 * time.Minute),
		DurationMinutes: 5,
		Detail:          "History",
	})
	require.NoError(t, err)
	require.NoError(t, deps.Store.Add(e))

	deps.ReminderService.Tick()

	w := do(t, application.Handler(), http.MethodGet, "/api/reminders", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Reminder: 'Essay' at 08:10")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	application, _, _ := setupApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- application.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNew_RejectsUnreadableDataFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataFile = t.TempDir()

	_, err := New(cfg, utils.SystemClock{})

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to open event store"))
}
