package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/planner/internal/config"
	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/klokku/planner/pkg/reminder"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration, the event store, router, reminders and
// server lifecycle.
type Application struct {
	cfg    config.Application
	deps   *Dependencies
	router *mux.Router
	srv    *http.Server
}

// NewApplication loads the configuration and constructs the full
// application, ready to Run().
func NewApplication() (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}
	return New(cfg, utils.SystemClock{})
}

func New(cfg config.Application, clock utils.Clock) (*Application, error) {
	deps, err := BuildDependencies(cfg, clock)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	// Middleware chain
	SetupMiddleware(r)

	// Routes
	RegisterRoutes(r, deps)

	srv := &http.Server{
		Handler:      WithCors(r, cfg.Cors),
		Addr:         cfg.Listen,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, deps: deps, router: r, srv: srv}, nil
}

// Handler exposes the fully wrapped HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.srv.Handler
}

func (a *Application) Dependencies() *Dependencies {
	return a.deps
}

// Run starts reminders and the HTTP server and blocks until ctx is done or
// the server fails. The server is then shut down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Reminder.Enabled {
		if err := a.deps.ReminderService.Start(ctx, notify); err != nil {
			return fmt.Errorf("failed to start reminders: %w", err)
		}
		defer a.deps.ReminderService.Stop()
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s (data file %s)", a.srv.Addr, a.deps.Repository.Path())
		serveErr <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

func notify(e calendar.Event) {
	log.WithFields(log.Fields{
		"event": e.ID(),
		"type":  e.Kind().String(),
	}).Info(reminder.Message(e))
}
