package app

import (
	"fmt"

	"github.com/klokku/planner/internal/config"
	"github.com/klokku/planner/internal/event_bus"
	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/klokku/planner/pkg/ics"
	"github.com/klokku/planner/pkg/reminder"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock utils.Clock
	Bus   *event_bus.EventBus

	Repository      *calendar.FileRepository
	Store           *calendar.Store
	CalendarHandler *calendar.Handler

	ReminderService *reminder.Service
	ReminderFeed    *reminder.Feed
	ReminderHandler *reminder.Handler

	IcsHandler *ics.Handler
}

// BuildDependencies opens the data file and wires all services and handlers.
func BuildDependencies(cfg config.Application, clock utils.Clock) (*Dependencies, error) {
	deps := &Dependencies{Clock: clock}

	deps.Bus = event_bus.NewEventBus()
	subscribeAuditLog(deps.Bus)

	deps.Repository = calendar.NewFileRepository(cfg.DataFile)
	store, err := calendar.NewStore(deps.Repository,
		calendar.WithBus(deps.Bus),
		calendar.WithSlotSearch(calendar.SlotSearch{
			Offset:      cfg.Slots.Offset(),
			Step:        cfg.Slots.Step(),
			MaxAttempts: cfg.Slots.MaxAttempts,
		}),
		calendar.WithReminderCapacity(cfg.Reminder.Capacity),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}
	deps.Store = store
	deps.CalendarHandler = calendar.NewHandler(deps.Store)

	deps.ReminderFeed = reminder.NewFeed(cfg.Reminder.FeedSize)
	deps.ReminderFeed.Subscribe(deps.Bus)
	deps.ReminderHandler = reminder.NewHandler(deps.ReminderFeed)
	deps.ReminderService = reminder.NewService(deps.Store, reminder.Config{
		Interval: cfg.Reminder.Interval(),
		Window: calendar.ReminderWindow{
			Lead:   cfg.Reminder.Lead(),
			Span:   cfg.Reminder.Window(),
			Retain: cfg.Reminder.Retention(),
		},
	}, deps.Clock).WithBus(deps.Bus)

	deps.IcsHandler = ics.NewHandler(deps.Store, deps.Clock)

	return deps, nil
}
