package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klokku/planner/internal/event_bus"
	"github.com/klokku/planner/internal/utils"
	"github.com/klokku/planner/pkg/calendar"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var ErrAlreadyStarted = errors.New("reminder service already started")

// DueSource hands out the events whose reminder fires at now. Implementations
// mark what they return so repeated calls do not report the same start twice.
type DueSource interface {
	CollectDue(now time.Time, w calendar.ReminderWindow) []calendar.Event
}

// Callback receives one due event. It runs on the dispatcher goroutine, never
// while the store is locked.
type Callback func(calendar.Event)

type Config struct {
	Interval  time.Duration
	Window    calendar.ReminderWindow
	QueueSize int
}

func DefaultConfig() Config {
	return Config{
		Interval:  time.Minute,
		Window:    calendar.DefaultReminderWindow(),
		QueueSize: 64,
	}
}

type Service struct {
	source DueSource
	cfg    Config
	clock  utils.Clock
	bus    *event_bus.EventBus

	mu      sync.Mutex
	started bool
	stopped bool
	cron    *cron.Cron
	queue   chan calendar.Event
	done    chan struct{}
}

func NewService(source DueSource, cfg Config, clock utils.Clock) *Service {
	if cfg.Interval < time.Second {
		cfg.Interval = time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Service{
		source: source,
		cfg:    cfg,
		clock:  clock,
		done:   make(chan struct{}),
	}
}

// WithBus makes every fired reminder also publish a ReminderDue event.
func (s *Service) WithBus(bus *event_bus.EventBus) *Service {
	s.bus = bus
	return s
}

// Start schedules periodic ticks and delivers due events to callback until
// Stop is called or ctx is done. A service can be started once.
func (s *Service) Start(ctx context.Context, callback Callback) error {
	if callback == nil {
		return fmt.Errorf("failed to start reminder service: nil callback")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return ErrAlreadyStarted
	}
	s.started = true
	s.queue = make(chan calendar.Event, s.cfg.QueueSize)

	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(log.StandardLogger())),
		cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger())),
	))
	c.Schedule(cron.Every(s.cfg.Interval), cron.FuncJob(func() { s.Tick() }))
	s.cron = c

	go s.dispatch(callback, s.queue)
	c.Start()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	log.Infof("Reminder service started (every %s, %s before start)", s.cfg.Interval, s.cfg.Window.Lead)
	return nil
}

// Tick runs one reminder scan and returns the events that became due. Without
// a running dispatcher the events are only logged and published.
func (s *Service) Tick() []calendar.Event {
	now := s.clock.Now()
	due := s.source.CollectDue(now, s.cfg.Window)
	log.Debugf("Reminder tick at %s: %d due", now.Format(calendar.TimestampLayout), len(due))

	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()

	for _, e := range due {
		log.Debugf("Reminder due for event %s", e.ID())
		s.publish(e, now)
		if queue == nil {
			continue
		}
		select {
		case queue <- e:
		case <-s.done:
			return due
		}
	}
	return due
}

// Stop halts future ticks and callbacks. A tick already running finishes its
// scan but its remaining events are not delivered. Safe to call repeatedly.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.done)
	log.Info("Reminder service stopped")
}

func (s *Service) dispatch(callback Callback, queue <-chan calendar.Event) {
	for {
		select {
		case <-s.done:
			return
		case e := <-queue:
			deliver(callback, e)
		}
	}
}

func deliver(callback Callback, e calendar.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("reminder callback panicked for event %s: %v", e.ID(), r)
		}
	}()
	callback(e)
}

func (s *Service) publish(e calendar.Event, firedAt time.Time) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(event_bus.NewEvent(context.Background(), event_bus.ReminderDue, event_bus.ReminderFired{
		UID:       e.ID(),
		Kind:      e.Kind().String(),
		Title:     e.Title(),
		Detail:    e.Detail(),
		StartTime: e.Start(),
		FiredAt:   firedAt,
	}))
	if err != nil {
		log.Warnf("failed to publish reminder for %s: %v", e.ID(), err)
	}
}

// Message is the user facing reminder text.
func Message(e calendar.Event) string {
	return message(e.Title(), e.Start())
}

func message(title string, start time.Time) string {
	return fmt.Sprintf("Reminder: '%s' at %s", title, start.Format("15:04"))
}
