package app

import (
	"github.com/klokku/planner/internal/event_bus"
	"github.com/klokku/planner/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

// subscribeAuditLog writes one log line per committed calendar change.
func subscribeAuditLog(bus *event_bus.EventBus) {
	changed := func(e event_bus.EventT[event_bus.CalendarEventChanged]) error {
		log.WithFields(log.Fields{
			"event": e.Data.UID,
			"type":  e.Data.Kind,
			"start": e.Data.StartTime.Format(calendar.TimestampLayout),
			"end":   e.Data.EndTime.Format(calendar.TimestampLayout),
		}).Infof("Calendar %s: '%s'", e.Type, e.Data.Title)
		return nil
	}
	event_bus.SubscribeTyped(bus, event_bus.EventScheduled, changed)
	event_bus.SubscribeTyped(bus, event_bus.EventRescheduled, changed)
	event_bus.SubscribeTyped(bus, event_bus.EventCancelled, func(e event_bus.EventT[event_bus.CalendarEventCancelled]) error {
		if !e.Data.Existed {
			log.WithField("event", e.Data.UID).Debug("Calendar delete of unknown event")
			return nil
		}
		log.WithField("event", e.Data.UID).Infof("Calendar %s", e.Type)
		return nil
	})
}
