// Package ics renders event listings as an iCalendar feed.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/event-calendar/internal/application"
)

// Feed renders events into a VCALENDAR document. Events whose canonical
// instants failed to normalize are skipped; the feed never emits a zero
// timestamp.
func Feed(name string, events []application.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//event-calendar//feed//EN")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, event := range events {
		if event.Start.IsZero() || event.End.IsZero() {
			continue
		}

		entry := cal.AddEvent(event.ID)
		entry.SetDtStampTime(now.UTC())
		entry.SetSummary(event.Title)
		if event.Description != "" {
			entry.SetDescription(event.Description)
		}

		if event.AllDay {
			entry.SetAllDayStartAt(event.Start)
			// DTEND is exclusive for all day events.
			entry.SetAllDayEndAt(dateOnly(event.End).AddDate(0, 0, 1))
		} else {
			entry.SetStartAt(event.Start)
			entry.SetEndAt(event.End)
		}

		if event.GroupID != "" {
			entry.SetProperty(ical.ComponentProperty("X-EVENT-GROUP"), event.GroupID)
		}
		if event.IsClone {
			entry.SetProperty(ical.ComponentProperty("X-EVENT-CLONE"), "TRUE")
		}
	}

	return cal.Serialize()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
