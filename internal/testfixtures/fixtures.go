package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/event-calendar/internal/application"
	"github.com/example/event-calendar/internal/persistence"
)

var eventCounter uint64

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// EventFixture is a deterministic event record that can be materialised for
// application or persistence tests.
type EventFixture struct {
	ID          string
	Slug        string
	Title       string
	Description string
	StartDate   string
	EndDate     string
	StartTime   string
	EndTime     string
	AllDay      bool
	DateType    string
	GroupID     string
	IsClone     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventOption configures a generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic single-day event with optional
// overrides. Each call yields a fresh id, slug and start date.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%03d", idx),
		Slug:      fmt.Sprintf("event-%03d", idx),
		Title:     fmt.Sprintf("Event %03d", idx),
		StartDate: created.Format("2006-01-02"),
		EndDate:   created.Format("2006-01-02"),
		StartTime: "09:00:00",
		EndTime:   "10:00:00",
		DateType:  "single",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithStartDate overrides the fixture's calendar dates.
func WithStartDate(date string) EventOption {
	return func(f *EventFixture) {
		f.StartDate = date
		f.EndDate = date
	}
}

// WithAllDay marks the fixture as an all day event.
func WithAllDay() EventOption {
	return func(f *EventFixture) {
		f.AllDay = true
		f.StartTime = ""
		f.EndTime = ""
	}
}

// ApplicationEvent converts the fixture to an application model.
func (f EventFixture) ApplicationEvent() application.Event {
	return application.Event{
		ID:          f.ID,
		Slug:        f.Slug,
		Title:       f.Title,
		Description: f.Description,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		AllDay:      f.AllDay,
		DateType:    application.DateType(f.DateType),
		GroupID:     f.GroupID,
		IsClone:     f.IsClone,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// PersistenceEvent converts the fixture to a persistence model.
func (f EventFixture) PersistenceEvent() persistence.Event {
	var description *string
	if f.Description != "" {
		d := f.Description
		description = &d
	}
	var groupID *string
	if f.GroupID != "" {
		g := f.GroupID
		groupID = &g
	}
	return persistence.Event{
		ID:          f.ID,
		Slug:        f.Slug,
		Title:       f.Title,
		Description: description,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		AllDay:      f.AllDay,
		DateType:    f.DateType,
		GroupID:     groupID,
		IsClone:     f.IsClone,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
