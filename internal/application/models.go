package application

import "time"

// DateType enumerates how an event's calendar span was entered.
type DateType string

const (
	// DateTypeSingle is an event confined to its start date.
	DateTypeSingle DateType = "single"
	// DateTypeConsecutive is an event spanning an explicit end date.
	DateTypeConsecutive DateType = "consecutive"
	// DateTypeRepeat is an event that materializes child instances at a
	// fixed cadence.
	DateTypeRepeat DateType = "repeat"
)

// RepeatInterval enumerates the supported recurrence cadences.
type RepeatInterval string

const (
	// RepeatWeeks repeats every week.
	RepeatWeeks RepeatInterval = "weeks"
	// RepeatMonths repeats every month.
	RepeatMonths RepeatInterval = "months"
)

// LifecycleMode identifies which side of the host's draft/published
// duality an insert addresses. Recurrence expansion runs only on the live
// pass so draft replication never duplicates children.
type LifecycleMode string

const (
	// ModeDraft is the editing pass; no children are materialized.
	ModeDraft LifecycleMode = "draft"
	// ModeLive is the published pass; first insertion expands recurrence.
	ModeLive LifecycleMode = "live"
)

// EventInput captures caller provided event fields.
type EventInput struct {
	Title          string
	Slug           string
	Description    string
	StartDate      string
	EndDate        string
	StartTime      string
	EndTime        string
	AllDay         bool
	DateType       DateType
	RepeatInterval RepeatInterval
	RepeatCount    int
}

// Event represents a persisted calendar event.
//
// Start and End are canonical, always recomputed before persistence and
// never hand-edited. GroupID ties a repeating parent to its generated
// children; IsClone marks a child; HasClones marks a parent.
type Event struct {
	ID             string
	Slug           string
	Title          string
	Description    string
	StartDate      string
	EndDate        string
	StartTime      string
	EndTime        string
	AllDay         bool
	DateType       DateType
	RepeatInterval RepeatInterval
	RepeatCount    int
	Start          time.Time
	End            time.Time
	GroupID        string
	HasClones      bool
	IsClone        bool
	Published      bool
	PublishedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InsertEventParams wraps the data required to insert an event.
type InsertEventParams struct {
	Input EventInput
	// Mode is the lifecycle pass the host is performing.
	Mode LifecycleMode
	// FirstInsertion marks the record's first persisted insertion, the
	// only point at which a recurrence group is assigned and children are
	// materialized.
	FirstInsertion bool
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	EventID string
	Input   EventInput
}
