package persistence

import "time"

// Event represents a calendar event document stored in persistence.
//
// StartDate/EndDate/StartTime/EndTime hold the raw user input; Start and
// End are the canonical instants recomputed before every save. Calendar
// dates are fixed-width YYYY-MM-DD strings so lexicographic comparison
// matches chronological order.
type Event struct {
	ID             string
	Slug           string
	Title          string
	Description    *string
	StartDate      string
	EndDate        string
	StartTime      string
	EndTime        string
	AllDay         bool
	DateType       string
	RepeatInterval string
	RepeatCount    int
	Start          time.Time
	End            time.Time
	GroupID        *string
	HasClones      bool
	IsClone        bool
	Published      bool
	PublishedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DateField names a string-typed calendar date column of the event record.
type DateField string

const (
	// FieldStartDate is the raw start date column.
	FieldStartDate DateField = "startDate"
	// FieldEndDate is the derived end date column.
	FieldEndDate DateField = "endDate"
)

// DateOp enumerates the comparisons supported on calendar date fields.
type DateOp string

const (
	// DateAtLeast matches records whose field compares >= the value.
	DateAtLeast DateOp = ">="
	// DateAtMost matches records whose field compares <= the value.
	DateAtMost DateOp = "<="
	// DateContains matches records whose field contains the value as a
	// substring.
	DateContains DateOp = "contains"
)

// DateCondition is one field comparison contributed by a query filter.
type DateCondition struct {
	Field DateField
	Op    DateOp
	Value string
}

// EventFilter narrows event queries. All populated members are combined as
// a conjunction. Instant comparisons never match records whose canonical
// instants are invalid.
type EventFilter struct {
	// Dates holds lexicographic and substring conditions on the
	// startDate/endDate columns.
	Dates []DateCondition
	// EndsAfter matches events whose end instant is strictly after the
	// given instant.
	EndsAfter *time.Time
	// EndsAtOrBefore matches events whose end instant is at or before the
	// given instant.
	EndsAtOrBefore *time.Time
	// GroupID matches the recurrence group shared by a parent and its
	// children.
	GroupID string
	// Slug matches the exact slug.
	Slug string
	// Published, when set, matches only (un)published events.
	Published *bool
	// IsClone, when set, matches only generated children (or only
	// non-children).
	IsClone *bool
}
