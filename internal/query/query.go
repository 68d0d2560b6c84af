// Package query implements the composable temporal filters applied to an
// event listing: upcoming/past, year, month, day, start, end and date.
// Each filter is inactive until set, launders its own input, and
// contributes its constraint when the query is finalized.
package query

import (
	"context"
	"sort"
	"time"

	"github.com/example/event-calendar/internal/launder"
	"github.com/example/event-calendar/internal/persistence"
)

const (
	yearWidth  = 4
	monthWidth = 7
	dayWidth   = 10
)

// DistinctFinder enumerates the distinct raw values of a calendar date
// field, used when building filter choices.
type DistinctFinder interface {
	DistinctValues(ctx context.Context, field persistence.DateField, filter persistence.EventFilter) ([]string, error)
}

// Query accumulates temporal filter state for one search request. The zero
// value is unusable; construct with New so the current time is an injected
// capability rather than a hidden global.
type Query struct {
	now func() time.Time

	upcoming *bool
	year     string
	month    string
	day      string
	start    string
	end      string
}

// New returns a query with every filter inactive.
func New(now func() time.Time) *Query {
	if now == nil {
		now = time.Now
	}
	return &Query{now: now}
}

// Clone returns an independent copy of the query state.
func (q *Query) Clone() *Query {
	clone := *q
	if q.upcoming != nil {
		v := *q.upcoming
		clone.upcoming = &v
	}
	return &clone
}

// SetUpcoming activates the upcoming/past split: true keeps events ending
// after now, false keeps events already over. Unrecognizable input
// launders to inactive.
func (q *Query) SetUpcoming(raw any) *Query {
	q.upcoming = launder.BooleanOrNull(raw)
	return q
}

// SetYear filters by the four digit year the event starts in.
func (q *Query) SetYear(raw any) *Query {
	q.year = launder.Year(raw)
	return q
}

// SetMonth filters to events starting and ending within a YYYY-MM month.
func (q *Query) SetMonth(raw any) *Query {
	q.month = launder.Month(raw)
	return q
}

// SetDay filters to events starting and ending on a YYYY-MM-DD day.
func (q *Query) SetDay(raw any) *Query {
	q.day = launder.Date(raw)
	return q
}

// SetStart keeps events still active on or after the given day.
func (q *Query) SetStart(raw any) *Query {
	q.start = launder.Date(raw)
	return q
}

// SetEnd keeps events that have begun on or before the given day.
func (q *Query) SetEnd(raw any) *Query {
	q.end = launder.Date(raw)
	return q
}

// SetDate is a convenience alias that delegates to the day filter.
func (q *Query) SetDate(raw any) *Query {
	return q.SetDay(raw)
}

// Finalize resolves filter precedence and produces the store filter.
//
// Navigation by year, month or day trumps the upcoming filter, allowing
// callers to browse the past.
func (q *Query) Finalize() persistence.EventFilter {
	var f persistence.EventFilter

	if q.upcoming != nil && q.year == "" && q.month == "" && q.day == "" {
		now := q.now()
		if *q.upcoming {
			f.EndsAfter = &now
		} else {
			f.EndsAtOrBefore = &now
		}
	}

	if q.year != "" {
		f.Dates = append(f.Dates,
			persistence.DateCondition{Field: persistence.FieldStartDate, Op: persistence.DateAtMost, Value: q.year + "-12-31"},
			persistence.DateCondition{Field: persistence.FieldStartDate, Op: persistence.DateAtLeast, Value: q.year + "-01-01"},
		)
	}

	if q.month != "" {
		f.Dates = append(f.Dates,
			persistence.DateCondition{Field: persistence.FieldStartDate, Op: persistence.DateContains, Value: q.month + "-"},
			persistence.DateCondition{Field: persistence.FieldEndDate, Op: persistence.DateContains, Value: q.month + "-"},
		)
	}

	if q.day != "" {
		f.Dates = append(f.Dates,
			persistence.DateCondition{Field: persistence.FieldStartDate, Op: persistence.DateContains, Value: q.day},
			persistence.DateCondition{Field: persistence.FieldEndDate, Op: persistence.DateContains, Value: q.day},
		)
	}

	if q.start != "" {
		f.Dates = append(f.Dates,
			persistence.DateCondition{Field: persistence.FieldEndDate, Op: persistence.DateAtLeast, Value: q.start},
		)
	}

	if q.end != "" {
		f.Dates = append(f.Dates,
			persistence.DateCondition{Field: persistence.FieldStartDate, Op: persistence.DateAtMost, Value: q.end},
		)
	}

	return f
}

// Choice is one selectable filter value. The zero Value means
// "match everything".
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// UpcomingChoice pairs the tri-state upcoming value with its label.
type UpcomingChoice struct {
	Value *bool  `json:"value"`
	Label string `json:"label"`
}

// UpcomingChoices lists the selectable values of the upcoming filter.
func UpcomingChoices() []UpcomingChoice {
	upcoming := true
	past := false
	return []UpcomingChoice{
		{Value: nil, Label: "Both"},
		{Value: &upcoming, Label: "Upcoming"},
		{Value: &past, Label: "Past"},
	}
}

// YearChoices enumerates the years events start in, most recent first.
func (q *Query) YearChoices(ctx context.Context, store DistinctFinder) ([]Choice, error) {
	return q.choices(ctx, store, yearWidth)
}

// MonthChoices enumerates the YYYY-MM months events start in, most recent
// first.
func (q *Query) MonthChoices(ctx context.Context, store DistinctFinder) ([]Choice, error) {
	return q.choices(ctx, store, monthWidth)
}

// DayChoices enumerates the YYYY-MM-DD days events start on, most recent
// first.
func (q *Query) DayChoices(ctx context.Context, store DistinctFinder) ([]Choice, error) {
	return q.choices(ctx, store, dayWidth)
}

// choices re-runs the query with the upcoming filter reset so past events
// stay navigable, truncates each distinct start date to the requested
// prefix width, de-duplicates, and sorts descending. The match-everything
// option trails the reverse-sorted values.
func (q *Query) choices(ctx context.Context, store DistinctFinder, width int) ([]Choice, error) {
	clone := q.Clone()
	clone.upcoming = nil

	dates, err := store.DistinctValues(ctx, persistence.FieldStartDate, clone.Finalize())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(dates))
	values := make([]string, 0, len(dates))
	for _, date := range dates {
		if len(date) < width {
			continue
		}
		value := date[:width]
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(values)))

	out := make([]Choice, 0, len(values)+1)
	for _, value := range values {
		out = append(out, Choice{Value: value, Label: value})
	}
	out = append(out, Choice{Label: "All"})
	return out, nil
}
