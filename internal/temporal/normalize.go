// Package temporal derives the canonical start/end instants of a calendar
// event from its raw date, time and all-day fields.
package temporal

import "time"

const (
	// DateLayout is the fixed-width calendar date format used across the
	// event model. Zero padding keeps lexicographic ordering valid.
	DateLayout = "2006-01-02"

	dateTimeLayout = "2006-01-02 15:04:05"

	allDayStartTime = "00:00:00"
	allDayEndTime   = "23:59:59"
)

// Fields captures the raw calendar input recorded on an event.
type Fields struct {
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
	AllDay    bool
	// Consecutive reports whether the user explicitly chose a multi day
	// span; only then is EndDate honored as entered.
	Consecutive bool
}

// Canonical holds the derived values the rest of the system orders and
// filters by.
type Canonical struct {
	StartDate string
	EndDate   string
	Start     time.Time
	End       time.Time
}

// Normalize computes the canonical fields from raw input. The normalizer is
// the single source of truth for EndDate: unless the event spans consecutive
// days it is overwritten to equal StartDate. All-day events cover the whole
// day regardless of the raw time fields.
//
// Dates and times are treated as wall-clock values in loc (time.Local when
// nil); no timezone conversion is performed. A date/time combination that
// fails to parse yields the zero time, which downstream comparisons treat
// as never matching.
func Normalize(f Fields, loc *time.Location) Canonical {
	if loc == nil {
		loc = time.Local
	}

	endDate := f.StartDate
	if f.Consecutive {
		endDate = f.EndDate
	}

	startTime := f.StartTime
	endTime := f.EndTime
	if f.AllDay {
		startTime = allDayStartTime
		endTime = allDayEndTime
	}

	return Canonical{
		StartDate: f.StartDate,
		EndDate:   endDate,
		Start:     parseInstant(f.StartDate, startTime, loc),
		End:       parseInstant(endDate, endTime, loc),
	}
}

func parseInstant(date, clock string, loc *time.Location) time.Time {
	ts, err := time.ParseInLocation(dateTimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}
	}
	return ts
}
