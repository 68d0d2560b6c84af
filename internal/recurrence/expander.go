// Package recurrence computes the future dates a repeating event
// materializes child instances on.
package recurrence

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"
)

// Interval enumerates the supported repeat cadences.
type Interval string

const (
	// IntervalWeeks repeats the event every week.
	IntervalWeeks Interval = "weeks"
	// IntervalMonths repeats the event every month.
	IntervalMonths Interval = "months"
)

// ErrInvalidInterval indicates the repeat interval is not supported.
var ErrInvalidInterval = errors.New("recurrence: invalid interval")

// Dates returns the count dates following start at the given cadence, in
// ascending order. The start date itself is not included; the first result
// is one interval after it. A count of zero or less yields no dates.
//
// Expansion is delegated to an RFC 5545 rule, so a monthly cadence anchored
// on a day-of-month that some months lack skips those months while still
// producing count dates.
func Dates(start time.Time, interval Interval, count int) ([]time.Time, error) {
	if count <= 0 {
		return nil, nil
	}

	var freq rrule.Frequency
	switch interval {
	case IntervalWeeks:
		freq = rrule.WEEKLY
	case IntervalMonths:
		freq = rrule.MONTHLY
	default:
		return nil, ErrInvalidInterval
	}

	// Ask for one extra occurrence: the rule emits the anchor date first.
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     freq,
		Interval: 1,
		Count:    count + 1,
		Dtstart:  start,
	})
	if err != nil {
		return nil, err
	}

	occurrences := rule.All()
	if len(occurrences) > 0 && sameDate(occurrences[0], start) {
		occurrences = occurrences[1:]
	}

	return occurrences, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
