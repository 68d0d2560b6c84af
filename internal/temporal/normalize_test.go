package temporal

import (
	"testing"
	"time"
)

func TestNormalizeOverwritesEndDate(t *testing.T) {
	t.Parallel()

	got := Normalize(Fields{
		StartDate: "2024-03-14",
		EndDate:   "2024-03-20",
		StartTime: "09:00:00",
		EndTime:   "10:30:00",
	}, time.UTC)

	if got.EndDate != "2024-03-14" {
		t.Fatalf("expected end date rewritten to start date, got %q", got.EndDate)
	}
	wantStart := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC)
	if !got.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", got.Start, wantStart)
	}
	if !got.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", got.End, wantEnd)
	}
}

func TestNormalizeConsecutiveKeepsEndDate(t *testing.T) {
	t.Parallel()

	got := Normalize(Fields{
		StartDate:   "2024-03-14",
		EndDate:     "2024-03-16",
		StartTime:   "09:00:00",
		EndTime:     "17:00:00",
		Consecutive: true,
	}, time.UTC)

	if got.EndDate != "2024-03-16" {
		t.Fatalf("expected end date preserved, got %q", got.EndDate)
	}
	wantEnd := time.Date(2024, time.March, 16, 17, 0, 0, 0, time.UTC)
	if !got.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", got.End, wantEnd)
	}
}

func TestNormalizeAllDayCoversWholeDay(t *testing.T) {
	t.Parallel()

	got := Normalize(Fields{
		StartDate: "2024-03-14",
		StartTime: "09:00:00",
		EndTime:   "10:00:00",
		AllDay:    true,
	}, time.UTC)

	wantStart := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.March, 14, 23, 59, 59, 0, time.UTC)
	if !got.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", got.Start, wantStart)
	}
	if !got.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", got.End, wantEnd)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	fields := Fields{
		StartDate: "2024-03-14",
		StartTime: "09:00:00",
		EndTime:   "10:00:00",
	}

	first := Normalize(fields, time.UTC)
	second := Normalize(Fields{
		StartDate: first.StartDate,
		EndDate:   first.EndDate,
		StartTime: fields.StartTime,
		EndTime:   fields.EndTime,
	}, time.UTC)

	if first != second {
		t.Fatalf("expected identical canonical values, got %+v and %+v", first, second)
	}
}

func TestNormalizeMalformedInputYieldsZeroInstants(t *testing.T) {
	t.Parallel()

	got := Normalize(Fields{
		StartDate: "not-a-date",
		StartTime: "09:00:00",
		EndTime:   "10:00:00",
	}, time.UTC)

	if !got.Start.IsZero() || !got.End.IsZero() {
		t.Fatalf("expected zero instants, got start=%v end=%v", got.Start, got.End)
	}
	if got.StartDate != "not-a-date" || got.EndDate != "not-a-date" {
		t.Fatalf("raw dates should pass through, got %q/%q", got.StartDate, got.EndDate)
	}
}

func TestNormalizeUsesProvidedLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*60*60)
	got := Normalize(Fields{
		StartDate: "2024-03-14",
		StartTime: "09:00:00",
		EndTime:   "10:00:00",
	}, loc)

	if got.Start.Location() != loc {
		t.Fatalf("expected wall clock in provided location, got %v", got.Start.Location())
	}
}
