package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/event-calendar/internal/persistence"
	"github.com/example/event-calendar/internal/query"
)

type memoryEventRepository struct {
	mu      sync.Mutex
	events  map[string]Event
	inserts []string

	failInsertSlug string
	publishCalls   []string
}

func newMemoryEventRepository() *memoryEventRepository {
	return &memoryEventRepository{events: map[string]Event{}}
}

func (r *memoryEventRepository) InsertEvent(_ context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failInsertSlug != "" && event.Slug == r.failInsertSlug {
		return Event{}, persistence.ErrConstraintViolation
	}
	for _, existing := range r.events {
		if existing.Slug == event.Slug {
			return Event{}, persistence.ErrDuplicate
		}
	}

	r.events[event.ID] = event
	r.inserts = append(r.inserts, event.ID)
	return event, nil
}

func (r *memoryEventRepository) UpdateEvent(_ context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[event.ID]; !ok {
		return Event{}, persistence.ErrNotFound
	}
	r.events[event.ID] = event
	return event, nil
}

func (r *memoryEventRepository) GetEvent(_ context.Context, id string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (r *memoryEventRepository) GetEventBySlug(_ context.Context, slug string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, event := range r.events {
		if event.Slug == slug {
			return event, nil
		}
	}
	return Event{}, persistence.ErrNotFound
}

func (r *memoryEventRepository) FindEvents(_ context.Context, filter persistence.EventFilter) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, id := range r.inserts {
		event := r.events[id]
		if filter.GroupID != "" && event.GroupID != filter.GroupID {
			continue
		}
		if filter.Slug != "" && event.Slug != filter.Slug {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (r *memoryEventRepository) DistinctValues(_ context.Context, field persistence.DateField, _ persistence.EventFilter) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[string]struct{}{}
	var out []string
	for _, id := range r.inserts {
		value := r.events[id].StartDate
		if field == persistence.FieldEndDate {
			value = r.events[id].EndDate
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out, nil
}

func (r *memoryEventRepository) PublishEvent(_ context.Context, id string, at time.Time) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	event.Published = true
	if event.PublishedAt == nil {
		stamp := at
		event.PublishedAt = &stamp
	}
	r.events[id] = event
	r.publishCalls = append(r.publishCalls, id)
	return event, nil
}

func (r *memoryEventRepository) DeleteEvent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func sequentialIDs(prefix string) func() string {
	var counter int
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	return func() time.Time { return at }
}

func newTestService(repo *memoryEventRepository) *EventService {
	return NewEventService(repo, time.UTC, sequentialIDs("id"), fixedClock())
}

func TestInsertEventNormalizesBeforeSave(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	event, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:     "Gallery Opening",
			StartDate: "2024-03-14",
			EndDate:   "2024-03-20",
			StartTime: "18:00:00",
			EndTime:   "21:00:00",
		},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.EndDate != "2024-03-14" {
		t.Fatalf("end date must be rewritten to start date, got %q", event.EndDate)
	}
	wantStart := time.Date(2024, time.March, 14, 18, 0, 0, 0, time.UTC)
	if !event.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", event.Start, wantStart)
	}
	if event.Slug != "gallery-opening" {
		t.Fatalf("slug = %q", event.Slug)
	}
}

func TestInsertEventAllDay(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	event, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:     "Street Fair",
			StartDate: "2024-07-04",
			AllDay:    true,
		},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStart := time.Date(2024, time.July, 4, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.July, 4, 23, 59, 59, 0, time.UTC)
	if !event.Start.Equal(wantStart) || !event.End.Equal(wantEnd) {
		t.Fatalf("all day span = %v..%v", event.Start, event.End)
	}
}

func TestInsertEventAssignsGroupOnFirstInsertion(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	event, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:          "Weekly Standup",
			StartDate:      "2024-01-01",
			StartTime:      "09:00:00",
			EndTime:        "09:30:00",
			DateType:       DateTypeRepeat,
			RepeatInterval: RepeatWeeks,
			RepeatCount:    2,
		},
		Mode:           ModeDraft,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.GroupID == "" {
		t.Fatal("repeating event must receive a group id on first insertion")
	}
	if !event.HasClones {
		t.Fatal("repeating event must be marked as owning clones")
	}
	if len(repo.inserts) != 1 {
		t.Fatalf("draft pass must not expand, got %d inserts", len(repo.inserts))
	}
}

func TestInsertEventLiveExpandsRecurrence(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	parent, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:          "Weekly Standup",
			StartDate:      "2024-01-01",
			StartTime:      "09:00:00",
			EndTime:        "09:30:00",
			DateType:       DateTypeRepeat,
			RepeatInterval: RepeatWeeks,
			RepeatCount:    3,
		},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.inserts) != 4 {
		t.Fatalf("expected parent plus 3 children, got %d inserts", len(repo.inserts))
	}

	wantDates := []string{"2024-01-08", "2024-01-15", "2024-01-22"}
	for i, id := range repo.inserts[1:] {
		child := repo.events[id]
		if child.StartDate != wantDates[i] || child.EndDate != wantDates[i] {
			t.Fatalf("child %d dates = %s..%s, want %s", i, child.StartDate, child.EndDate, wantDates[i])
		}
		if child.Slug != parent.Slug+"-"+wantDates[i] {
			t.Fatalf("child %d slug = %q", i, child.Slug)
		}
		if !child.IsClone || child.HasClones {
			t.Fatalf("child %d clone flags = isClone:%v hasClones:%v", i, child.IsClone, child.HasClones)
		}
		if child.DateType != DateTypeSingle {
			t.Fatalf("child %d date type = %q", i, child.DateType)
		}
		if child.GroupID != parent.GroupID {
			t.Fatalf("child %d group = %q, want %q", i, child.GroupID, parent.GroupID)
		}
		if child.StartTime != parent.StartTime || child.EndTime != parent.EndTime {
			t.Fatalf("child %d must inherit the parent's times", i)
		}
	}
}

func TestInsertEventLaterInsertionDoesNotExpand(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	_, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:          "Weekly Standup",
			StartDate:      "2024-01-01",
			StartTime:      "09:00:00",
			EndTime:        "09:30:00",
			DateType:       DateTypeRepeat,
			RepeatInterval: RepeatWeeks,
			RepeatCount:    3,
		},
		Mode:           ModeLive,
		FirstInsertion: false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.inserts) != 1 {
		t.Fatalf("re-insertion must not expand, got %d inserts", len(repo.inserts))
	}
}

func TestInsertEventChildFailureLeavesEarlierSiblings(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	repo.failInsertSlug = "weekly-standup-2024-01-15"
	service := newTestService(repo)

	parent, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:          "Weekly Standup",
			StartDate:      "2024-01-01",
			StartTime:      "09:00:00",
			EndTime:        "09:30:00",
			DateType:       DateTypeRepeat,
			RepeatInterval: RepeatWeeks,
			RepeatCount:    3,
		},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err == nil {
		t.Fatal("expected the failed child insert to surface")
	}
	if parent.ID == "" {
		t.Fatal("parent must be returned even when expansion fails")
	}

	// Parent and the first child survive; nothing after the failure exists.
	if len(repo.inserts) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(repo.inserts))
	}
	if repo.events[repo.inserts[1]].StartDate != "2024-01-08" {
		t.Fatalf("first child = %+v", repo.events[repo.inserts[1]])
	}
}

func TestInsertEventValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input EventInput
		field string
	}{
		{
			name:  "missing title",
			input: EventInput{StartDate: "2024-01-01"},
			field: "title",
		},
		{
			name:  "missing start date",
			input: EventInput{Title: "Event"},
			field: "start_date",
		},
		{
			name:  "malformed start date",
			input: EventInput{Title: "Event", StartDate: "01/02/2024"},
			field: "start_date",
		},
		{
			name:  "consecutive without end date",
			input: EventInput{Title: "Event", StartDate: "2024-01-01", DateType: DateTypeConsecutive},
			field: "end_date",
		},
		{
			name:  "repeat without interval",
			input: EventInput{Title: "Event", StartDate: "2024-01-01", DateType: DateTypeRepeat, RepeatCount: 2},
			field: "repeat_interval",
		},
		{
			name:  "repeat without count",
			input: EventInput{Title: "Event", StartDate: "2024-01-01", DateType: DateTypeRepeat, RepeatInterval: RepeatWeeks},
			field: "repeat_count",
		},
		{
			name:  "unknown date type",
			input: EventInput{Title: "Event", StartDate: "2024-01-01", DateType: DateType("sometimes")},
			field: "date_type",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			service := newTestService(newMemoryEventRepository())
			_, err := service.InsertEvent(context.Background(), InsertEventParams{
				Input:          tc.input,
				Mode:           ModeLive,
				FirstInsertion: true,
			})

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %+v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestInsertEventDuplicateSlug(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	input := EventInput{Title: "Gallery Opening", StartDate: "2024-03-14"}
	if _, err := service.InsertEvent(context.Background(), InsertEventParams{Input: input, Mode: ModeLive, FirstInsertion: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := service.InsertEvent(context.Background(), InsertEventParams{Input: input, Mode: ModeLive, FirstInsertion: true})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUpdateEventRenormalizesAndNeverExpands(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	parent, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:          "Weekly Standup",
			StartDate:      "2024-01-01",
			StartTime:      "09:00:00",
			EndTime:        "09:30:00",
			DateType:       DateTypeRepeat,
			RepeatInterval: RepeatWeeks,
			RepeatCount:    2,
		},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(repo.inserts)

	updated, err := service.UpdateEvent(context.Background(), UpdateEventParams{
		EventID: parent.ID,
		Input: EventInput{
			Title:          "Weekly Standup",
			StartDate:      "2024-02-05",
			EndDate:        "2024-02-09",
			StartTime:      "10:00:00",
			EndTime:        "10:30:00",
			DateType:       DateTypeRepeat,
			RepeatInterval: RepeatWeeks,
			RepeatCount:    5,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.EndDate != "2024-02-05" {
		t.Fatalf("update must renormalize the end date, got %q", updated.EndDate)
	}
	if len(repo.inserts) != before {
		t.Fatalf("update must never materialize children, got %d inserts", len(repo.inserts))
	}
	if updated.GroupID != parent.GroupID {
		t.Fatalf("group id must survive updates, got %q", updated.GroupID)
	}
}

func TestUpdateEventNotFound(t *testing.T) {
	t.Parallel()

	service := newTestService(newMemoryEventRepository())
	_, err := service.UpdateEvent(context.Background(), UpdateEventParams{
		EventID: "missing",
		Input:   EventInput{Title: "Event", StartDate: "2024-01-01"},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishEventPropagatesToClones(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	parent, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:          "Weekly Standup",
			StartDate:      "2024-01-01",
			StartTime:      "09:00:00",
			EndTime:        "09:30:00",
			DateType:       DateTypeRepeat,
			RepeatInterval: RepeatWeeks,
			RepeatCount:    2,
		},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An unrelated event must be untouched by propagation.
	unrelated, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input:          EventInput{Title: "Gallery Opening", StartDate: "2024-03-14"},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	published, err := service.PublishEvent(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !published.Published {
		t.Fatal("parent must be published")
	}

	for _, id := range repo.inserts {
		event := repo.events[id]
		switch {
		case id == unrelated.ID:
			if event.Published {
				t.Fatal("unrelated event must not be published")
			}
		default:
			if !event.Published {
				t.Fatalf("group member %s must be published", id)
			}
		}
	}

	// Parent once, two clones once each.
	if len(repo.publishCalls) != 3 {
		t.Fatalf("expected 3 publish calls, got %v", repo.publishCalls)
	}
}

func TestPublishEventSecondPublishDoesNotPropagate(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	parent, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input: EventInput{
			Title:          "Weekly Standup",
			StartDate:      "2024-01-01",
			StartTime:      "09:00:00",
			EndTime:        "09:30:00",
			DateType:       DateTypeRepeat,
			RepeatInterval: RepeatWeeks,
			RepeatCount:    2,
		},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.PublishEvent(context.Background(), parent.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstRound := len(repo.publishCalls)

	if _, err := service.PublishEvent(context.Background(), parent.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.publishCalls) != firstRound+1 {
		t.Fatalf("republish must touch only the parent, calls = %v", repo.publishCalls)
	}
}

func TestListEventsSortsByStart(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	later, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input:          EventInput{Title: "Later", StartDate: "2024-05-20", StartTime: "09:00:00", EndTime: "10:00:00"},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	earlier, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input:          EventInput{Title: "Earlier", StartDate: "2024-05-01", StartTime: "09:00:00", EndTime: "10:00:00"},
		Mode:           ModeLive,
		FirstInsertion: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := service.ListEvents(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != earlier.ID || events[1].ID != later.ID {
		t.Fatalf("events out of order: %s, %s", events[0].ID, events[1].ID)
	}
}

func TestFilterChoicesDispatch(t *testing.T) {
	t.Parallel()

	repo := newMemoryEventRepository()
	service := newTestService(repo)

	if _, err := service.InsertEvent(context.Background(), InsertEventParams{
		Input:          EventInput{Title: "Gallery Opening", StartDate: "2024-03-14"},
		Mode:           ModeLive,
		FirstInsertion: true,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"year", "month", "day", "date"} {
		choices, err := service.FilterChoices(context.Background(), query.New(fixedClock()), name)
		if err != nil {
			t.Fatalf("choices(%s): %v", name, err)
		}
		if len(choices) == 0 || choices[len(choices)-1].Label != "All" {
			t.Fatalf("choices(%s) must end with the match-everything option, got %+v", name, choices)
		}
	}

	if _, err := service.FilterChoices(context.Background(), query.New(fixedClock()), "flavor"); !errors.Is(err, ErrUnknownFilter) {
		t.Fatalf("expected ErrUnknownFilter, got %v", err)
	}
}

func TestDeleteEventNotFound(t *testing.T) {
	t.Parallel()

	service := newTestService(newMemoryEventRepository())
	if err := service.DeleteEvent(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
