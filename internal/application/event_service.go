package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/event-calendar/internal/persistence"
	"github.com/example/event-calendar/internal/query"
	"github.com/example/event-calendar/internal/recurrence"
	"github.com/example/event-calendar/internal/temporal"
)

// EventRepository captures the persistence interactions needed by the
// service.
type EventRepository interface {
	InsertEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	GetEventBySlug(ctx context.Context, slug string) (Event, error)
	FindEvents(ctx context.Context, filter persistence.EventFilter) ([]Event, error)
	DistinctValues(ctx context.Context, field persistence.DateField, filter persistence.EventFilter) ([]string, error)
	PublishEvent(ctx context.Context, id string, at time.Time) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// EventService orchestrates the event lifecycle: normalization before every
// save, recurrence group assignment and expansion around first insertion,
// and publish propagation from a repeating parent to its children.
type EventService struct {
	events      EventRepository
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations. Dates and times
// are interpreted as wall-clock values in loc (time.Local when nil).
func NewEventService(events EventRepository, loc *time.Location, idGenerator func() string, now func() time.Time) *EventService {
	if loc == nil {
		loc = time.Local
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		location:    loc,
		idGenerator: idGenerator,
		now:         now,
	}
}

// NewEventServiceWithLogger wires dependencies including a base logger.
func NewEventServiceWithLogger(events EventRepository, loc *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	service := NewEventService(events, loc, idGenerator, now)
	service.logger = defaultLogger(logger)
	return service
}

// InsertEvent validates and persists a new event. On the record's first
// insertion a repeating event receives its recurrence group id; on the
// live pass its children are materialized immediately after the insert.
// Draft passes never expand, so replication cannot duplicate children.
func (s *EventService) InsertEvent(ctx context.Context, params InsertEventParams) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	input := params.Input

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	createdAt := s.now()
	event := Event{
		ID:             s.idGenerator(),
		Slug:           eventSlug(input),
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		AllDay:         input.AllDay,
		DateType:       normalizeDateType(input.DateType),
		RepeatInterval: input.RepeatInterval,
		RepeatCount:    input.RepeatCount,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}

	s.normalize(&event)

	// The recurrence group is assigned exactly once, on the earliest
	// lifecycle pass that persists the record, so the parent and every
	// later child share it.
	if params.FirstInsertion && event.DateType == DateTypeRepeat && event.GroupID == "" {
		event.GroupID = s.idGenerator()
	}

	persisted, err := s.events.InsertEvent(ctx, event)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	logger := serviceLogger(ctx, s.logger, "insert_event", "event_id", persisted.ID)
	logger.InfoContext(ctx, "event inserted", "slug", persisted.Slug, "date_type", string(persisted.DateType))

	if params.FirstInsertion && params.Mode == ModeLive && persisted.DateType == DateTypeRepeat {
		if err := s.expandRecurrence(ctx, persisted); err != nil {
			logger.ErrorContext(ctx, "recurrence expansion failed", "error", err, "error_kind", ErrorKind(err))
			return persisted, err
		}
	}

	return persisted, nil
}

// UpdateEvent re-normalizes and persists an edited event. Recurrence
// bookkeeping is untouched: children are never regenerated when the
// parent's repeat fields change.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	input := params.Input

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Description = input.Description
	if slug := strings.TrimSpace(input.Slug); slug != "" {
		updated.Slug = slugify(slug)
	}
	updated.StartDate = input.StartDate
	updated.EndDate = input.EndDate
	updated.StartTime = input.StartTime
	updated.EndTime = input.EndTime
	updated.AllDay = input.AllDay
	updated.DateType = normalizeDateType(input.DateType)
	updated.RepeatInterval = input.RepeatInterval
	updated.RepeatCount = input.RepeatCount
	updated.UpdatedAt = s.now()

	s.normalize(&updated)

	persisted, err := s.events.UpdateEvent(ctx, updated)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	return persisted, nil
}

// GetEvent returns a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// GetEventBySlug returns a single event by slug.
func (s *EventService) GetEventBySlug(ctx context.Context, slug string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	event, err := s.events.GetEventBySlug(ctx, slug)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// DeleteEvent removes a single event record. Recurrence children are
// independent records and are not cascaded.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if s == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return mapEventRepoError(err)
	}
	return nil
}

// ListEvents returns the events matching the finalized query, ordered by
// canonical start instant.
func (s *EventService) ListEvents(ctx context.Context, q *query.Query) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}
	if q == nil {
		q = query.New(s.now)
	}

	events, err := s.events.FindEvents(ctx, q.Finalize())
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	return ordered, nil
}

// FilterChoices enumerates the selectable values of the named calendar
// filter given the rest of the query state.
func (s *EventService) FilterChoices(ctx context.Context, q *query.Query, name string) ([]query.Choice, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}
	if q == nil {
		q = query.New(s.now)
	}

	switch name {
	case "year":
		return q.YearChoices(ctx, s.events)
	case "month":
		return q.MonthChoices(ctx, s.events)
	case "day", "date":
		return q.DayChoices(ctx, s.events)
	}
	return nil, ErrUnknownFilter
}

// PublishEvent publishes an event. The first publish of a repeating parent
// propagates to every generated child sharing its group, skipping the
// parent itself.
func (s *EventService) PublishEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	firstPublish := !existing.Published

	published, err := s.events.PublishEvent(ctx, id, s.now())
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	if !firstPublish || published.DateType != DateTypeRepeat || published.GroupID == "" {
		return published, nil
	}

	siblings, err := s.events.FindEvents(ctx, persistence.EventFilter{GroupID: published.GroupID})
	if err != nil {
		return published, mapEventRepoError(err)
	}

	logger := serviceLogger(ctx, s.logger, "publish_event", "event_id", published.ID)
	for _, sibling := range siblings {
		if !sibling.IsClone || sibling.ID == published.ID {
			continue
		}
		if _, err := s.events.PublishEvent(ctx, sibling.ID, s.now()); err != nil {
			logger.ErrorContext(ctx, "failed to publish recurrence child", "child_id", sibling.ID, "error", err)
			return published, mapEventRepoError(err)
		}
	}

	return published, nil
}

// normalize recomputes the canonical fields before any save. A repeating
// event pre-declares that it owns children even before they exist.
func (s *EventService) normalize(event *Event) {
	canonical := temporal.Normalize(temporal.Fields{
		StartDate:   event.StartDate,
		EndDate:     event.EndDate,
		StartTime:   event.StartTime,
		EndTime:     event.EndTime,
		AllDay:      event.AllDay,
		Consecutive: event.DateType == DateTypeConsecutive,
	}, s.location)

	event.StartDate = canonical.StartDate
	event.EndDate = canonical.EndDate
	event.Start = canonical.Start
	event.End = canonical.End

	if event.DateType == DateTypeRepeat {
		event.HasClones = true
	}
}

// expandRecurrence materializes one independent child record per computed
// date, in ascending order. Each insert must complete before the next date
// is processed; a failure leaves prior siblings persisted and is surfaced
// without retry or rollback.
func (s *EventService) expandRecurrence(ctx context.Context, parent Event) error {
	if parent.RepeatCount <= 0 {
		return nil
	}

	anchor, err := time.ParseInLocation(temporal.DateLayout, parent.StartDate, s.location)
	if err != nil {
		// A malformed start date carries an invalid canonical instant
		// already; there is nothing meaningful to expand.
		return nil
	}

	dates, err := recurrence.Dates(anchor, recurrence.Interval(parent.RepeatInterval), parent.RepeatCount)
	if err != nil {
		return err
	}

	for _, date := range dates {
		day := date.Format(temporal.DateLayout)

		child := parent
		child.ID = s.idGenerator()
		child.Slug = parent.Slug + "-" + day
		child.StartDate = day
		child.EndDate = day
		child.DateType = DateTypeSingle
		child.IsClone = true
		child.HasClones = false
		child.CreatedAt = s.now()
		child.UpdatedAt = child.CreatedAt

		s.normalize(&child)

		if _, err := s.events.InsertEvent(ctx, child); err != nil {
			return fmt.Errorf("expand recurrence for event %s at %s: %w", parent.ID, day, mapEventRepoError(err))
		}
	}

	return nil
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if input.StartDate == "" {
		vErr.add("start_date", "start date is required")
	} else if !validDate(input.StartDate) {
		vErr.add("start_date", "start date must be YYYY-MM-DD")
	}

	switch normalizeDateType(input.DateType) {
	case DateTypeSingle:
	case DateTypeConsecutive:
		if input.EndDate == "" {
			vErr.add("end_date", "end date is required for consecutive events")
		} else if !validDate(input.EndDate) {
			vErr.add("end_date", "end date must be YYYY-MM-DD")
		}
	case DateTypeRepeat:
		if input.RepeatInterval != RepeatWeeks && input.RepeatInterval != RepeatMonths {
			vErr.add("repeat_interval", "repeat interval must be weeks or months")
		}
		if input.RepeatCount <= 0 {
			vErr.add("repeat_count", "repeat count must be positive")
		}
	default:
		vErr.add("date_type", "date type must be single, consecutive or repeat")
	}
}

func normalizeDateType(dateType DateType) DateType {
	if dateType == "" {
		return DateTypeSingle
	}
	return dateType
}

func validDate(value string) bool {
	_, err := time.Parse(temporal.DateLayout, value)
	return err == nil && len(value) == len(temporal.DateLayout)
}

func eventSlug(input EventInput) string {
	if slug := strings.TrimSpace(input.Slug); slug != "" {
		return slugify(slug)
	}
	return slugify(input.Title)
}

// slugify lowercases and collapses anything outside [a-z0-9] into single
// hyphens.
func slugify(value string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("event", "event violates storage constraints")
		return vErr
	}
	return err
}
