package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/event-calendar/internal/persistence"
)

const eventColumns = `id, slug, title, description, start_date, end_date, start_time, end_time,
	all_day, date_type, repeat_interval, repeat_count, start_at, end_at,
	group_id, has_clones, is_clone, published, published_at, created_at, updated_at`

// EventRepository implements persistence.EventRepository on SQLite.
type EventRepository struct {
	store *Store
}

// NewEventRepository creates an event repository backed by the store.
func NewEventRepository(store *Store) *EventRepository {
	return &EventRepository{store: store}
}

// InsertEvent inserts a new event record.
func (r *EventRepository) InsertEvent(ctx context.Context, event persistence.Event) (persistence.Event, error) {
	if event.ID == "" {
		return persistence.Event{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.store.db.ExecContext(ctx, query,
		event.ID,
		event.Slug,
		event.Title,
		nullString(event.Description),
		event.StartDate,
		event.EndDate,
		event.StartTime,
		event.EndTime,
		boolInt(event.AllDay),
		event.DateType,
		event.RepeatInterval,
		event.RepeatCount,
		instantText(event.Start),
		instantText(event.End),
		nullString(event.GroupID),
		boolInt(event.HasClones),
		boolInt(event.IsClone),
		boolInt(event.Published),
		nullInstant(event.PublishedAt),
		event.CreatedAt.UTC().Format(time.RFC3339),
		event.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return persistence.Event{}, mapSQLiteError(err)
	}

	return r.GetEvent(ctx, event.ID)
}

// UpdateEvent rewrites an existing event record.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) (persistence.Event, error) {
	if event.ID == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := `
		UPDATE events
		SET slug = ?, title = ?, description = ?, start_date = ?, end_date = ?,
			start_time = ?, end_time = ?, all_day = ?, date_type = ?,
			repeat_interval = ?, repeat_count = ?, start_at = ?, end_at = ?,
			group_id = ?, has_clones = ?, is_clone = ?, published = ?,
			published_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.store.db.ExecContext(ctx, query,
		event.Slug,
		event.Title,
		nullString(event.Description),
		event.StartDate,
		event.EndDate,
		event.StartTime,
		event.EndTime,
		boolInt(event.AllDay),
		event.DateType,
		event.RepeatInterval,
		event.RepeatCount,
		instantText(event.Start),
		instantText(event.End),
		nullString(event.GroupID),
		boolInt(event.HasClones),
		boolInt(event.IsClone),
		boolInt(event.Published),
		nullInstant(event.PublishedAt),
		event.UpdatedAt.UTC().Format(time.RFC3339),
		event.ID,
	)
	if err != nil {
		return persistence.Event{}, mapSQLiteError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Event{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.Event{}, persistence.ErrNotFound
	}

	return r.GetEvent(ctx, event.ID)
}

// GetEvent retrieves an event by id.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	row := r.store.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventBySlug retrieves an event by slug.
func (r *EventRepository) GetEventBySlug(ctx context.Context, slug string) (persistence.Event, error) {
	if slug == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	row := r.store.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug)
	return scanEvent(row)
}

// FindEvents lists events matching the filter, ordered by canonical start
// instant then id.
func (r *EventRepository) FindEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + eventColumns + ` FROM events` + where + ` ORDER BY start_at ASC, id ASC`

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}

	return events, nil
}

// DistinctValues returns the distinct values of a calendar date field
// across the records matching the filter, in ascending order.
func (r *EventRepository) DistinctValues(ctx context.Context, field persistence.DateField, filter persistence.EventFilter) ([]string, error) {
	column, err := dateColumn(field)
	if err != nil {
		return nil, err
	}

	where, args := buildWhere(filter)
	query := `SELECT DISTINCT ` + column + ` FROM events` + where + ` ORDER BY ` + column + ` ASC`

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, mapSQLiteError(err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}

	return values, nil
}

// PublishEvent marks an event published, recording the publication instant
// on first publish only.
func (r *EventRepository) PublishEvent(ctx context.Context, id string, at time.Time) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	stamp := at.UTC().Format(time.RFC3339)
	result, err := r.store.db.ExecContext(ctx, `
		UPDATE events
		SET published = 1,
			published_at = COALESCE(published_at, ?),
			updated_at = ?
		WHERE id = ?
	`, stamp, stamp, id)
	if err != nil {
		return persistence.Event{}, mapSQLiteError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Event{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.Event{}, persistence.ErrNotFound
	}

	return r.GetEvent(ctx, id)
}

// DeleteEvent removes an event by id.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.store.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// buildWhere translates the filter into a WHERE conjunction. Instant
// comparisons exclude rows whose canonical instant failed to parse (stored
// as the empty string) so invalid instants never match.
func buildWhere(filter persistence.EventFilter) (string, []any) {
	var conditions []string
	var args []any

	for _, cond := range filter.Dates {
		column, err := dateColumn(cond.Field)
		if err != nil {
			// Unknown fields contribute an unsatisfiable condition rather
			// than silently widening the result set.
			conditions = append(conditions, "1 = 0")
			continue
		}
		switch cond.Op {
		case persistence.DateAtLeast:
			conditions = append(conditions, column+" >= ?")
			args = append(args, cond.Value)
		case persistence.DateAtMost:
			conditions = append(conditions, column+" <= ?")
			args = append(args, cond.Value)
		case persistence.DateContains:
			conditions = append(conditions, column+" LIKE ?")
			args = append(args, "%"+cond.Value+"%")
		default:
			conditions = append(conditions, "1 = 0")
		}
	}

	if filter.EndsAfter != nil {
		conditions = append(conditions, "end_at <> '' AND end_at > ?")
		args = append(args, filter.EndsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsAtOrBefore != nil {
		conditions = append(conditions, "end_at <> '' AND end_at <= ?")
		args = append(args, filter.EndsAtOrBefore.UTC().Format(time.RFC3339))
	}

	if filter.GroupID != "" {
		conditions = append(conditions, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.Slug != "" {
		conditions = append(conditions, "slug = ?")
		args = append(args, filter.Slug)
	}
	if filter.Published != nil {
		conditions = append(conditions, "published = ?")
		args = append(args, boolInt(*filter.Published))
	}
	if filter.IsClone != nil {
		conditions = append(conditions, "is_clone = ?")
		args = append(args, boolInt(*filter.IsClone))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func dateColumn(field persistence.DateField) (string, error) {
	switch field {
	case persistence.FieldStartDate:
		return "start_date", nil
	case persistence.FieldEndDate:
		return "end_date", nil
	}
	return "", fmt.Errorf("unknown date field %q", field)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var description, groupID, publishedAt sql.NullString
	var allDay, hasClones, isClone, published int
	var startAt, endAt, createdAt, updatedAt string

	err := row.Scan(
		&event.ID,
		&event.Slug,
		&event.Title,
		&description,
		&event.StartDate,
		&event.EndDate,
		&event.StartTime,
		&event.EndTime,
		&allDay,
		&event.DateType,
		&event.RepeatInterval,
		&event.RepeatCount,
		&startAt,
		&endAt,
		&groupID,
		&hasClones,
		&isClone,
		&published,
		&publishedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, mapSQLiteError(err)
	}

	if description.Valid {
		event.Description = &description.String
	}
	if groupID.Valid {
		event.GroupID = &groupID.String
	}
	event.AllDay = allDay != 0
	event.HasClones = hasClones != 0
	event.IsClone = isClone != 0
	event.Published = published != 0

	event.Start = parseInstant(startAt)
	event.End = parseInstant(endAt)
	if publishedAt.Valid {
		if ts, err := time.Parse(time.RFC3339, publishedAt.String); err == nil {
			event.PublishedAt = &ts
		}
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return event, nil
}

// instantText stores an invalid (zero) instant as the empty string so the
// filter conditions can exclude it from instant comparisons.
func instantText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseInstant(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullString(value any) sql.NullString {
	switch v := value.(type) {
	case *string:
		if v == nil {
			return sql.NullString{}
		}
		return sql.NullString{String: *v, Valid: true}
	case string:
		if v == "" {
			return sql.NullString{}
		}
		return sql.NullString{String: v, Valid: true}
	}
	return sql.NullString{}
}

func nullInstant(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return persistence.ErrDuplicate
	case strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return persistence.ErrConstraintViolation
	}
	return err
}
