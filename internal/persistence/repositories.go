package persistence

import (
	"context"
	"time"
)

// EventRepository is the document store contract the event lifecycle and
// query engine depend on.
type EventRepository interface {
	InsertEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	GetEventBySlug(ctx context.Context, slug string) (Event, error)
	FindEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	// DistinctValues returns the distinct raw values of a calendar date
	// field across the records matching the filter.
	DistinctValues(ctx context.Context, field DateField, filter EventFilter) ([]string, error)
	// PublishEvent marks an event published. The publication instant is
	// recorded on first publish only.
	PublishEvent(ctx context.Context, id string, at time.Time) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}
