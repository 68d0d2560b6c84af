package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/event-calendar/internal/application"
	"github.com/example/event-calendar/internal/config"
	httptransport "github.com/example/event-calendar/internal/http"
	"github.com/example/event-calendar/internal/persistence"
	"github.com/example/event-calendar/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	eventRepo := newEventRepositoryAdapter(sqlite.NewEventRepository(storage))
	eventService := application.NewEventServiceWithLogger(eventRepo, cfg.Location(), idGenerator, now, logger)

	eventHandler := httptransport.NewEventHandler(eventService, now, logger)
	feedHandler := httptransport.NewFeedHandler(eventService, cfg.FeedName, now, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Events:     eventHandler,
		Feed:       feedHandler,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("event calendar API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type eventRepositoryAdapter struct {
	repo *sqlite.EventRepository
}

func newEventRepositoryAdapter(repo *sqlite.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) InsertEvent(ctx context.Context, event application.Event) (application.Event, error) {
	stored, err := a.repo.InsertEvent(ctx, toPersistenceEvent(event))
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	stored, err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event))
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEventBySlug(ctx context.Context, slug string) (application.Event, error) {
	stored, err := a.repo.GetEventBySlug(ctx, slug)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) FindEvents(ctx context.Context, filter persistence.EventFilter) ([]application.Event, error) {
	models, err := a.repo.FindEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *eventRepositoryAdapter) DistinctValues(ctx context.Context, field persistence.DateField, filter persistence.EventFilter) ([]string, error) {
	return a.repo.DistinctValues(ctx, field, filter)
}

func (a *eventRepositoryAdapter) PublishEvent(ctx context.Context, id string, at time.Time) (application.Event, error) {
	stored, err := a.repo.PublishEvent(ctx, id, at)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

func toApplicationEvent(model persistence.Event) application.Event {
	description := ""
	if model.Description != nil {
		description = *model.Description
	}
	groupID := ""
	if model.GroupID != nil {
		groupID = *model.GroupID
	}
	return application.Event{
		ID:             model.ID,
		Slug:           model.Slug,
		Title:          model.Title,
		Description:    description,
		StartDate:      model.StartDate,
		EndDate:        model.EndDate,
		StartTime:      model.StartTime,
		EndTime:        model.EndTime,
		AllDay:         model.AllDay,
		DateType:       application.DateType(model.DateType),
		RepeatInterval: application.RepeatInterval(model.RepeatInterval),
		RepeatCount:    model.RepeatCount,
		Start:          model.Start,
		End:            model.End,
		GroupID:        groupID,
		HasClones:      model.HasClones,
		IsClone:        model.IsClone,
		Published:      model.Published,
		PublishedAt:    cloneTime(model.PublishedAt),
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	var description *string
	if strings.TrimSpace(event.Description) != "" {
		description = cloneString(&event.Description)
	}
	var groupID *string
	if event.GroupID != "" {
		groupID = cloneString(&event.GroupID)
	}
	return persistence.Event{
		ID:             event.ID,
		Slug:           event.Slug,
		Title:          event.Title,
		Description:    description,
		StartDate:      event.StartDate,
		EndDate:        event.EndDate,
		StartTime:      event.StartTime,
		EndTime:        event.EndTime,
		AllDay:         event.AllDay,
		DateType:       string(event.DateType),
		RepeatInterval: string(event.RepeatInterval),
		RepeatCount:    event.RepeatCount,
		Start:          event.Start,
		End:            event.End,
		GroupID:        groupID,
		HasClones:      event.HasClones,
		IsClone:        event.IsClone,
		Published:      event.Published,
		PublishedAt:    cloneTime(event.PublishedAt),
		CreatedAt:      event.CreatedAt,
		UpdatedAt:      event.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
