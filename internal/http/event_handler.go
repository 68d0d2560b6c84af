package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/event-calendar/internal/application"
	"github.com/example/event-calendar/internal/query"
)

type eventService interface {
	InsertEvent(ctx context.Context, params application.InsertEventParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	GetEvent(ctx context.Context, id string) (application.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (application.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, q *query.Query) ([]application.Event, error)
	FilterChoices(ctx context.Context, q *query.Query, name string) ([]query.Choice, error)
	PublishEvent(ctx context.Context, id string) (application.Event, error)
}

// EventHandler serves the event CRUD, filter and publish endpoints.
type EventHandler struct {
	service   eventService
	now       func() time.Time
	responder responder
}

// NewEventHandler wires the handler. now feeds the temporal filters; it
// defaults to time.Now.
func NewEventHandler(service eventService, now func() time.Time, logger *slog.Logger) *EventHandler {
	if now == nil {
		now = time.Now
	}
	return &EventHandler{service: service, now: now, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.InsertEvent(r.Context(), application.InsertEventParams{
		Input:          req.toInput(),
		Mode:           req.lifecycleMode(),
		FirstInsertion: true,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := strings.TrimSpace(mux.Vars(r)["id"])
	if eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		EventID: eventID,
		Input:   req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := strings.TrimSpace(mux.Vars(r)["id"])
	if eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := strings.TrimSpace(mux.Vars(r)["id"])
	if eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	if err := h.service.DeleteEvent(r.Context(), eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	events, err := h.service.ListEvents(r.Context(), h.buildQuery(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Choices(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name := strings.TrimSpace(mux.Vars(r)["filter"])

	// The upcoming filter has a fixed tri-state choice set and never
	// consults the store.
	if name == "upcoming" {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, upcomingChoicesResponse{Choices: query.UpcomingChoices()})
		return
	}

	choices, err := h.service.FilterChoices(r.Context(), h.buildQuery(r.URL.Query()), name)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, choicesResponse{Choices: choices})
}

func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := strings.TrimSpace(mux.Vars(r)["id"])
	if eventID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.PublishEvent(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

// buildQuery applies each temporal filter only when its parameter is
// present, leaving absent filters inactive rather than laundered.
func (h *EventHandler) buildQuery(values url.Values) *query.Query {
	q := query.New(h.now)
	if values.Has("upcoming") {
		q.SetUpcoming(values.Get("upcoming"))
	}
	if values.Has("year") {
		q.SetYear(values.Get("year"))
	}
	if values.Has("month") {
		q.SetMonth(values.Get("month"))
	}
	if values.Has("day") {
		q.SetDay(values.Get("day"))
	}
	if values.Has("date") {
		q.SetDate(values.Get("date"))
	}
	if values.Has("start") {
		q.SetStart(values.Get("start"))
	}
	if values.Has("end") {
		q.SetEnd(values.Get("end"))
	}
	return q
}

type eventRequest struct {
	Title          string `json:"title"`
	Slug           string `json:"slug"`
	Description    string `json:"description"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	AllDay         bool   `json:"all_day"`
	DateType       string `json:"date_type"`
	RepeatInterval string `json:"repeat_interval"`
	RepeatCount    int    `json:"repeat_count"`
	Mode           string `json:"mode"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		Title:          strings.TrimSpace(r.Title),
		Slug:           strings.TrimSpace(r.Slug),
		Description:    r.Description,
		StartDate:      strings.TrimSpace(r.StartDate),
		EndDate:        strings.TrimSpace(r.EndDate),
		StartTime:      strings.TrimSpace(r.StartTime),
		EndTime:        strings.TrimSpace(r.EndTime),
		AllDay:         r.AllDay,
		DateType:       application.DateType(strings.TrimSpace(r.DateType)),
		RepeatInterval: application.RepeatInterval(strings.TrimSpace(r.RepeatInterval)),
		RepeatCount:    r.RepeatCount,
	}
}

func (r eventRequest) lifecycleMode() application.LifecycleMode {
	if strings.TrimSpace(r.Mode) == string(application.ModeDraft) {
		return application.ModeDraft
	}
	return application.ModeLive
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type choicesResponse struct {
	Choices []query.Choice `json:"choices"`
}

type upcomingChoicesResponse struct {
	Choices []query.UpcomingChoice `json:"choices"`
}

type eventDTO struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	StartTime      string `json:"start_time,omitempty"`
	EndTime        string `json:"end_time,omitempty"`
	AllDay         bool   `json:"all_day"`
	DateType       string `json:"date_type"`
	RepeatInterval string `json:"repeat_interval,omitempty"`
	RepeatCount    int    `json:"repeat_count,omitempty"`
	Start          string `json:"start,omitempty"`
	End            string `json:"end,omitempty"`
	GroupID        string `json:"group_id,omitempty"`
	HasClones      bool   `json:"has_clones"`
	IsClone        bool   `json:"is_clone"`
	Published      bool   `json:"published"`
	PublishedAt    string `json:"published_at,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toEventDTO(event application.Event) eventDTO {
	dto := eventDTO{
		ID:             event.ID,
		Slug:           event.Slug,
		Title:          event.Title,
		Description:    event.Description,
		StartDate:      event.StartDate,
		EndDate:        event.EndDate,
		StartTime:      event.StartTime,
		EndTime:        event.EndTime,
		AllDay:         event.AllDay,
		DateType:       string(event.DateType),
		RepeatInterval: string(event.RepeatInterval),
		RepeatCount:    event.RepeatCount,
		GroupID:        event.GroupID,
		HasClones:      event.HasClones,
		IsClone:        event.IsClone,
		Published:      event.Published,
		CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      event.UpdatedAt.UTC().Format(time.RFC3339),
	}

	// Canonical instants that failed to normalize are omitted rather than
	// rendered as the zero time.
	if !event.Start.IsZero() {
		dto.Start = event.Start.UTC().Format(time.RFC3339)
	}
	if !event.End.IsZero() {
		dto.End = event.End.UTC().Format(time.RFC3339)
	}
	if event.PublishedAt != nil {
		dto.PublishedAt = event.PublishedAt.UTC().Format(time.RFC3339)
	}

	return dto
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}
