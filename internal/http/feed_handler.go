package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/example/event-calendar/internal/ics"
)

// FeedHandler serves the event listing as an iCalendar document.
type FeedHandler struct {
	service   eventService
	feedName  string
	now       func() time.Time
	responder responder
}

// NewFeedHandler wires the feed handler.
func NewFeedHandler(service eventService, feedName string, now func() time.Time, logger *slog.Logger) *FeedHandler {
	if now == nil {
		now = time.Now
	}
	return &FeedHandler{service: service, feedName: feedName, now: now, responder: newResponder(logger)}
}

// Get renders the feed. It honors the same temporal filter parameters as
// the event listing.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	handler := EventHandler{service: h.service, now: h.now}
	events, err := h.service.ListEvents(r.Context(), handler.buildQuery(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	if _, err := w.Write([]byte(ics.Feed(h.feedName, events, h.now()))); err != nil {
		h.responder.loggerFor(r.Context()).ErrorContext(r.Context(), "failed to write feed", "error", err)
	}
}
