package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig wires the handlers behind the router. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	Events     *EventHandler
	Feed       *FeedHandler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the HTTP routing table. The choices route is registered
// before the id routes so "choices" is never captured as an event id.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()

	if cfg.Events != nil {
		router.HandleFunc("/events/choices/{filter}", cfg.Events.Choices).Methods(http.MethodGet)
		router.HandleFunc("/events", cfg.Events.List).Methods(http.MethodGet)
		router.HandleFunc("/events", cfg.Events.Create).Methods(http.MethodPost)
		router.HandleFunc("/events/{id}", cfg.Events.Get).Methods(http.MethodGet)
		router.HandleFunc("/events/{id}", cfg.Events.Update).Methods(http.MethodPut)
		router.HandleFunc("/events/{id}", cfg.Events.Delete).Methods(http.MethodDelete)
		router.HandleFunc("/events/{id}/publish", cfg.Events.Publish).Methods(http.MethodPost)
	}

	if cfg.Feed != nil {
		router.HandleFunc("/feed.ics", cfg.Feed.Get).Methods(http.MethodGet)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
