// Package server exposes the room manager over HTTP: eight REST endpoints
// plus one server-sent-events stream, matching the wire contract every
// client is written against.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"yaniv/internal/room"
)

// NewRouter builds the full HTTP surface for a Manager.
func NewRouter(mgr *room.Manager) http.Handler {
	h := &handlers{mgr: mgr}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/create", h.create)
		r.Post("/join", h.join)
		r.Post("/leave", h.leave)
		r.Get("/room/{code}", h.getRoom)
		r.Post("/options", h.setOptions)
		r.Post("/start", h.start)
		r.Post("/action", h.action)
		r.Post("/playAgain", h.playAgain)
		r.Get("/events/{code}/{pid}", h.events)
	})

	return r
}
