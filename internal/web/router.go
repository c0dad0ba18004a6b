// Package web serves the browser front-end: server-rendered pages, an item
// list fragment for live filtering, and the notification event stream.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the front-end router. events, if non-nil, is mounted at
// GET /events for signed-in users.
func NewRouter(h *Handler, events http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RejectCrossOrigin(h.logger))

	health := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	r.Get("/", h.Index)
	r.Post("/signin", h.SignIn)
	r.Post("/signup", h.SignUp)
	r.Post("/signout", h.SignOut)

	// Form and list actions.
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.ctl, http.HandlerFunc(redirectHome)))

		r.Get("/items/new", h.NewItem)
		r.Get("/items/{id}/edit", h.EditItem)
		r.Post("/items/{id}/edit", h.EditItem)
		r.Post("/items", h.SubmitItem)
		r.Post("/items/cancel", h.CancelForm)
		r.Post("/items/{id}/delete", h.DeleteItem)
		r.Post("/items/refresh", h.RefreshItems)
	})

	// Script endpoints.
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.ctl, http.HandlerFunc(unauthorized)))

		r.Get("/fragments/items", h.ItemsFragment)
		if events != nil {
			r.Get("/events", events.ServeHTTP)
		}
	})

	return r
}
