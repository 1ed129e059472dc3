// Package httpapi is the HTTP gateway in front of the token service: it
// validates request shape, maps service outcomes to status codes, and keeps
// passwords and raw refresh tokens out of the logs. Boundary glue only;
// the rules live in the tokens package.
package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/akarpenko/notesync/internal/logging"
	"github.com/akarpenko/notesync/internal/server/tokens"
)

// NewRouter wires all gateway routes. Auth routes are public; sync requires
// a Bearer access token.
func NewRouter(logger logging.Logger, service *tokens.Service) *chi.Mux {
	h := NewAuthHandler(logger, service)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(logger, service))
			r.Post("/sync", h.Sync)
		})
	})

	return r
}
