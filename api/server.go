/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for admin frontends

SECURITY NOTE:
  No authentication middleware. Bind to localhost or front with a proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/subjects", func(r chi.Router) {
			r.Get("/", h.ListTypes)
			r.Get("/{type}", h.ListIdentifiers)
			r.Route("/{type}/{identifier}", func(r chi.Router) {
				r.Get("/", h.GetSubject)
				r.Delete("/", h.DeleteSubject)
				r.Put("/permissions", h.SetPermission)
				r.Put("/options", h.SetOption)
				r.Post("/parents", h.AddParent)
				r.Delete("/parents", h.RemoveParent)
				r.Put("/parents", h.SetParents)
				r.Put("/default", h.SetDefault)
			})
		})

		r.Route("/ladders", func(r chi.Router) {
			r.Get("/", h.ListLadders)
			r.Get("/{name}", h.GetLadder)
			r.Put("/{name}", h.PutLadder)
			r.Delete("/{name}", h.DeleteLadder)
		})

		r.Route("/context-inheritance", func(r chi.Router) {
			r.Get("/", h.GetContextInheritance)
			r.Put("/", h.PutContextInheritance)
		})

		r.Route("/globals", func(r chi.Router) {
			r.Get("/{key}", h.GetGlobal)
			r.Put("/{key}", h.PutGlobal)
			r.Delete("/{key}", h.DeleteGlobal)
		})
	})

	return r
}
