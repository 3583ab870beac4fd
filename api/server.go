/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/employees/*   Registration, rates, lifecycle, release, refund
  /api/advance       Employee advance (caller = employee)
  /api/withdraw      Employee withdrawal (caller = employee)
  /api/fund          Pool funding (caller = employer)
  /api/admin/*       Pause switch
  /api/events        Journaled observations
  /api/status        Pause flag and employer identity

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
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", CallerHeader},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Employee records
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.Register)
			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", h.GetEmployee)
				r.Get("/withdrawable", h.GetWithdrawable)
				r.Put("/rate", h.UpdateRate)
				r.Post("/deactivate", h.Deactivate)
				r.Post("/reactivate", h.Reactivate)
				r.Post("/release", h.ReleaseSalary)
				r.Post("/refund", h.Refund)
			})
		})

		// Employee self-service (caller identified by header)
		r.Post("/advance", h.RequestAdvance)
		r.Post("/withdraw", h.Withdraw)

		// Pool funding
		r.Post("/fund", h.Fund)

		// Pause switch
		r.Route("/admin", func(r chi.Router) {
			r.Post("/pause", h.Pause)
			r.Post("/unpause", h.Unpause)
		})

		// Observations
		r.Get("/events", h.ListEvents)
		r.Get("/status", h.Status)
	})

	return r
}
