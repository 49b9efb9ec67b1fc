/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     X-Request-ID in, uuid otherwise; also the event correlation id
  2. RealIP:        remote address from X-Forwarded-For / X-Real-IP
  3. RequestLogger: one zerolog line per request
  4. Recoverer:     panic -> 500 JSON instead of a crash
  5. CORS:          cross-origin requests for the frontend

ROUTE GROUPS:
  /health                 Liveness + database ping
  /api/employees/*        Employees, attendance, absences, ledger
  /api/balances/*         Monthly and period computations (by name)
  /api/admin/*            Month close
  /api/scenarios/*        Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/timebalance/main.go: Server startup
*/
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.log))
	r.Use(Recoverer(h.log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Post("/{id}/attendance", h.RecordAttendance)
			r.Post("/{id}/absences", h.RecordAbsences)
			r.Get("/{id}/ledger", h.GetLedger)
		})

		// Balance routes (employees are addressed by name)
		r.Route("/balances/{name}", func(r chi.Router) {
			r.Get("/monthly", h.GetMonthlyBalance)
			r.Get("/period", h.GetPeriodBalance)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/month-close", h.TriggerMonthClose)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
