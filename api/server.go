/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the management frontend

ROUTE GROUPS:
  /api/employees/*   Employee records and deduction obligations
  /api/periods/*     Pay period lifecycle and batch operations
  /api/payslips/*    Payslip computation, validation, payments
  /api/journal/*     OHADA journal entries, months, chart lookup
  /api/debts/*       Dettes and prêts
  /api/admin/*       Tax settings administration

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/obligations", h.ListObligations)
		})

		// Deduction obligations
		r.Route("/obligations", func(r chi.Router) {
			r.Post("/", h.CreateObligation)
		})

		// Pay period routes
		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Post("/", h.OpenPeriod)
			r.Get("/{id}", h.GetPeriod)
			r.Get("/{id}/payslips", h.PeriodPayslips)
			r.Post("/{id}/validate", h.ValidatePeriod)
			r.Post("/{id}/lock", h.LockPeriod)
			r.Post("/{id}/charges", h.PayCharges)
		})

		// Payslip routes
		r.Route("/payslips", func(r chi.Router) {
			r.Post("/compute", h.ComputePayslip)
			r.Get("/{id}", h.GetPayslip)
			r.Post("/{id}/validate", h.ValidatePayslip)
			r.Post("/{id}/pay", h.PayPayslip)
			r.Get("/{id}/payments", h.PayslipPayments)
			r.Get("/{id}/unpaid", h.PayslipUnpaid)
		})

		// Journal routes
		r.Route("/journal", func(r chi.Router) {
			r.Post("/entries", h.PostEntry)
			r.Get("/entries/{id}", h.GetEntry)
			r.Post("/entries/{id}/confirm", h.ConfirmEntry)
			r.Post("/entries/{id}/reverse", h.ReverseEntry)
			r.Get("/months/{key}", h.MonthEntries)
			r.Post("/months/{key}/close", h.CloseMonth)
			r.Get("/accounts/{code}", h.GetAccount)
		})

		// Debt/loan routes
		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.ListDebts)
			r.Post("/", h.CreateDebt)
			r.Get("/{id}", h.GetDebt)
			r.Post("/{id}/payments", h.PayDebt)
			r.Get("/{id}/payments", h.DebtPayments)
			r.Get("/{id}/interest", h.DebtInterest)
			r.Post("/{id}/cancel", h.CancelDebt)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.UpdateSettings)
			r.Post("/settings/reset", h.ResetSettings)
		})
	})

	return r
}
