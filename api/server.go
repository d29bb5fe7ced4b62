/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/leaves/quotas/*           Balances, rules, transfers, carry-overs, reports
  /api/leaves/quota-transfers/*  Management aliases for transfers
  /api/leaves/quota-carryovers/* Management aliases for carry-overs
  /api/employees/*               Employee management
  /api/scenarios/*               Demo scenarios
  /api/health                    Liveness

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured. Empty
// origins means DefaultCORSOrigins.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
		})

		r.Route("/leaves", func(r chi.Router) {
			r.Route("/quotas", func(r chi.Router) {
				r.Get("/employee/{id}", h.GetEmployeeQuota)
				r.Post("/calculate", h.CalculateAvailability)
				r.Post("/adjust", h.AdjustBalance)
				r.Get("/summary", h.GetQuotaSummary)
				r.Get("/state", h.GetQuotaState)
				r.Get("/alerts", h.GetQuotaAlerts)
				r.Get("/transactions", h.GetTransactions)
				r.Get("/statistics", h.GetStatistics)
				r.Get("/dashboard", h.GetDashboard)

				// Rule routes
				r.Route("/transfer-rules", func(r chi.Router) {
					r.Get("/", h.ListTransferRules)
					r.Post("/", h.SaveTransferRule)
					r.Get("/active", h.ListActiveTransferRules)
					r.Put("/{id}", h.SaveTransferRule)
					r.Delete("/{id}", h.DeleteTransferRule)
				})
				r.Route("/carry-over-rules", func(r chi.Router) {
					r.Get("/", h.ListCarryOverRules)
					r.Post("/", h.SaveCarryOverRule)
					r.Get("/active", h.ListActiveCarryOverRules)
					r.Put("/{id}", h.SaveCarryOverRule)
					r.Delete("/{id}", h.DeleteCarryOverRule)
				})
				r.Route("/special-periods", func(r chi.Router) {
					r.Get("/", h.ListSpecialPeriods)
					r.Post("/", h.SaveSpecialPeriod)
					r.Put("/{id}", h.SaveSpecialPeriod)
					r.Delete("/{id}", h.DeleteSpecialPeriod)
				})

				// Transfer routes
				r.Route("/transfers", func(r chi.Router) {
					r.Get("/", h.ListTransfers)
					r.Post("/", h.RequestTransfer)
					r.Post("/simulate", h.SimulateTransfer)
					r.Get("/allowed", h.TransferAllowed)
					r.Post("/report", h.TransferReport)
					r.Post("/{id}/approve", h.ApproveTransfer)
					r.Post("/{id}/reject", h.RejectTransfer)
				})

				// Carry-over routes
				r.Route("/carry-overs", func(r chi.Router) {
					r.Get("/", h.ListCarryOvers)
					r.Post("/", h.RequestCarryOver)
					r.Post("/simulate", h.SimulateCarryOver)
					r.Get("/allowed", h.CarryOverAllowed)
					r.Post("/process-annual", h.ProcessAnnualCarryOver)
					r.Post("/expire", h.ExpireCarryOvers)
					r.Get("/runs", h.ListCarryOverRuns)
					r.Post("/{id}/approve", h.ApproveCarryOver)
					r.Post("/{id}/reject", h.RejectCarryOver)
				})
			})

			// Management aliases
			r.Route("/quota-transfers", func(r chi.Router) {
				r.Post("/simulate", h.SimulateQuotaTransfer)
				r.Post("/request", h.RequestTransfer)
				r.Post("/{id}/process", h.ProcessTransfer)
			})
			r.Route("/quota-carryovers", func(r chi.Router) {
				r.Post("/simulate", h.SimulateCarryOverCalculation)
				r.Post("/request", h.RequestCarryOver)
				r.Post("/{id}/process", h.ProcessCarryOver)
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Leave Quota API</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Leave Quota API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/employees">/api/employees</a> - List employees</li>
<li><a href="/api/leaves/quotas/transfer-rules">/api/leaves/quotas/transfer-rules</a> - Transfer rules</li>
<li><a href="/api/leaves/quotas/carry-over-rules">/api/leaves/quotas/carry-over-rules</a> - Carry-over rules</li>
<li><a href="/api/leaves/quotas/special-periods">/api/leaves/quotas/special-periods</a> - Special periods</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
