package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router.
func SetupRoutes(h *Handlers, health *HealthChecker, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", health.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/high-risk", h.GetHighRisk)
			r.Get("/{customerID}/dashboard", h.GetCustomerDashboard)
			r.Post("/{customerID}/recompute", h.RecomputeCustomer)
		})

		r.Get("/segments/distribution", h.GetSegmentDistribution)
		r.Get("/value/top", h.GetTopValue)
		r.Get("/dormancy/eligible", h.GetReactivationQueue)

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/active", h.GetActiveAlerts)
			r.Post("/{alertID}/resolve", h.ResolveAlert)
			r.Post("/{alertID}/suppress", h.SuppressAlert)
		})

		r.Post("/monitoring/run", h.TriggerRun)
	})

	return r
}
