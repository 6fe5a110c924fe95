package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clearmind-health/booking-platform/internal/eligibility"
	httpmiddleware "github.com/clearmind-health/booking-platform/internal/http/middleware"
	"github.com/clearmind-health/booking-platform/internal/scheduling"
	"github.com/clearmind-health/booking-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	SchedulingHandler  *scheduling.Handler
	EligibilityHandler *eligibility.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP request rate for the public API; zero disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitPerSecond > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
		}

		if cfg.SchedulingHandler != nil {
			api.Get("/slots/offers", cfg.SchedulingHandler.Offers)
			api.Get("/network/bookability", cfg.SchedulingHandler.Bookability)
			api.Post("/bookings", cfg.SchedulingHandler.SubmitBooking)
		}
		if cfg.EligibilityHandler != nil {
			api.Post("/eligibility/check", cfg.EligibilityHandler.Check)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
