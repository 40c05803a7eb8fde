package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/availability"
)

type RouterConfig struct {
	Service      *appointment.Service
	Availability availability.Store
	Auth         Authenticator
	Limiter      Limiter // nil disables public rate limiting
	TrustProxy   bool    // take the client address from X-Real-IP / X-Forwarded-For
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/public", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(RateLimitMiddleware(cfg.Limiter))
		}
		r.Get("/availability/slots", publicSlotsHandler(cfg.Service))
		r.Post("/appointments", publicBookingHandler(cfg.Service))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Auth))

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", listAppointmentsHandler(cfg.Service))
			r.Post("/", createAppointmentHandler(cfg.Service))
			r.Post("/bulk", bulkCreateHandler(cfg.Service))
			r.Get("/conflicts", conflictsHandler(cfg.Service))
			r.Get("/stats", statsHandler(cfg.Service))

			r.Get("/{id}", getAppointmentHandler(cfg.Service))
			r.Put("/{id}", updateAppointmentHandler(cfg.Service))
			r.With(RequireRole(RoleAdmin)).Delete("/{id}", deleteAppointmentHandler(cfg.Service))
			r.Post("/{id}/confirm", confirmAppointmentHandler(cfg.Service))
			r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Service))
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Service))
			r.Post("/{id}/no-show", noShowAppointmentHandler(cfg.Service))
		})

		r.Route("/availability", func(r chi.Router) {
			r.Get("/", getAvailabilityHandler(cfg.Availability))
			r.Put("/", putAvailabilityHandler(cfg.Service))
			r.Get("/blocked", listBlockedTimesHandler(cfg.Availability))
			r.Post("/blocked", createBlockedTimeHandler(cfg.Service))
			r.Delete("/blocked/{id}", deleteBlockedTimeHandler(cfg.Availability))
		})
	})

	return r
}
