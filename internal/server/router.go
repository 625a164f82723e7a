package server

import (
	"log/slog"
	"net/http"
	"time"

	"pipelineiq-backend/internal/config"
	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	health handler.HealthHandler,
	auth handler.AuthHandler,
	deals handler.DealHandler,
	export handler.ExportHandler,
	statuses handler.StatusHandler,
	leadSources handler.LeadSourceHandler,
	tasks handler.TaskHandler,
	analytics handler.AnalyticsHandler,
	assistant handler.AssistantHandler,
	members handler.MemberHandler,
	settings handler.SettingsHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	auth.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(cfg.JWTSecret))
		// any authenticated member
		pr.Group(func(ar chi.Router) {
			ar.Use(RequireRole(domain.RoleAdmin, domain.RoleSalesManager, domain.RoleTeamLead, domain.RoleAgent))
			deals.RegisterRoutes(ar)
			export.RegisterRoutes(ar)
			tasks.RegisterRoutes(ar)
			analytics.RegisterRoutes(ar)
			assistant.RegisterRoutes(ar)
			statuses.RegisterReadRoutes(ar)
			leadSources.RegisterReadRoutes(ar)
		})
		// manager-level (sales_manager/admin): workspace configuration
		pr.Group(func(mr chi.Router) {
			mr.Use(RequireRole(domain.RoleAdmin, domain.RoleSalesManager))
			statuses.RegisterRoutes(mr)
			leadSources.RegisterRoutes(mr)
			settings.RegisterRoutes(mr)
		})
		// admin-only workspace membership
		pr.Group(func(ar chi.Router) {
			ar.Use(RequireRole(domain.RoleAdmin))
			members.RegisterRoutes(ar)
		})
	})

	return r
}
