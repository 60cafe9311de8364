package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/database"
	"github.com/straye-as/success-api/internal/http/handler"
	"github.com/straye-as/success-api/internal/http/middleware"
	"github.com/straye-as/success-api/internal/metrics"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/straye-as/success-api/docs" // Import generated swagger docs
)

const healthCheckTimeout = 2 * time.Second

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Accounts     *handler.AccountHandler
	Health       *handler.HealthHandler
	Stages       *handler.StageHandler
	Sentiment    *handler.SentimentHandler
	Alerts       *handler.AlertHandler
	Playbooks    *handler.PlaybookHandler
	SuccessPlans *handler.SuccessPlanHandler
	Events       *handler.EventHandler
	Integrations *handler.IntegrationHandler
	Dashboard    *handler.DashboardHandler
}

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	metrics         *metrics.Metrics
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	auditMiddleware *middleware.AuditMiddleware
	handlers        Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	m *metrics.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		metrics:         m,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		auditMiddleware: auditMiddleware,
		handlers:        handlers,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(rt.metrics.Middleware)
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Liveness probe
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database readiness with pool stats
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(r.Context(), rt.db, healthCheckTimeout)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]interface{}{}
		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), rt.db, healthCheckTimeout); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = map[string]interface{}{"status": "healthy"}
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		writeJSON(w, status, map[string]interface{}{"status": overall, "checks": checks})
	})

	if rt.cfg.Server.EnableMetrics && rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler())
	}

	if rt.cfg.Server.EnableSwagger && rt.cfg.App.Environment != "production" {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	h := rt.handlers
	r.Route("/api/v1", func(r chi.Router) {
		// Integration webhooks authenticate with their own key
		r.With(rt.rateLimiter.LimitWebhook).Post("/webhooks/integrations/{id}", h.Integrations.IngestWebhook)

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)
			r.Use(rt.auditMiddleware.Audit)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", h.Accounts.List)
				r.Post("/", h.Accounts.Create)
				r.Get("/{id}", h.Accounts.GetByID)
				r.Put("/{id}", h.Accounts.Update)
				r.Delete("/{id}", h.Accounts.Delete)
				r.Get("/{id}/children", h.Accounts.ListChildren)

				r.Get("/{id}/health-scores", h.Health.ListHealthScores)
				r.Post("/{id}/health-scores", h.Health.RecordHealthScore)
				r.Get("/{id}/health-scores/latest", h.Health.LatestHealthScore)
				r.Put("/{id}/stage", h.Health.UpdateStage)
				r.Get("/{id}/journey", h.Health.JourneyHistory)

				r.Get("/{id}/sentiment", h.Sentiment.List)
				r.Post("/{id}/sentiment", h.Sentiment.Analyze)
				r.Post("/{id}/sentiment/batch", h.Sentiment.AnalyzeBatch)
				r.Post("/{id}/follow-up", h.Sentiment.DraftFollowUp)

				r.Get("/{id}/playbook-runs", h.Playbooks.ListRuns)
				r.Get("/{id}/success-plans", h.SuccessPlans.ListPlans)
				r.Post("/{id}/success-plans", h.SuccessPlans.CreatePlan)
				r.Get("/{id}/events", h.Events.ListForAccount)
			})

			r.Route("/stages", func(r chi.Router) {
				r.Get("/", h.Stages.List)
				r.Post("/", h.Stages.Create)
				r.Get("/{id}", h.Stages.GetByID)
				r.Put("/{id}", h.Stages.Update)
				r.Delete("/{id}", h.Stages.Delete)
				r.Get("/{id}/milestones", h.Stages.ListMilestones)
				r.Post("/{id}/milestones", h.Stages.CreateMilestone)
			})

			r.Route("/milestones", func(r chi.Router) {
				r.Put("/{id}", h.Stages.UpdateMilestone)
				r.Delete("/{id}", h.Stages.DeleteMilestone)
			})

			r.Route("/weights", func(r chi.Router) {
				r.Get("/", h.Health.ListWeights)
				r.Get("/{stage}", h.Health.GetWeights)
				r.Put("/{stage}", h.Health.SetWeights)
			})

			r.Get("/journey/occupancy", h.Health.StageOccupancy)
			r.Get("/alerts", h.Alerts.List)

			r.Route("/playbooks", func(r chi.Router) {
				r.Get("/", h.Playbooks.List)
				r.Post("/", h.Playbooks.Create)
				r.Get("/{id}", h.Playbooks.GetByID)
				r.Put("/{id}", h.Playbooks.Update)
				r.Delete("/{id}", h.Playbooks.Delete)
				r.Post("/{id}/run", h.Playbooks.Run)
			})

			r.Get("/success-plans/{id}/steps", h.SuccessPlans.ListSteps)
			r.Post("/success-plans/{id}/steps", h.SuccessPlans.AddStep)
			r.Put("/success-plan-steps/{id}/status", h.SuccessPlans.UpdateStepStatus)

			r.Route("/events", func(r chi.Router) {
				r.Get("/", h.Events.ListRecent)
				r.Post("/", h.Events.Ingest)
			})

			r.Route("/integrations", func(r chi.Router) {
				r.Get("/", h.Integrations.List)
				r.Post("/", h.Integrations.Create)
				r.Get("/stats", h.Integrations.Stats)
				r.Get("/{id}", h.Integrations.GetByID)
				r.Put("/{id}", h.Integrations.Update)
				r.Delete("/{id}", h.Integrations.Delete)
				r.Post("/{id}/sync", h.Integrations.TriggerSync)
				r.Get("/{id}/sync-logs", h.Integrations.ListSyncLogs)
				r.Get("/{id}/field-mappings", h.Integrations.ListFieldMappings)
				r.Post("/{id}/field-mappings", h.Integrations.CreateFieldMapping)
				r.Delete("/{id}/field-mappings/{mappingId}", h.Integrations.DeleteFieldMapping)
			})

			r.Get("/external/{type}", h.Integrations.ExternalData)

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/summary", h.Dashboard.Summary)
				r.Get("/health-distribution", h.Dashboard.HealthDistribution)
				r.Get("/revenue-at-risk", h.Dashboard.RevenueAtRisk)
				r.Get("/portfolio-growth", h.Dashboard.PortfolioGrowth)
			})
		})
	})

	return r
}
