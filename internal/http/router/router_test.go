package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/http/handler"
	"github.com/straye-as/success-api/internal/http/middleware"
	"github.com/straye-as/success-api/internal/http/router"
	"github.com/straye-as/success-api/internal/metrics"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/sentiment"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const serviceKey = "service-key-for-tests"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	db := testutil.SetupTestDB(t)
	log := zap.NewNop()
	m := metrics.New()

	cfg := &config.Config{
		App:          config.AppConfig{Name: "success-api", Environment: "development"},
		Auth:         config.AuthConfig{JWTSecret: "router-test-secret", ServiceAPIKey: serviceKey, TokenTTL: 60},
		Scoring:      config.ScoringConfig{DefaultStage: domain.StageOnboarding},
		Integrations: config.IntegrationsConfig{MaxBatchSize: 10, OutboundTimeout: 1, WebhookAPIKey: "webhook-key"},
		Server:       config.ServerConfig{EnableMetrics: true},
	}

	accountRepo := repository.NewAccountRepository(db)
	stageRepo := repository.NewLifecycleStageRepository(db)
	scoreRepo := repository.NewHealthScoreRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	historyRepo := repository.NewJourneyHistoryRepository(db)
	sentimentRepo := repository.NewSentimentRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)

	weights := service.NewWeightService(stageRepo, cfg.Scoring, log)
	alerts := service.NewAlertService(alertRepo, nil, m, log)
	journey := service.NewJourneyService(accountRepo, historyRepo, nil, m, log, db)
	health := service.NewHealthScoreService(accountRepo, scoreRepo, weights, alerts, nil, m, log, db)

	handlers := router.Handlers{
		Accounts: handler.NewAccountHandler(service.NewAccountService(accountRepo, scoreRepo, alertRepo, journey, log, db), log),
		Health:   handler.NewHealthHandler(health, journey, weights, log),
		Stages:   handler.NewStageHandler(service.NewLifecycleStageService(stageRepo, repository.NewStageMilestoneRepository(db), accountRepo, cfg.Scoring, log), log),
		Sentiment: handler.NewSentimentHandler(
			service.NewSentimentService(accountRepo, sentimentRepo, sentiment.Unavailable{}, alerts, m, log, db),
			service.NewFollowUpService(accountRepo, scoreRepo, alertRepo, repository.NewExternalRecordRepository(db), nil, log),
			log,
		),
		Alerts:       handler.NewAlertHandler(alerts, log),
		Playbooks:    handler.NewPlaybookHandler(service.NewPlaybookService(repository.NewPlaybookRepository(db), accountRepo, log), log),
		SuccessPlans: handler.NewSuccessPlanHandler(service.NewSuccessPlanService(repository.NewSuccessPlanRepository(db), accountRepo, log), log),
		Events:       handler.NewEventHandler(service.NewCDIService(repository.NewCDIEventRepository(db), accountRepo, log), log),
		Integrations: handler.NewIntegrationHandler(
			service.NewIntegrationService(integrationRepo, repository.NewExternalRecordRepository(db), cfg.Integrations, nil, m, log),
			service.NewWebhookService(integrationRepo, repository.NewExternalRecordRepository(db), accountRepo, nil, cfg.Integrations, m, log, db),
			log,
		),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(repository.NewDashboardRepository(db), alertRepo, historyRepo, sentimentRepo, log), log),
	}

	rt := router.NewRouter(cfg, log, db, m,
		auth.NewMiddleware(cfg, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		middleware.NewAuditMiddleware(nil, log),
		handlers,
	)
	return rt.Setup()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthEndpoints(t *testing.T) {
	h := newTestServer(t)

	t.Run("liveness", func(t *testing.T) {
		w := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("database readiness", func(t *testing.T) {
		w := do(h, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
	})
}

func TestRouter_Authentication(t *testing.T) {
	h := newTestServer(t)
	tenant := uuid.New()

	t.Run("missing credentials", func(t *testing.T) {
		w := do(h, httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong service key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set(auth.APIKeyHeader, "nope")
		req.Header.Set(auth.TenantIDHeader, tenant.String())
		assert.Equal(t, http.StatusUnauthorized, do(h, req).Code)
	})

	t.Run("service key needs a tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set(auth.APIKeyHeader, serviceKey)
		assert.Equal(t, http.StatusUnauthorized, do(h, req).Code)
	})

	t.Run("service key with tenant creates and reads", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(`{"name":"Acme"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(auth.APIKeyHeader, serviceKey)
		req.Header.Set(auth.TenantIDHeader, tenant.String())
		w := do(h, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		req = httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil)
		req.Header.Set(auth.APIKeyHeader, serviceKey)
		req.Header.Set(auth.TenantIDHeader, tenant.String())
		assert.Equal(t, http.StatusOK, do(h, req).Code)
	})

	t.Run("webhooks bypass user authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/integrations/"+uuid.NewString(),
			strings.NewReader(`{"data_type":"contacts","records":[{"external_id":"1"}]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(auth.APIKeyHeader, "webhook-key")

		assert.Equal(t, http.StatusNotFound, do(h, req).Code)
	})
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestServer(t)

	do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	w := do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success_api_http_requests_total")
}
