package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/http/handler"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/sentiment"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testWebhookKey = "global-webhook-key"

type fixedAnalyzer struct {
	score float64
}

func (a fixedAnalyzer) Analyze(ctx context.Context, text string) (*sentiment.Result, error) {
	return &sentiment.Result{Score: a.score}, nil
}

// handlerEnv holds handlers wired to real services over an in-memory database
type handlerEnv struct {
	db     *gorm.DB
	tenant domain.TenantContext

	accounts     *handler.AccountHandler
	health       *handler.HealthHandler
	stages       *handler.StageHandler
	sentiment    *handler.SentimentHandler
	alerts       *handler.AlertHandler
	events       *handler.EventHandler
	plans        *handler.SuccessPlanHandler
	integrations *handler.IntegrationHandler
	dashboard    *handler.DashboardHandler
}

func newHandlerEnv(t *testing.T, analyzer sentiment.Analyzer, drafter sentiment.Drafter) *handlerEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	scoringCfg := config.ScoringConfig{DefaultStage: domain.StageOnboarding}
	integrationsCfg := config.IntegrationsConfig{MaxBatchSize: 100, OutboundTimeout: 5, WebhookAPIKey: testWebhookKey}

	accountRepo := repository.NewAccountRepository(db)
	stageRepo := repository.NewLifecycleStageRepository(db)
	scoreRepo := repository.NewHealthScoreRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	historyRepo := repository.NewJourneyHistoryRepository(db)
	sentimentRepo := repository.NewSentimentRepository(db)
	eventRepo := repository.NewCDIEventRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	recordRepo := repository.NewExternalRecordRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	weights := service.NewWeightService(stageRepo, scoringCfg, logger)
	alerts := service.NewAlertService(alertRepo, nil, nil, logger)
	journey := service.NewJourneyService(accountRepo, historyRepo, nil, nil, logger, db)
	health := service.NewHealthScoreService(accountRepo, scoreRepo, weights, alerts, nil, nil, logger, db)
	sentimentSvc := service.NewSentimentService(accountRepo, sentimentRepo, analyzer, alerts, nil, logger, db)
	followUps := service.NewFollowUpService(accountRepo, scoreRepo, alertRepo, recordRepo, drafter, logger)
	integrations := service.NewIntegrationService(integrationRepo, recordRepo, integrationsCfg, &http.Client{Timeout: time.Second}, nil, logger)
	webhooks := service.NewWebhookService(integrationRepo, recordRepo, accountRepo, nil, integrationsCfg, nil, logger, db)

	return &handlerEnv{
		db:     db,
		tenant: testutil.NewTenant(),

		accounts:     handler.NewAccountHandler(service.NewAccountService(accountRepo, scoreRepo, alertRepo, journey, logger, db), logger),
		health:       handler.NewHealthHandler(health, journey, weights, logger),
		stages:       handler.NewStageHandler(service.NewLifecycleStageService(stageRepo, repository.NewStageMilestoneRepository(db), accountRepo, scoringCfg, logger), logger),
		sentiment:    handler.NewSentimentHandler(sentimentSvc, followUps, logger),
		alerts:       handler.NewAlertHandler(alerts, logger),
		events:       handler.NewEventHandler(service.NewCDIService(eventRepo, accountRepo, logger), logger),
		plans:        handler.NewSuccessPlanHandler(service.NewSuccessPlanService(repository.NewSuccessPlanRepository(db), accountRepo, logger), logger),
		integrations: handler.NewIntegrationHandler(integrations, webhooks, logger),
		dashboard:    handler.NewDashboardHandler(service.NewDashboardService(dashboardRepo, alertRepo, historyRepo, sentimentRepo, logger), logger),
	}
}

// principalContext returns a request context authenticated as tc
func principalContext(tc domain.TenantContext) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{
		TenantID: tc.TenantID,
		UserID:   tc.UserID,
		Email:    "csm@example.com",
		AuthType: auth.AuthTypeJWT,
	})
}

func (e *handlerEnv) ctx() context.Context {
	return principalContext(e.tenant)
}

// newRequest builds an authenticated request; body is JSON encoded unless it is already bytes
func (e *handlerEnv) newRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	return requestWithContext(t, e.ctx(), method, target, body)
}

func requestWithContext(t *testing.T, ctx context.Context, method, target string, body interface{}) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(ctx)
}

// withURLParams attaches chi route parameters to the request
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func withID(req *http.Request, id uuid.UUID) *http.Request {
	return withURLParams(req, map[string]string{"id": id.String()})
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}
