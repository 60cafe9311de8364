package service_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/events"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/sentiment"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/storage"
	"github.com/straye-as/success-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, evt := range p.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// fixedAnalyzer returns a preset verdict, or err when set
type fixedAnalyzer struct {
	result *sentiment.Result
	err    error
	calls  int
}

func (a *fixedAnalyzer) Analyze(ctx context.Context, text string) (*sentiment.Result, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	r := *a.result
	return &r, nil
}

type stubDrafter struct {
	body    string
	err     error
	details map[string]interface{}
}

func (d *stubDrafter) DraftFollowUp(ctx context.Context, details map[string]interface{}) (string, error) {
	d.details = details
	if d.err != nil {
		return "", d.err
	}
	return d.body, nil
}

var errProviderDown = errors.New("provider down")

// testEnv wires every service against one in-memory database
type testEnv struct {
	db        *gorm.DB
	publisher *recordingPublisher
	analyzer  *fixedAnalyzer
	drafter   *stubDrafter

	accounts     *service.AccountService
	stages       *service.LifecycleStageService
	weights      *service.WeightService
	alerts       *service.AlertService
	health       *service.HealthScoreService
	journey      *service.JourneyService
	sentiment    *service.SentimentService
	playbooks    *service.PlaybookService
	cdi          *service.CDIService
	integrations *service.IntegrationService
	webhooks     *service.WebhookService
	dashboard    *service.DashboardService
	followUps    *service.FollowUpService
	plans        *service.SuccessPlanService
}

type envOption func(*envConfig)

type envConfig struct {
	scoring      config.ScoringConfig
	integrations config.IntegrationsConfig
	client       service.HTTPDoer
	archive      *storage.WebhookArchive
}

func withStrictWeights() envOption {
	return func(c *envConfig) { c.scoring.EnforceWeightSum = true }
}

func withHTTPClient(client service.HTTPDoer) envOption {
	return func(c *envConfig) { c.client = client }
}

func withWebhookKey(key string) envOption {
	return func(c *envConfig) { c.integrations.WebhookAPIKey = key }
}

func withArchive(archive *storage.WebhookArchive) envOption {
	return func(c *envConfig) {
		c.archive = archive
		c.integrations.ArchiveEnabled = true
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := &envConfig{
		scoring:      config.ScoringConfig{DefaultStage: domain.StageOnboarding},
		integrations: config.IntegrationsConfig{MaxBatchSize: 1000, OutboundTimeout: 5},
		client:       &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	publisher := &recordingPublisher{}
	analyzer := &fixedAnalyzer{result: &sentiment.Result{Score: 0}}
	drafter := &stubDrafter{body: "Hi there"}

	accountRepo := repository.NewAccountRepository(db)
	stageRepo := repository.NewLifecycleStageRepository(db)
	milestoneRepo := repository.NewStageMilestoneRepository(db)
	scoreRepo := repository.NewHealthScoreRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	historyRepo := repository.NewJourneyHistoryRepository(db)
	sentimentRepo := repository.NewSentimentRepository(db)
	playbookRepo := repository.NewPlaybookRepository(db)
	eventRepo := repository.NewCDIEventRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	recordRepo := repository.NewExternalRecordRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	weights := service.NewWeightService(stageRepo, cfg.scoring, logger)
	alerts := service.NewAlertService(alertRepo, publisher, nil, logger)
	journey := service.NewJourneyService(accountRepo, historyRepo, publisher, nil, logger, db)

	return &testEnv{
		db:        db,
		publisher: publisher,
		analyzer:  analyzer,
		drafter:   drafter,

		accounts:     service.NewAccountService(accountRepo, scoreRepo, alertRepo, journey, logger, db),
		stages:       service.NewLifecycleStageService(stageRepo, milestoneRepo, accountRepo, cfg.scoring, logger),
		weights:      weights,
		alerts:       alerts,
		health:       service.NewHealthScoreService(accountRepo, scoreRepo, weights, alerts, publisher, nil, logger, db),
		journey:      journey,
		sentiment:    service.NewSentimentService(accountRepo, sentimentRepo, analyzer, alerts, nil, logger, db),
		playbooks:    service.NewPlaybookService(playbookRepo, accountRepo, logger),
		cdi:          service.NewCDIService(eventRepo, accountRepo, logger),
		integrations: service.NewIntegrationService(integrationRepo, recordRepo, cfg.integrations, cfg.client, nil, logger),
		webhooks:     service.NewWebhookService(integrationRepo, recordRepo, accountRepo, cfg.archive, cfg.integrations, nil, logger, db),
		dashboard:    service.NewDashboardService(dashboardRepo, alertRepo, historyRepo, sentimentRepo, logger),
		followUps:    service.NewFollowUpService(accountRepo, scoreRepo, alertRepo, recordRepo, drafter, logger),
		plans:        service.NewSuccessPlanService(repository.NewSuccessPlanRepository(db), accountRepo, logger),
	}
}

// scoreRequest builds a request over a one-week window ending now
func scoreRequest(stage string, usage, breadth, depth float64) *domain.RecordHealthScoreRequest {
	end := time.Now().UTC()
	return &domain.RecordHealthScoreRequest{
		Stage: stage,
		Metrics: map[string]float64{
			"usage_frequency": usage,
			"breadth":         breadth,
			"depth":           depth,
		},
		WindowStart: end.Add(-7 * 24 * time.Hour),
		WindowEnd:   end,
	}
}

func strPtr(s string) *string { return &s }
