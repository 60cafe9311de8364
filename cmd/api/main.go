package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/success-api/docs"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/database"
	"github.com/straye-as/success-api/internal/datawarehouse"
	"github.com/straye-as/success-api/internal/events"
	"github.com/straye-as/success-api/internal/http/handler"
	"github.com/straye-as/success-api/internal/http/middleware"
	"github.com/straye-as/success-api/internal/http/router"
	"github.com/straye-as/success-api/internal/jobs"
	"github.com/straye-as/success-api/internal/logger"
	"github.com/straye-as/success-api/internal/metrics"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/sentiment"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/storage"
	"go.uber.org/zap"
)

// @title Straye Success API
// @version 1.0
// @description Multi-tenant customer success engine: account hierarchy, health scoring, lifecycle journeys, sentiment and integrations
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token carrying the tenant claim

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Api-Key
// @description Service key, sent together with X-Tenant-ID
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In staging/production secrets may come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m := metrics.New()

	publisher, err := events.New(&cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}

	var archive *storage.WebhookArchive
	if cfg.Integrations.ArchiveEnabled {
		store, err := storage.NewStorage(ctx, &cfg.Storage, log)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		archive = storage.NewWebhookArchive(store, cfg.Storage.Prefix)
		log.Info("Webhook archive enabled", zap.String("mode", cfg.Storage.Mode))
	}

	var analyzer sentiment.Analyzer = sentiment.Unavailable{}
	var drafter sentiment.Drafter = sentiment.Unavailable{}
	if cfg.Sentiment.Enabled {
		client, err := sentiment.NewOpenAIClient(&cfg.Sentiment, log)
		if err != nil {
			log.Warn("Sentiment provider not configured, analysis will be unavailable", zap.Error(err))
		} else {
			analyzer, drafter = client, client
		}
	}

	// The warehouse is optional; without it the scheduled recompute is skipped
	dwClient, err := datawarehouse.NewClient(&cfg.DataWarehouse, log)
	if err != nil {
		log.Warn("Data warehouse connection failed, continuing without it", zap.Error(err))
		dwClient = nil
	}

	accountRepo := repository.NewAccountRepository(db)
	stageRepo := repository.NewLifecycleStageRepository(db)
	milestoneRepo := repository.NewStageMilestoneRepository(db)
	scoreRepo := repository.NewHealthScoreRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	historyRepo := repository.NewJourneyHistoryRepository(db)
	sentimentRepo := repository.NewSentimentRepository(db)
	playbookRepo := repository.NewPlaybookRepository(db)
	planRepo := repository.NewSuccessPlanRepository(db)
	eventRepo := repository.NewCDIEventRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	recordRepo := repository.NewExternalRecordRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	weightService := service.NewWeightService(stageRepo, cfg.Scoring, log)
	alertService := service.NewAlertService(alertRepo, publisher, m, log)
	journeyService := service.NewJourneyService(accountRepo, historyRepo, publisher, m, log, db)
	healthService := service.NewHealthScoreService(accountRepo, scoreRepo, weightService, alertService, publisher, m, log, db)
	accountService := service.NewAccountService(accountRepo, scoreRepo, alertRepo, journeyService, log, db)
	stageService := service.NewLifecycleStageService(stageRepo, milestoneRepo, accountRepo, cfg.Scoring, log)
	sentimentService := service.NewSentimentService(accountRepo, sentimentRepo, analyzer, alertService, m, log, db)
	followUpService := service.NewFollowUpService(accountRepo, scoreRepo, alertRepo, recordRepo, drafter, log)
	playbookService := service.NewPlaybookService(playbookRepo, accountRepo, log)
	planService := service.NewSuccessPlanService(planRepo, accountRepo, log)
	cdiService := service.NewCDIService(eventRepo, accountRepo, log)
	integrationService := service.NewIntegrationService(integrationRepo, recordRepo, cfg.Integrations, nil, m, log)
	webhookService := service.NewWebhookService(integrationRepo, recordRepo, accountRepo, archive, cfg.Integrations, m, log, db)
	dashboardService := service.NewDashboardService(dashboardRepo, alertRepo, historyRepo, sentimentRepo, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		m,
		auth.NewMiddleware(cfg, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		middleware.NewAuditMiddleware(nil, log),
		router.Handlers{
			Accounts:     handler.NewAccountHandler(accountService, log),
			Health:       handler.NewHealthHandler(healthService, journeyService, weightService, log),
			Stages:       handler.NewStageHandler(stageService, log),
			Sentiment:    handler.NewSentimentHandler(sentimentService, followUpService, log),
			Alerts:       handler.NewAlertHandler(alertService, log),
			Playbooks:    handler.NewPlaybookHandler(playbookService, log),
			SuccessPlans: handler.NewSuccessPlanHandler(planService, log),
			Events:       handler.NewEventHandler(cdiService, log),
			Integrations: handler.NewIntegrationHandler(integrationService, webhookService, log),
			Dashboard:    handler.NewDashboardHandler(dashboardService, log),
		},
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(m, log)

		if dwClient != nil {
			recompute := jobs.NewHealthRecomputeJob(
				accountRepo,
				dwClient,
				healthService,
				cfg.Scoring.DefaultStage,
				time.Duration(cfg.DataWarehouse.UsageWindowDays)*24*time.Hour,
				log,
			)
			if err := jobs.RegisterHealthRecomputeJob(scheduler, recompute,
				cfg.Jobs.HealthRecomputeSchedule,
				time.Duration(cfg.Jobs.HealthRecomputeTimeout)*time.Second,
			); err != nil {
				return fmt.Errorf("failed to register health recompute job: %w", err)
			}
		} else {
			log.Info("Data warehouse not available, health recompute job not scheduled")
		}

		syncJob := jobs.NewIntegrationSyncJob(integrationService, log)
		if err := jobs.RegisterIntegrationSyncJob(scheduler, syncJob,
			cfg.Jobs.IntegrationSyncSchedule,
			time.Duration(cfg.Jobs.IntegrationSyncTimeout)*time.Second,
		); err != nil {
			return fmt.Errorf("failed to register integration sync job: %w", err)
		}

		scheduler.Start()
		log.Info("Scheduler started", zap.Strings("jobs", scheduler.GetJobNames()))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}
	}

	if err := publisher.Close(); err != nil {
		log.Warn("Error closing event publisher", zap.Error(err))
	}
	if dwClient != nil {
		if err := dwClient.Close(); err != nil {
			log.Warn("Error closing data warehouse connection", zap.Error(err))
		}
	}

	log.Info("Server stopped gracefully")
	return nil
}
