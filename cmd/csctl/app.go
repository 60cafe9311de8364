package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/database"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/logger"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds what every command needs once configuration is resolved
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func newApp(ctx context.Context) (*app, error) {
	basic, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basic.Logging, &basic.App)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) weightService() *service.WeightService {
	return service.NewWeightService(repository.NewLifecycleStageRepository(a.db), a.cfg.Scoring, a.log)
}

// operatorContext acts as the system actor inside one tenant
func operatorContext(tenant string) (domain.TenantContext, error) {
	tenantID, err := uuid.Parse(tenant)
	if err != nil || tenantID == uuid.Nil {
		return domain.TenantContext{}, fmt.Errorf("--tenant must be a tenant UUID, got %q", tenant)
	}
	return domain.SystemContext(tenantID), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
