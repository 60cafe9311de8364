package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the primary PostgreSQL connection pool
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return db, nil
}

// HealthCheck pings the pool within the given timeout
func HealthCheck(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// HealthCheckWithStats pings the pool and returns its connection statistics
func HealthCheckWithStats(ctx context.Context, db *gorm.DB, timeout time.Duration) (sql.DBStats, error) {
	if err := HealthCheck(ctx, db, timeout); err != nil {
		return sql.DBStats{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Stats(), nil
}

// Models lists every persisted entity, in dependency order
func Models() []interface{} {
	return []interface{}{
		&domain.Account{},
		&domain.LifecycleStage{},
		&domain.HealthScoreRecord{},
		&domain.Alert{},
		&domain.JourneyHistoryEntry{},
		&domain.SentimentAnalysis{},
		&domain.Playbook{},
		&domain.PlaybookRun{},
		&domain.CDIEvent{},
		&domain.IntegrationSource{},
		&domain.IntegrationSyncLog{},
		&domain.ExternalContact{},
		&domain.ExternalTicket{},
		&domain.ExternalDeal{},
		&domain.IntegrationSyncedRecord{},
		&domain.StageMilestone{},
		&domain.SuccessPlan{},
		&domain.SuccessPlanStep{},
		&domain.IntegrationFieldMapping{},
	}
}

// AutoMigrate runs automatic migrations (development and tests only; production uses goose)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
