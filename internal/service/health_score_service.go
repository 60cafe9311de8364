package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/events"
	"github.com/straye-as/success-api/internal/logger"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/metrics"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/scoring"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthScoreService computes and records account health snapshots
type HealthScoreService struct {
	accountRepo *repository.AccountRepository
	scoreRepo   *repository.HealthScoreRepository
	weights     *WeightService
	alerts      *AlertService
	events      eventSink
	metrics     *metrics.Metrics
	logger      *zap.Logger
	db          *gorm.DB
}

// NewHealthScoreService creates a new HealthScoreService instance
func NewHealthScoreService(
	accountRepo *repository.AccountRepository,
	scoreRepo *repository.HealthScoreRepository,
	weights *WeightService,
	alerts *AlertService,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	db *gorm.DB,
) *HealthScoreService {
	return &HealthScoreService{
		accountRepo: accountRepo,
		scoreRepo:   scoreRepo,
		weights:     weights,
		alerts:      alerts,
		events:      eventSink{publisher: publisher, metrics: m, logger: logger},
		metrics:     m,
		logger:      logger,
		db:          db,
	}
}

// RecordHealthScore scores the metrics with the stage weights and appends a
// snapshot. A drop of more than 0.1 against the previous snapshot raises a
// health_dip alert in the same transaction.
func (s *HealthScoreService) RecordHealthScore(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, req *domain.RecordHealthScoreRequest) (*domain.HealthScoreResultDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	stage := strings.TrimSpace(req.Stage)
	if stage == "" {
		return nil, ErrEmptyStage
	}
	if !req.WindowStart.Before(req.WindowEnd) {
		return nil, ErrInvalidWindow
	}
	if err := scoring.ValidateMetrics(req.Metrics); err != nil {
		return nil, invalidInput(err)
	}

	weights, _, err := s.weights.resolve(ctx, tc.TenantID, stage)
	if err != nil {
		return nil, err
	}
	score := scoring.Calculate(req.Metrics, weights)

	encodedMetrics, err := mapper.EncodeJSON(req.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}

	var record *domain.HealthScoreRecord
	var alert *domain.Alert

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetForUpdate(ctx, tx, tc.TenantID, accountID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to lock account: %w", err)
		}

		var previous *float64
		latest, err := s.scoreRepo.GetLatest(ctx, tx, tc.TenantID, accountID)
		switch {
		case err == nil:
			previous = &latest.Score
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to load previous score: %w", err)
		}
		trend := scoring.Trend(score, previous)

		now := time.Now().UTC()
		record = &domain.HealthScoreRecord{
			TenantID:     tc.TenantID,
			AccountID:    accountID,
			Stage:        stage,
			Score:        score,
			Metrics:      encodedMetrics,
			WindowStart:  req.WindowStart.UTC(),
			WindowEnd:    req.WindowEnd.UTC(),
			Trend:        trend,
			Notes:        req.Notes,
			CalculatedAt: now,
		}
		record.CreatedAt = now
		if err := s.scoreRepo.Create(ctx, tx, record); err != nil {
			return fmt.Errorf("failed to create health score: %w", err)
		}

		if scoring.IsDip(trend) {
			alert, err = s.alerts.raise(ctx, tx, tc, accountID,
				domain.AlertTypeHealthDip, domain.AlertSeverityWarning, healthDipMessage,
				map[string]interface{}{
					"stage": stage,
					"score": score,
					"trend": *trend,
				})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.HealthScoreRecorded(stage, score)
	s.alerts.raised(ctx, alert)
	s.events.publish(ctx, events.Event{
		Type:       events.TypeHealthRecorded,
		TenantID:   tc.TenantID,
		AccountID:  accountID,
		OccurredAt: record.CalculatedAt,
		Data:       mapper.ToHealthScoreDTO(record),
	})

	logger.WithAccount(s.logger, tc, accountID.String()).Debug("health score recorded",
		zap.String("stage", stage),
		zap.Float64("score", score))

	result := &domain.HealthScoreResultDTO{
		ID:       record.ID,
		Score:    score,
		Trend:    record.Trend,
		Category: string(scoring.Category(score)),
	}
	if alert != nil {
		result.AlertID = &alert.ID
	}
	return result, nil
}

// ListHealthScores returns an account's snapshots, newest first
func (s *HealthScoreService) ListHealthScores(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, limit int) ([]domain.HealthScoreDTO, error) {
	if err := s.requireAccount(ctx, tc, accountID); err != nil {
		return nil, err
	}

	records, err := s.scoreRepo.ListByAccount(ctx, tc.TenantID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list health scores: %w", err)
	}

	dtos := make([]domain.HealthScoreDTO, len(records))
	for i := range records {
		dtos[i] = mapper.ToHealthScoreDTO(&records[i])
	}
	return dtos, nil
}

// LatestHealthScore returns the newest snapshot, or nil when the account was never scored
func (s *HealthScoreService) LatestHealthScore(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID) (*domain.HealthScoreDTO, error) {
	if err := s.requireAccount(ctx, tc, accountID); err != nil {
		return nil, err
	}

	record, err := s.scoreRepo.GetLatest(ctx, nil, tc.TenantID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest health score: %w", err)
	}
	dto := mapper.ToHealthScoreDTO(record)
	return &dto, nil
}

func (s *HealthScoreService) requireAccount(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return invalidInput(err)
	}
	if _, err := s.accountRepo.GetByID(ctx, tc.TenantID, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}
	return nil
}
