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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Journey entry reasons
const (
	defaultStageReason = "Stage updated"
	initialStageReason = "Initialized on account creation"
)

// JourneyService moves accounts between lifecycle stages. Each account has at
// most one open journey entry; a transition closes it and opens the next.
type JourneyService struct {
	accountRepo *repository.AccountRepository
	historyRepo *repository.JourneyHistoryRepository
	events      eventSink
	metrics     *metrics.Metrics
	logger      *zap.Logger
	db          *gorm.DB
}

// NewJourneyService creates a new JourneyService instance
func NewJourneyService(
	accountRepo *repository.AccountRepository,
	historyRepo *repository.JourneyHistoryRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	db *gorm.DB,
) *JourneyService {
	return &JourneyService{
		accountRepo: accountRepo,
		historyRepo: historyRepo,
		events:      eventSink{publisher: publisher, metrics: m, logger: logger},
		metrics:     m,
		logger:      logger,
		db:          db,
	}
}

// UpdateAccountStage transitions an account to a stage. Requesting the stage
// the account is already in changes nothing and reports Changed=false.
func (s *JourneyService) UpdateAccountStage(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, req *domain.UpdateStageRequest) (*domain.StageTransitionDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	stage := strings.TrimSpace(req.Stage)
	if stage == "" {
		return nil, ErrEmptyStage
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultStageReason
	}

	var result *domain.StageTransitionDTO
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetForUpdate(ctx, tx, tc.TenantID, accountID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to lock account: %w", err)
		}

		var err error
		result, err = s.enterStage(ctx, tx, tc, accountID, stage, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StageTransition(stage, result.Changed)
	log := logger.WithAccount(s.logger, tc, accountID.String())
	if !result.Changed {
		log.Info("stage unchanged, account already in requested stage", zap.String("stage", stage))
		return result, nil
	}

	log.Info("account stage changed",
		zap.Stringp("from_stage", result.FromStage),
		zap.String("to_stage", stage),
		zap.String("actor", tc.Actor()))

	s.events.publish(ctx, events.Event{
		Type:       events.TypeStageChanged,
		TenantID:   tc.TenantID,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC(),
		Data:       result,
	})
	return result, nil
}

// enterStage runs inside tx with the account row already locked
func (s *JourneyService) enterStage(ctx context.Context, tx *gorm.DB, tc domain.TenantContext, accountID uuid.UUID, stage, reason string) (*domain.StageTransitionDTO, error) {
	open, err := s.historyRepo.GetOpenForUpdate(ctx, tx, tc.TenantID, accountID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load current stage: %w", err)
	}

	result := &domain.StageTransitionDTO{AccountID: accountID, ToStage: stage}
	if open != nil {
		from := open.ToStage
		result.FromStage = &from
		if open.ToStage == stage {
			return result, nil
		}
	}

	now := time.Now().UTC()
	if open != nil {
		if err := s.historyRepo.Close(ctx, tx, open.ID, now); err != nil {
			return nil, fmt.Errorf("failed to close journey entry: %w", err)
		}
	}

	entry := &domain.JourneyHistoryEntry{
		TenantID:  tc.TenantID,
		AccountID: accountID,
		FromStage: result.FromStage,
		ToStage:   stage,
		EnteredAt: now,
		ChangedBy: tc.Actor(),
		Reason:    reason,
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to create journey entry: %w", err)
	}
	if err := s.accountRepo.UpdateCurrentStage(ctx, tx, accountID, stage); err != nil {
		return nil, fmt.Errorf("failed to update current stage: %w", err)
	}

	dto := mapper.ToJourneyHistoryEntryDTO(entry)
	result.Changed = true
	result.Entry = &dto
	return result, nil
}

// GetJourneyHistory returns an account's journey entries, newest first
func (s *JourneyService) GetJourneyHistory(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID) ([]domain.JourneyHistoryEntryDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.accountRepo.GetByID(ctx, tc.TenantID, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	entries, err := s.historyRepo.ListByAccount(ctx, tc.TenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list journey history: %w", err)
	}

	dtos := make([]domain.JourneyHistoryEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = mapper.ToJourneyHistoryEntryDTO(&entries[i])
	}
	return dtos, nil
}

// StageOccupancy counts open journey entries per stage
func (s *JourneyService) StageOccupancy(ctx context.Context, tc domain.TenantContext) ([]domain.StageCountDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	counts, err := s.historyRepo.CountOpenByStage(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count stage occupancy: %w", err)
	}
	return counts, nil
}
