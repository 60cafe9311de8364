package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/scoring"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WeightService manages the per-stage component weights used for scoring
type WeightService struct {
	stageRepo *repository.LifecycleStageRepository
	cfg       config.ScoringConfig
	logger    *zap.Logger
}

// NewWeightService creates a new WeightService instance
func NewWeightService(stageRepo *repository.LifecycleStageRepository, cfg config.ScoringConfig, logger *zap.Logger) *WeightService {
	return &WeightService{
		stageRepo: stageRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// SetWeights stores the weights of a stage, overwriting any previous set
func (s *WeightService) SetWeights(ctx context.Context, tc domain.TenantContext, stage string, weights map[string]float64) (*domain.StageWeightsDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return nil, ErrEmptyStage
	}
	if err := scoring.ValidateWeights(weights, s.cfg.EnforceWeightSum); err != nil {
		return nil, invalidInput(err)
	}

	encoded, err := mapper.EncodeJSON(weights)
	if err != nil {
		return nil, fmt.Errorf("failed to encode weights: %w", err)
	}

	stored, err := s.stageRepo.UpsertWeights(ctx, tc.TenantID, stage, encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to store weights: %w", err)
	}

	s.logger.Info("stage weights updated",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("stage", stage),
		zap.String("actor", tc.Actor()))

	return &domain.StageWeightsDTO{
		Stage:   stored.Name,
		Weights: mapper.DecodeWeights(stored.Weights),
	}, nil
}

// GetWeights returns the stored weights of a stage, or the defaults when none are stored
func (s *WeightService) GetWeights(ctx context.Context, tc domain.TenantContext, stage string) (*domain.StageWeightsDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return nil, ErrEmptyStage
	}

	weights, isDefault, err := s.resolve(ctx, tc.TenantID, stage)
	if err != nil {
		return nil, err
	}
	return &domain.StageWeightsDTO{Stage: stage, Weights: weights, IsDefault: isDefault}, nil
}

// ListWeights returns the weights of every stage the tenant has defined
func (s *WeightService) ListWeights(ctx context.Context, tc domain.TenantContext) ([]domain.StageWeightsDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	stages, err := s.stageRepo.List(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	dtos := make([]domain.StageWeightsDTO, 0, len(stages))
	for i := range stages {
		weights := mapper.DecodeWeights(stages[i].Weights)
		isDefault := len(weights) == 0
		if isDefault {
			weights = scoring.DefaultWeights()
		}
		dtos = append(dtos, domain.StageWeightsDTO{
			Stage:     stages[i].Name,
			Weights:   weights,
			IsDefault: isDefault,
		})
	}
	return dtos, nil
}

// resolve never fails for a missing stage; it falls back to the defaults
func (s *WeightService) resolve(ctx context.Context, tenantID uuid.UUID, stage string) (scoring.Weights, bool, error) {
	row, err := s.stageRepo.GetByName(ctx, tenantID, stage)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scoring.DefaultWeights(), true, nil
		}
		return nil, false, fmt.Errorf("failed to load weights: %w", err)
	}

	weights := mapper.DecodeWeights(row.Weights)
	if len(weights) == 0 {
		return scoring.DefaultWeights(), true, nil
	}
	return scoring.Weights(weights), false, nil
}
