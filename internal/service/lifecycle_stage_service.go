package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/scoring"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LifecycleStageService manages the tenant's journey stage catalog
type LifecycleStageService struct {
	stageRepo     *repository.LifecycleStageRepository
	milestoneRepo *repository.StageMilestoneRepository
	accountRepo   *repository.AccountRepository
	cfg           config.ScoringConfig
	logger        *zap.Logger
}

// NewLifecycleStageService creates a new LifecycleStageService instance
func NewLifecycleStageService(
	stageRepo *repository.LifecycleStageRepository,
	milestoneRepo *repository.StageMilestoneRepository,
	accountRepo *repository.AccountRepository,
	cfg config.ScoringConfig,
	logger *zap.Logger,
) *LifecycleStageService {
	return &LifecycleStageService{
		stageRepo:     stageRepo,
		milestoneRepo: milestoneRepo,
		accountRepo:   accountRepo,
		cfg:           cfg,
		logger:        logger,
	}
}

// Create adds a stage. Names are unique per tenant.
func (s *LifecycleStageService) Create(ctx context.Context, tc domain.TenantContext, req *domain.CreateLifecycleStageRequest) (*domain.LifecycleStageDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyStage
	}

	weightsJSON := "{}"
	if len(req.Weights) > 0 {
		if err := scoring.ValidateWeights(req.Weights, s.cfg.EnforceWeightSum); err != nil {
			return nil, invalidInput(err)
		}
		encoded, err := mapper.EncodeJSON(req.Weights)
		if err != nil {
			return nil, fmt.Errorf("failed to encode weights: %w", err)
		}
		weightsJSON = encoded
	}

	exists, err := s.stageRepo.NameExists(ctx, tc.TenantID, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check stage name: %w", err)
	}
	if exists {
		return nil, ErrStageNameExists
	}

	now := time.Now().UTC()
	stage := &domain.LifecycleStage{
		TenantID:    tc.TenantID,
		Name:        name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    true,
		Weights:     weightsJSON,
	}
	stage.CreatedAt = now
	stage.UpdatedAt = now

	if err := s.stageRepo.Create(ctx, stage); err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}

	dto := mapper.ToLifecycleStageDTO(stage)
	return &dto, nil
}

// GetByID returns a single stage
func (s *LifecycleStageService) GetByID(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.LifecycleStageDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	stage, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToLifecycleStageDTO(stage)
	return &dto, nil
}

// Update changes a stage definition. Weights are managed through WeightService.
func (s *LifecycleStageService) Update(ctx context.Context, tc domain.TenantContext, id uuid.UUID, req *domain.UpdateLifecycleStageRequest) (*domain.LifecycleStageDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyStage
	}

	stage, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	if name != stage.Name {
		exists, err := s.stageRepo.NameExists(ctx, tc.TenantID, name, &id)
		if err != nil {
			return nil, fmt.Errorf("failed to check stage name: %w", err)
		}
		if exists {
			return nil, ErrStageNameExists
		}
		// Renaming would orphan accounts that reference the old name
		inUse, err := s.accountRepo.CountInStage(ctx, tc.TenantID, stage.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to count accounts in stage: %w", err)
		}
		if inUse > 0 {
			return nil, ErrStageInUse
		}
	}

	stage.Name = name
	stage.Description = req.Description
	stage.SortOrder = req.SortOrder
	if req.IsActive != nil {
		stage.IsActive = *req.IsActive
	}
	stage.UpdatedAt = time.Now().UTC()

	if err := s.stageRepo.Update(ctx, stage); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	dto := mapper.ToLifecycleStageDTO(stage)
	return &dto, nil
}

// Delete removes a stage no account currently sits in, with its milestones
func (s *LifecycleStageService) Delete(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return invalidInput(err)
	}
	stage, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return err
	}

	inUse, err := s.accountRepo.CountInStage(ctx, tc.TenantID, stage.Name)
	if err != nil {
		return fmt.Errorf("failed to count accounts in stage: %w", err)
	}
	if inUse > 0 {
		return ErrStageInUse
	}

	if err := s.stageRepo.Delete(ctx, tc.TenantID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStageNotFound
		}
		return fmt.Errorf("failed to delete stage: %w", err)
	}
	if err := s.milestoneRepo.DeleteByStage(ctx, tc.TenantID, id); err != nil {
		return fmt.Errorf("failed to delete stage milestones: %w", err)
	}

	s.logger.Info("lifecycle stage deleted",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("stage", stage.Name),
		zap.String("actor", tc.Actor()))
	return nil
}

// List returns the catalog ordered by sort order, then name
func (s *LifecycleStageService) List(ctx context.Context, tc domain.TenantContext) ([]domain.LifecycleStageDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	stages, err := s.stageRepo.List(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	dtos := make([]domain.LifecycleStageDTO, len(stages))
	for i := range stages {
		dtos[i] = mapper.ToLifecycleStageDTO(&stages[i])
	}
	return dtos, nil
}

// CreateMilestone adds a milestone to a stage
func (s *LifecycleStageService) CreateMilestone(ctx context.Context, tc domain.TenantContext, stageID uuid.UUID, req *domain.CreateMilestoneRequest) (*domain.StageMilestoneDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := s.get(ctx, tc.TenantID, stageID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	milestone := &domain.StageMilestone{
		TenantID:    tc.TenantID,
		StageID:     stageID,
		Name:        name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	milestone.CreatedAt = now
	milestone.UpdatedAt = now

	if err := s.milestoneRepo.Create(ctx, milestone); err != nil {
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}

	dto := mapper.ToStageMilestoneDTO(milestone)
	return &dto, nil
}

// ListMilestones returns a stage's milestones in order
func (s *LifecycleStageService) ListMilestones(ctx context.Context, tc domain.TenantContext, stageID uuid.UUID) ([]domain.StageMilestoneDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.get(ctx, tc.TenantID, stageID); err != nil {
		return nil, err
	}

	milestones, err := s.milestoneRepo.ListByStage(ctx, tc.TenantID, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	dtos := make([]domain.StageMilestoneDTO, len(milestones))
	for i := range milestones {
		dtos[i] = mapper.ToStageMilestoneDTO(&milestones[i])
	}
	return dtos, nil
}

// UpdateMilestone applies the fields set on req and leaves the rest
func (s *LifecycleStageService) UpdateMilestone(ctx context.Context, tc domain.TenantContext, id uuid.UUID, req *domain.UpdateMilestoneRequest) (*domain.StageMilestoneDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	milestone, err := s.getMilestone(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		milestone.Name = name
	}
	if req.Description != nil {
		milestone.Description = *req.Description
	}
	if req.SortOrder != nil {
		milestone.SortOrder = *req.SortOrder
	}
	milestone.UpdatedAt = time.Now().UTC()

	if err := s.milestoneRepo.Update(ctx, milestone); err != nil {
		return nil, fmt.Errorf("failed to update milestone: %w", err)
	}

	dto := mapper.ToStageMilestoneDTO(milestone)
	return &dto, nil
}

// DeleteMilestone removes one milestone
func (s *LifecycleStageService) DeleteMilestone(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return invalidInput(err)
	}
	if err := s.milestoneRepo.Delete(ctx, tc.TenantID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMilestoneNotFound
		}
		return fmt.Errorf("failed to delete milestone: %w", err)
	}
	return nil
}

func (s *LifecycleStageService) getMilestone(ctx context.Context, tenantID, id uuid.UUID) (*domain.StageMilestone, error) {
	milestone, err := s.milestoneRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("failed to get milestone: %w", err)
	}
	return milestone, nil
}

func (s *LifecycleStageService) get(ctx context.Context, tenantID, id uuid.UUID) (*domain.LifecycleStage, error) {
	stage, err := s.stageRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	return stage, nil
}
