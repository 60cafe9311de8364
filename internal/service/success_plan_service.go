package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SuccessPlanService manages per-account success plans and their steps
type SuccessPlanService struct {
	planRepo    *repository.SuccessPlanRepository
	accountRepo *repository.AccountRepository
	logger      *zap.Logger
}

// NewSuccessPlanService creates a new SuccessPlanService instance
func NewSuccessPlanService(planRepo *repository.SuccessPlanRepository, accountRepo *repository.AccountRepository, logger *zap.Logger) *SuccessPlanService {
	return &SuccessPlanService{
		planRepo:    planRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// CreatePlan opens a plan for an existing account
func (s *SuccessPlanService) CreatePlan(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, req *domain.CreateSuccessPlanRequest) (*domain.SuccessPlanDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := s.requireAccount(ctx, tc.TenantID, accountID); err != nil {
		return nil, err
	}

	attributes, err := mapper.EncodeJSON(req.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}

	now := time.Now().UTC()
	plan := &domain.SuccessPlan{
		TenantID:   tc.TenantID,
		AccountID:  accountID,
		Name:       name,
		TargetDate: utcPtr(req.TargetDate),
		Attributes: attributes,
	}
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create success plan: %w", err)
	}

	s.logger.Info("success plan created",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("account_id", accountID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.String("actor", tc.Actor()))

	dto := mapper.ToSuccessPlanDTO(plan)
	return &dto, nil
}

// ListPlans returns an account's plans, newest first
func (s *SuccessPlanService) ListPlans(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID) ([]domain.SuccessPlanDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if err := s.requireAccount(ctx, tc.TenantID, accountID); err != nil {
		return nil, err
	}

	plans, err := s.planRepo.ListByAccount(ctx, tc.TenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list success plans: %w", err)
	}
	dtos := make([]domain.SuccessPlanDTO, len(plans))
	for i := range plans {
		dtos[i] = mapper.ToSuccessPlanDTO(&plans[i])
	}
	return dtos, nil
}

// AddStep appends a pending step. Without an explicit sort order the step
// goes after the plan's current last step.
func (s *SuccessPlanService) AddStep(ctx context.Context, tc domain.TenantContext, planID uuid.UUID, req *domain.AddPlanStepRequest) (*domain.SuccessPlanStepDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if _, err := s.getPlan(ctx, tc.TenantID, planID); err != nil {
		return nil, err
	}

	var sortOrder int
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		next, err := s.planRepo.NextStepOrder(ctx, tc.TenantID, planID)
		if err != nil {
			return nil, fmt.Errorf("failed to get step order: %w", err)
		}
		sortOrder = next
	}

	var assignee *string
	if req.AssigneeUserID != nil && strings.TrimSpace(*req.AssigneeUserID) != "" {
		trimmed := strings.TrimSpace(*req.AssigneeUserID)
		assignee = &trimmed
	}

	now := time.Now().UTC()
	step := &domain.SuccessPlanStep{
		TenantID:       tc.TenantID,
		PlanID:         planID,
		Title:          title,
		DueDate:        utcPtr(req.DueDate),
		AssigneeUserID: assignee,
		Status:         domain.PlanStepPending,
		SortOrder:      sortOrder,
	}
	step.CreatedAt = now
	step.UpdatedAt = now

	if err := s.planRepo.CreateStep(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to create plan step: %w", err)
	}

	dto := mapper.ToSuccessPlanStepDTO(step)
	return &dto, nil
}

// UpdateStepStatus moves a step to another status
func (s *SuccessPlanService) UpdateStepStatus(ctx context.Context, tc domain.TenantContext, stepID uuid.UUID, status domain.PlanStepStatus) (*domain.SuccessPlanStepDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if !status.IsValid() {
		return nil, ErrInvalidStepState
	}

	step, err := s.planRepo.GetStep(ctx, tc.TenantID, stepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanStepNotFound
		}
		return nil, fmt.Errorf("failed to get plan step: %w", err)
	}

	step.Status = status
	step.UpdatedAt = time.Now().UTC()
	if err := s.planRepo.UpdateStepStatus(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to update plan step: %w", err)
	}

	dto := mapper.ToSuccessPlanStepDTO(step)
	return &dto, nil
}

// ListSteps returns a plan's steps in order
func (s *SuccessPlanService) ListSteps(ctx context.Context, tc domain.TenantContext, planID uuid.UUID) ([]domain.SuccessPlanStepDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.getPlan(ctx, tc.TenantID, planID); err != nil {
		return nil, err
	}

	steps, err := s.planRepo.ListSteps(ctx, tc.TenantID, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan steps: %w", err)
	}
	dtos := make([]domain.SuccessPlanStepDTO, len(steps))
	for i := range steps {
		dtos[i] = mapper.ToSuccessPlanStepDTO(&steps[i])
	}
	return dtos, nil
}

func (s *SuccessPlanService) requireAccount(ctx context.Context, tenantID, accountID uuid.UUID) error {
	if _, err := s.accountRepo.GetByID(ctx, tenantID, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}
	return nil
}

func (s *SuccessPlanService) getPlan(ctx context.Context, tenantID, id uuid.UUID) (*domain.SuccessPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get success plan: %w", err)
	}
	return plan, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
