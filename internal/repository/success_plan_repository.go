package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
)

// SuccessPlanRepository handles success plans and their steps
type SuccessPlanRepository struct {
	db *gorm.DB
}

func NewSuccessPlanRepository(db *gorm.DB) *SuccessPlanRepository {
	return &SuccessPlanRepository{db: db}
}

func (r *SuccessPlanRepository) Create(ctx context.Context, plan *domain.SuccessPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *SuccessPlanRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.SuccessPlan, error) {
	var plan domain.SuccessPlan
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListByAccount returns an account's plans, newest first
func (r *SuccessPlanRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]domain.SuccessPlan, error) {
	var plans []domain.SuccessPlan
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&plans).Error
	return plans, err
}

func (r *SuccessPlanRepository) CreateStep(ctx context.Context, step *domain.SuccessPlanStep) error {
	return r.db.WithContext(ctx).Create(step).Error
}

func (r *SuccessPlanRepository) GetStep(ctx context.Context, tenantID, id uuid.UUID) (*domain.SuccessPlanStep, error) {
	var step domain.SuccessPlanStep
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&step).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// ListSteps returns a plan's steps by sort order, then creation time
func (r *SuccessPlanRepository) ListSteps(ctx context.Context, tenantID, planID uuid.UUID) ([]domain.SuccessPlanStep, error) {
	var steps []domain.SuccessPlanStep
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("plan_id = ?", planID).
		Order("sort_order ASC, created_at ASC").
		Find(&steps).Error
	return steps, err
}

// NextStepOrder returns one past the highest sort order of the plan's steps
func (r *SuccessPlanRepository) NextStepOrder(ctx context.Context, tenantID, planID uuid.UUID) (int, error) {
	var highest int
	err := r.db.WithContext(ctx).
		Model(&domain.SuccessPlanStep{}).
		Select("COALESCE(MAX(sort_order), -1)").
		Scopes(TenantScope(tenantID)).
		Where("plan_id = ?", planID).
		Scan(&highest).Error
	if err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// UpdateStepStatus sets the status of one step
func (r *SuccessPlanRepository) UpdateStepStatus(ctx context.Context, step *domain.SuccessPlanStep) error {
	return r.db.WithContext(ctx).
		Model(step).
		Updates(map[string]interface{}{
			"status":     step.Status,
			"updated_at": step.UpdatedAt,
		}).Error
}
