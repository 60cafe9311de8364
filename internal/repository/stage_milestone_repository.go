package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
)

type StageMilestoneRepository struct {
	db *gorm.DB
}

func NewStageMilestoneRepository(db *gorm.DB) *StageMilestoneRepository {
	return &StageMilestoneRepository{db: db}
}

func (r *StageMilestoneRepository) Create(ctx context.Context, milestone *domain.StageMilestone) error {
	return r.db.WithContext(ctx).Create(milestone).Error
}

func (r *StageMilestoneRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.StageMilestone, error) {
	var milestone domain.StageMilestone
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&milestone).Error
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

// ListByStage returns a stage's milestones in their configured order
func (r *StageMilestoneRepository) ListByStage(ctx context.Context, tenantID, stageID uuid.UUID) ([]domain.StageMilestone, error) {
	var milestones []domain.StageMilestone
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("stage_id = ?", stageID).
		Order("sort_order ASC, created_at ASC").
		Find(&milestones).Error
	return milestones, err
}

func (r *StageMilestoneRepository) Update(ctx context.Context, milestone *domain.StageMilestone) error {
	return r.db.WithContext(ctx).Save(milestone).Error
}

func (r *StageMilestoneRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		Delete(&domain.StageMilestone{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByStage removes every milestone of a stage
func (r *StageMilestoneRepository) DeleteByStage(ctx context.Context, tenantID, stageID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("stage_id = ?", stageID).
		Delete(&domain.StageMilestone{}).Error
}
