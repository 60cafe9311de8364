package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LifecycleStageRepository stores stage definitions and their scoring weights
type LifecycleStageRepository struct {
	db *gorm.DB
}

func NewLifecycleStageRepository(db *gorm.DB) *LifecycleStageRepository {
	return &LifecycleStageRepository{db: db}
}

func (r *LifecycleStageRepository) Create(ctx context.Context, stage *domain.LifecycleStage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

func (r *LifecycleStageRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.LifecycleStage, error) {
	var stage domain.LifecycleStage
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&stage).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

func (r *LifecycleStageRepository) GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*domain.LifecycleStage, error) {
	var stage domain.LifecycleStage
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("name = ?", name).
		First(&stage).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// NameExists reports whether another stage in the tenant already uses name
func (r *LifecycleStageRepository) NameExists(ctx context.Context, tenantID uuid.UUID, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&domain.LifecycleStage{}).
		Scopes(TenantScope(tenantID)).
		Where("name = ?", name)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *LifecycleStageRepository) List(ctx context.Context, tenantID uuid.UUID) ([]domain.LifecycleStage, error) {
	var stages []domain.LifecycleStage
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Order("sort_order ASC, name ASC").
		Find(&stages).Error
	return stages, err
}

func (r *LifecycleStageRepository) Update(ctx context.Context, stage *domain.LifecycleStage) error {
	return r.db.WithContext(ctx).Save(stage).Error
}

func (r *LifecycleStageRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		Delete(&domain.LifecycleStage{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertWeights inserts the stage or overwrites the weights of the existing
// (tenant, name) row, then returns the stored row.
func (r *LifecycleStageRepository) UpsertWeights(ctx context.Context, tenantID uuid.UUID, name, weightsJSON string) (*domain.LifecycleStage, error) {
	now := time.Now().UTC()
	stage := &domain.LifecycleStage{
		TenantID: tenantID,
		Name:     name,
		IsActive: true,
		Weights:  weightsJSON,
	}
	stage.CreatedAt = now
	stage.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"weights", "updated_at"}),
		}).
		Create(stage).Error
	if err != nil {
		return nil, err
	}

	// The generated ID is discarded on conflict, so read back by natural key
	return r.GetByName(ctx, tenantID, name)
}
