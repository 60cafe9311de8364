package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
)

type PlaybookRepository struct {
	db *gorm.DB
}

func NewPlaybookRepository(db *gorm.DB) *PlaybookRepository {
	return &PlaybookRepository{db: db}
}

func (r *PlaybookRepository) Create(ctx context.Context, playbook *domain.Playbook) error {
	return r.db.WithContext(ctx).Create(playbook).Error
}

func (r *PlaybookRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Playbook, error) {
	var playbook domain.Playbook
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&playbook).Error
	if err != nil {
		return nil, err
	}
	return &playbook, nil
}

// GetActiveByID returns the playbook only when it is active
func (r *PlaybookRepository) GetActiveByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Playbook, error) {
	var playbook domain.Playbook
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ? AND is_active = ?", id, true).
		First(&playbook).Error
	if err != nil {
		return nil, err
	}
	return &playbook, nil
}

func (r *PlaybookRepository) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]domain.Playbook, error) {
	var playbooks []domain.Playbook
	query := r.db.WithContext(ctx).Scopes(TenantScope(tenantID))
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("created_at DESC").Find(&playbooks).Error
	return playbooks, err
}

func (r *PlaybookRepository) Update(ctx context.Context, playbook *domain.Playbook) error {
	return r.db.WithContext(ctx).Save(playbook).Error
}

func (r *PlaybookRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		Delete(&domain.Playbook{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PlaybookRepository) CreateRun(ctx context.Context, run *domain.PlaybookRun) error {
	return r.db.WithContext(ctx).Omit("Playbook").Create(run).Error
}

// ListRunsByAccount returns an account's playbook runs with their playbook, newest first
func (r *PlaybookRepository) ListRunsByAccount(ctx context.Context, tenantID, accountID uuid.UUID, limit int) ([]domain.PlaybookRun, error) {
	var runs []domain.PlaybookRun
	err := r.db.WithContext(ctx).
		Preload("Playbook").
		Scopes(TenantScope(tenantID)).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(ClampLimit(limit)).
		Find(&runs).Error
	return runs, err
}
