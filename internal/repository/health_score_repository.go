package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
)

// HealthScoreRepository appends and reads health snapshots. There is no update path.
type HealthScoreRepository struct {
	db *gorm.DB
}

func NewHealthScoreRepository(db *gorm.DB) *HealthScoreRepository {
	return &HealthScoreRepository{db: db}
}

func (r *HealthScoreRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *HealthScoreRepository) Create(ctx context.Context, tx *gorm.DB, record *domain.HealthScoreRecord) error {
	return r.conn(tx).WithContext(ctx).Create(record).Error
}

// GetLatest returns the most recently calculated record for an account
func (r *HealthScoreRepository) GetLatest(ctx context.Context, tx *gorm.DB, tenantID, accountID uuid.UUID) (*domain.HealthScoreRecord, error) {
	var record domain.HealthScoreRecord
	err := r.conn(tx).WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("account_id = ?", accountID).
		Order("calculated_at DESC, created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByAccount returns an account's history, newest first
func (r *HealthScoreRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID, limit int) ([]domain.HealthScoreRecord, error) {
	var records []domain.HealthScoreRecord
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("account_id = ?", accountID).
		Order("calculated_at DESC, created_at DESC").
		Limit(ClampLimit(limit)).
		Find(&records).Error
	return records, err
}
