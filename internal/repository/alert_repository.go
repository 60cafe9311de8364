package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *AlertRepository) Create(ctx context.Context, tx *gorm.DB, alert *domain.Alert) error {
	return r.conn(tx).WithContext(ctx).Create(alert).Error
}

func alertFilterScope(filters domain.AlertFilters) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filters.AccountID != nil {
			db = db.Where("account_id = ?", *filters.AccountID)
		}
		if filters.AlertType != nil {
			db = db.Where("alert_type = ?", *filters.AlertType)
		}
		if filters.Severity != nil {
			db = db.Where("severity = ?", *filters.Severity)
		}
		return db.Scopes(DateRangeScope("created_at", filters.Created))
	}
}

// List returns alerts matching filters, newest first
func (r *AlertRepository) List(ctx context.Context, tenantID uuid.UUID, filters domain.AlertFilters) ([]domain.Alert, error) {
	var alerts []domain.Alert
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID), alertFilterScope(filters)).
		Order("created_at DESC").
		Limit(ClampLimit(filters.Limit)).
		Find(&alerts).Error
	return alerts, err
}

func (r *AlertRepository) Count(ctx context.Context, tenantID uuid.UUID, filters domain.AlertFilters) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Alert{}).
		Scopes(TenantScope(tenantID), alertFilterScope(filters)).
		Count(&count).Error
	return count, err
}
