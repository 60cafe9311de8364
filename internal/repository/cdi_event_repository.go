package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
)

// CDIEventRepository stores raw customer data events
type CDIEventRepository struct {
	db *gorm.DB
}

func NewCDIEventRepository(db *gorm.DB) *CDIEventRepository {
	return &CDIEventRepository{db: db}
}

func (r *CDIEventRepository) Create(ctx context.Context, event *domain.CDIEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *CDIEventRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID, limit int) ([]domain.CDIEvent, error) {
	var events []domain.CDIEvent
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("account_id = ?", accountID).
		Order("occurred_at DESC").
		Limit(ClampLimit(limit)).
		Find(&events).Error
	return events, err
}

func (r *CDIEventRepository) ListRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.CDIEvent, error) {
	var events []domain.CDIEvent
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Order("occurred_at DESC").
		Limit(ClampLimit(limit)).
		Find(&events).Error
	return events, err
}
