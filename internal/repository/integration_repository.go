package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
)

// IntegrationRepository handles integration sources and their sync logs
type IntegrationRepository struct {
	db *gorm.DB
}

func NewIntegrationRepository(db *gorm.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

func (r *IntegrationRepository) Create(ctx context.Context, source *domain.IntegrationSource) error {
	return r.db.WithContext(ctx).Create(source).Error
}

func (r *IntegrationRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.IntegrationSource, error) {
	var source domain.IntegrationSource
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&source).Error
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// GetByIDAnyTenant resolves an integration without a tenant. Only the inbound
// webhook uses it, where the tenant is derived from the integration itself.
func (r *IntegrationRepository) GetByIDAnyTenant(ctx context.Context, id uuid.UUID) (*domain.IntegrationSource, error) {
	var source domain.IntegrationSource
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&source).Error
	if err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *IntegrationRepository) List(ctx context.Context, tenantID uuid.UUID) ([]domain.IntegrationSource, error) {
	var sources []domain.IntegrationSource
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Order("name ASC").
		Find(&sources).Error
	return sources, err
}

// ListSyncable returns active integrations with an outbound webhook across all tenants
func (r *IntegrationRepository) ListSyncable(ctx context.Context) ([]domain.IntegrationSource, error) {
	var sources []domain.IntegrationSource
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND webhook_url <> ''", true).
		Order("tenant_id, name").
		Find(&sources).Error
	return sources, err
}

func (r *IntegrationRepository) Update(ctx context.Context, source *domain.IntegrationSource) error {
	return r.db.WithContext(ctx).Save(source).Error
}

func (r *IntegrationRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		Delete(&domain.IntegrationSource{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordSyncResult stamps the last sync time and status on the source
func (r *IntegrationRepository) RecordSyncResult(ctx context.Context, id uuid.UUID, status domain.SyncStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.IntegrationSource{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_sync_at":     at,
			"last_sync_status": status,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *IntegrationRepository) CreateSyncLog(ctx context.Context, log *domain.IntegrationSyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *IntegrationRepository) GetSyncLog(ctx context.Context, tenantID, id uuid.UUID) (*domain.IntegrationSyncLog, error) {
	var log domain.IntegrationSyncLog
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *IntegrationRepository) UpdateSyncLog(ctx context.Context, log *domain.IntegrationSyncLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

// ListSyncLogs returns the most recent sync logs of an integration
func (r *IntegrationRepository) ListSyncLogs(ctx context.Context, tenantID, integrationID uuid.UUID, limit int) ([]domain.IntegrationSyncLog, error) {
	var logs []domain.IntegrationSyncLog
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("integration_id = ?", integrationID).
		Order("started_at DESC").
		Limit(ClampLimit(limit)).
		Find(&logs).Error
	return logs, err
}

// SourceCounts returns the number of integrations and how many are active
func (r *IntegrationRepository) SourceCounts(ctx context.Context, tenantID uuid.UUID) (total, active int64, err error) {
	var counts struct {
		Total  int64
		Active int64
	}
	err = r.db.WithContext(ctx).
		Model(&domain.IntegrationSource{}).
		Select("COUNT(*) as total, COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) as active").
		Scopes(TenantScope(tenantID)).
		Scan(&counts).Error
	return counts.Total, counts.Active, err
}

// CountSyncLogs counts sync runs started at or after since, optionally with one status
func (r *IntegrationRepository) CountSyncLogs(ctx context.Context, tenantID uuid.UUID, since time.Time, status *domain.SyncStatus) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&domain.IntegrationSyncLog{}).
		Scopes(TenantScope(tenantID)).
		Where("started_at >= ?", since)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *IntegrationRepository) CreateFieldMapping(ctx context.Context, mapping *domain.IntegrationFieldMapping) error {
	return r.db.WithContext(ctx).Create(mapping).Error
}

// ListFieldMappings returns an integration's mappings ordered by target
func (r *IntegrationRepository) ListFieldMappings(ctx context.Context, tenantID, integrationID uuid.UUID) ([]domain.IntegrationFieldMapping, error) {
	var mappings []domain.IntegrationFieldMapping
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("integration_id = ?", integrationID).
		Order("target_table ASC, target_field ASC, created_at ASC").
		Find(&mappings).Error
	return mappings, err
}

func (r *IntegrationRepository) DeleteFieldMapping(ctx context.Context, tenantID, integrationID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ? AND integration_id = ?", id, integrationID).
		Delete(&domain.IntegrationFieldMapping{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
