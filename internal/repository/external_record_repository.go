package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExternalRecordRepository upserts integration-owned mirrors keyed by
// (tenant, external_id, source_type)
type ExternalRecordRepository struct {
	db *gorm.DB
}

func NewExternalRecordRepository(db *gorm.DB) *ExternalRecordRepository {
	return &ExternalRecordRepository{db: db}
}

func (r *ExternalRecordRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

type existingRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// findExisting returns nil when no row holds the natural key
func findExisting(db *gorm.DB, model interface{}, tenantID uuid.UUID, externalID, sourceType string) (*existingRow, error) {
	var row existingRow
	err := db.Model(model).
		Select("id, created_at").
		Where("tenant_id = ? AND external_id = ? AND source_type = ?", tenantID, externalID, sourceType).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertContact reports created=true when a new row was inserted
func (r *ExternalRecordRepository) UpsertContact(ctx context.Context, tx *gorm.DB, contact *domain.ExternalContact) (bool, error) {
	db := r.conn(tx).WithContext(ctx)
	existing, err := findExisting(db, &domain.ExternalContact{}, contact.TenantID, contact.ExternalID, contact.SourceType)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, db.Create(contact).Error
	}
	contact.ID, contact.CreatedAt = existing.ID, existing.CreatedAt
	return false, db.Save(contact).Error
}

// UpsertTicket reports created=true when a new row was inserted
func (r *ExternalRecordRepository) UpsertTicket(ctx context.Context, tx *gorm.DB, ticket *domain.ExternalTicket) (bool, error) {
	db := r.conn(tx).WithContext(ctx)
	existing, err := findExisting(db, &domain.ExternalTicket{}, ticket.TenantID, ticket.ExternalID, ticket.SourceType)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, db.Create(ticket).Error
	}
	ticket.ID, ticket.CreatedAt = existing.ID, existing.CreatedAt
	return false, db.Save(ticket).Error
}

// UpsertDeal reports created=true when a new row was inserted
func (r *ExternalRecordRepository) UpsertDeal(ctx context.Context, tx *gorm.DB, deal *domain.ExternalDeal) (bool, error) {
	db := r.conn(tx).WithContext(ctx)
	existing, err := findExisting(db, &domain.ExternalDeal{}, deal.TenantID, deal.ExternalID, deal.SourceType)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, db.Create(deal).Error
	}
	deal.ID, deal.CreatedAt = existing.ID, existing.CreatedAt
	return false, db.Save(deal).Error
}

// TrackSyncedRecord links the external record to the internal row it landed in
func (r *ExternalRecordRepository) TrackSyncedRecord(ctx context.Context, tx *gorm.DB, record *domain.IntegrationSyncedRecord) error {
	return r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "integration_id"}, {Name: "data_type"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"internal_id", "last_synced_at", "updated_at"}),
		}).
		Create(record).Error
}

// CountContacts counts mirrored contacts for a tenant and source
func (r *ExternalRecordRepository) CountContacts(ctx context.Context, tenantID uuid.UUID, sourceType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ExternalContact{}).
		Scopes(TenantScope(tenantID)).
		Where("source_type = ?", sourceType).
		Count(&count).Error
	return count, err
}

// accountScope optionally narrows mirrored records to one account
func accountScope(accountID *uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if accountID != nil {
			return db.Where("account_id = ?", *accountID)
		}
		return db
	}
}

// ListContacts returns mirrored contacts, most recently synced first
func (r *ExternalRecordRepository) ListContacts(ctx context.Context, tenantID uuid.UUID, accountID *uuid.UUID, limit int) ([]domain.ExternalContact, error) {
	var contacts []domain.ExternalContact
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID), accountScope(accountID)).
		Order("last_synced_at DESC").
		Limit(ClampLimit(limit)).
		Find(&contacts).Error
	return contacts, err
}

// ListTickets returns mirrored tickets, most recently synced first
func (r *ExternalRecordRepository) ListTickets(ctx context.Context, tenantID uuid.UUID, accountID *uuid.UUID, limit int) ([]domain.ExternalTicket, error) {
	var tickets []domain.ExternalTicket
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID), accountScope(accountID)).
		Order("last_synced_at DESC").
		Limit(ClampLimit(limit)).
		Find(&tickets).Error
	return tickets, err
}

// ListDeals returns mirrored deals, most recently synced first
func (r *ExternalRecordRepository) ListDeals(ctx context.Context, tenantID uuid.UUID, accountID *uuid.UUID, limit int) ([]domain.ExternalDeal, error) {
	var deals []domain.ExternalDeal
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID), accountScope(accountID)).
		Order("last_synced_at DESC").
		Limit(ClampLimit(limit)).
		Find(&deals).Error
	return deals, err
}

// SyncedRecordCounts counts tracked synced records per data type
func (r *ExternalRecordRepository) SyncedRecordCounts(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		DataType string
		Count    int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.IntegrationSyncedRecord{}).
		Select("data_type, COUNT(*) as count").
		Scopes(TenantScope(tenantID)).
		Group("data_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.DataType] = row.Count
	}
	return counts, nil
}
