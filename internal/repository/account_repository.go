package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountSortFields maps API sort fields to columns
var accountSortFields = map[string]string{
	string(domain.AccountSortByName):      "name",
	string(domain.AccountSortByARR):       "arr",
	string(domain.AccountSortByCreatedAt): "created_at",
	string(domain.AccountSortByUpdatedAt): "updated_at",
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *domain.Account) error {
	return r.conn(tx).WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetForUpdate loads an account and locks its row for the rest of tx
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Update(ctx context.Context, tx *gorm.DB, account *domain.Account) error {
	return r.conn(tx).WithContext(ctx).Save(account).Error
}

func (r *AccountRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("id = ?", id).
		Delete(&domain.Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AccountFilterScope turns typed filters into WHERE clauses. prefix qualifies
// columns when the accounts table is aliased ("" or "a.").
func AccountFilterScope(filters domain.AccountFilters, prefix string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filters.Status != nil {
			db = db.Where(prefix+"status = ?", *filters.Status)
		}
		if filters.Stage != nil {
			db = db.Where(prefix+"current_stage = ?", *filters.Stage)
		}
		if filters.ParentID != nil {
			db = db.Where(prefix+"parent_id = ?", *filters.ParentID)
		}
		if filters.RootOnly {
			db = db.Where(prefix + "parent_id IS NULL")
		}
		if filters.Search != "" {
			db = db.Where("LOWER("+prefix+"name) LIKE ?", "%"+strings.ToLower(filters.Search)+"%")
		}
		if filters.MinARR != nil {
			db = db.Where(prefix+"arr >= ?", *filters.MinARR)
		}
		if filters.MaxARR != nil {
			db = db.Where(prefix+"arr <= ?", *filters.MaxARR)
		}
		return db
	}
}

func (r *AccountRepository) List(ctx context.Context, tenantID uuid.UUID, filters domain.AccountFilters, sort SortConfig, page, pageSize int) ([]domain.Account, int64, error) {
	var accounts []domain.Account
	var total int64

	query := r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Scopes(TenantScope(tenantID), AccountFilterScope(filters, ""))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Scopes(Paginate(page, pageSize)).
		Order(BuildOrderClause(sort, accountSortFields, "updated_at")).
		Find(&accounts).Error

	return accounts, total, err
}

// ListChildren returns the direct children of an account
func (r *AccountRepository) ListChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]domain.Account, error) {
	var accounts []domain.Account
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) CountChildren(ctx context.Context, tenantID, parentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Scopes(TenantScope(tenantID)).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}

// ListDescendants returns every account below the given hierarchy path, shallowest first
func (r *AccountRepository) ListDescendants(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, path string) ([]domain.Account, error) {
	var accounts []domain.Account
	err := r.conn(tx).WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("hierarchy_path LIKE ?", path+"/%").
		Order("hierarchy_level ASC").
		Find(&accounts).Error
	return accounts, err
}

// UpdateHierarchy rewrites the derived tree fields of one account
func (r *AccountRepository) UpdateHierarchy(ctx context.Context, tx *gorm.DB, id uuid.UUID, level int, path string) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hierarchy_level": level,
			"hierarchy_path":  path,
			"updated_at":      time.Now().UTC(),
		}).Error
}

// UpdateCurrentStage keeps the denormalised stage in step with journey history
func (r *AccountRepository) UpdateCurrentStage(ctx context.Context, tx *gorm.DB, id uuid.UUID, stage string) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_stage": stage,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// CountInStage counts accounts currently sitting in a stage
func (r *AccountRepository) CountInStage(ctx context.Context, tenantID uuid.UUID, stage string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Scopes(TenantScope(tenantID)).
		Where("current_stage = ?", stage).
		Count(&count).Error
	return count, err
}

// ListScorable returns accounts with a warehouse mapping. A nil tenantID
// spans all tenants.
func (r *AccountRepository) ListScorable(ctx context.Context, tenantID *uuid.UUID) ([]domain.Account, error) {
	var accounts []domain.Account
	query := r.db.WithContext(ctx).
		Where("external_ref IS NOT NULL AND external_ref <> ''").
		Where("status <> ?", domain.AccountStatusChurned)
	if tenantID != nil {
		query = query.Scopes(TenantScope(*tenantID))
	}
	err := query.Order("tenant_id ASC, name ASC").Find(&accounts).Error
	return accounts, err
}
