package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JourneyHistoryRepository persists lifecycle stage entries
type JourneyHistoryRepository struct {
	db *gorm.DB
}

func NewJourneyHistoryRepository(db *gorm.DB) *JourneyHistoryRepository {
	return &JourneyHistoryRepository{db: db}
}

func (r *JourneyHistoryRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create records a new stage entry
func (r *JourneyHistoryRepository) Create(ctx context.Context, tx *gorm.DB, entry *domain.JourneyHistoryEntry) error {
	return r.conn(tx).WithContext(ctx).Create(entry).Error
}

// GetOpenForUpdate returns the account's current entry (exited_at IS NULL),
// locking it until tx ends. Returns gorm.ErrRecordNotFound when the account
// has never entered a stage.
func (r *JourneyHistoryRepository) GetOpenForUpdate(ctx context.Context, tx *gorm.DB, tenantID, accountID uuid.UUID) (*domain.JourneyHistoryEntry, error) {
	var entry domain.JourneyHistoryEntry
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(TenantScope(tenantID)).
		Where("account_id = ? AND exited_at IS NULL", accountID).
		Order("entered_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Close stamps exited_at on an open entry
func (r *JourneyHistoryRepository) Close(ctx context.Context, tx *gorm.DB, id uuid.UUID, exitedAt time.Time) error {
	result := r.conn(tx).WithContext(ctx).
		Model(&domain.JourneyHistoryEntry{}).
		Where("id = ? AND exited_at IS NULL", id).
		Update("exited_at", exitedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByAccount returns all entries for an account, newest first
func (r *JourneyHistoryRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]domain.JourneyHistoryEntry, error) {
	var entries []domain.JourneyHistoryEntry
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("account_id = ?", accountID).
		Order("entered_at DESC").
		Find(&entries).Error
	return entries, err
}

// CountOpen counts entries with exited_at IS NULL for an account
func (r *JourneyHistoryRepository) CountOpen(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.JourneyHistoryEntry{}).
		Scopes(TenantScope(tenantID)).
		Where("account_id = ? AND exited_at IS NULL", accountID).
		Count(&count).Error
	return count, err
}

// CountOpenByStage counts current stage occupancy across the tenant
func (r *JourneyHistoryRepository) CountOpenByStage(ctx context.Context, tenantID uuid.UUID) ([]domain.StageCountDTO, error) {
	type result struct {
		ToStage string
		Count   int64
	}
	var results []result

	err := r.db.WithContext(ctx).
		Model(&domain.JourneyHistoryEntry{}).
		Select("to_stage, COUNT(*) as count").
		Scopes(TenantScope(tenantID)).
		Where("exited_at IS NULL").
		Group("to_stage").
		Order("to_stage ASC").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make([]domain.StageCountDTO, 0, len(results))
	for _, res := range results {
		counts = append(counts, domain.StageCountDTO{Stage: res.ToStage, Count: res.Count})
	}
	return counts, nil
}

// AverageTimeInStage computes the mean duration of closed entries per stage
func (r *JourneyHistoryRepository) AverageTimeInStage(ctx context.Context, tenantID uuid.UUID) (map[string]time.Duration, error) {
	var closed []domain.JourneyHistoryEntry
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("exited_at IS NOT NULL").
		Find(&closed).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]time.Duration)
	counts := make(map[string]int)
	for _, e := range closed {
		totals[e.ToStage] += e.ExitedAt.Sub(e.EnteredAt)
		counts[e.ToStage]++
	}

	averages := make(map[string]time.Duration, len(totals))
	for stage, total := range totals {
		averages[stage] = total / time.Duration(counts[stage])
	}
	return averages, nil
}

// ListEnteredInRange returns entries whose entered_at falls in dr, oldest first
func (r *JourneyHistoryRepository) ListEnteredInRange(ctx context.Context, tenantID uuid.UUID, dr domain.DateRange) ([]domain.JourneyHistoryEntry, error) {
	var entries []domain.JourneyHistoryEntry
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID), DateRangeScope("entered_at", dr)).
		Order("entered_at ASC").
		Find(&entries).Error
	return entries, err
}
