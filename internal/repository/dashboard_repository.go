package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
)

// AccountScoreRow is an account joined with its latest health score. Score is
// nil when the account has never been scored.
type AccountScoreRow struct {
	AccountID    uuid.UUID `gorm:"column:account_id"`
	Name         string    `gorm:"column:name"`
	ARR          float64   `gorm:"column:arr"`
	CurrentStage *string   `gorm:"column:current_stage"`
	Score        *float64  `gorm:"column:score"`
}

// DashboardRepository runs the read-only aggregate queries behind dashboards
type DashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// latestScores joins every account with the score of its newest calculation
func (r *DashboardRepository) latestScores(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	latest := r.db.WithContext(ctx).
		Model(&domain.HealthScoreRecord{}).
		Select("account_id, MAX(calculated_at) as calculated_at").
		Where("tenant_id = ?", tenantID).
		Group("account_id")

	return r.db.WithContext(ctx).
		Table("accounts a").
		Select("a.id as account_id, a.name, a.arr, a.current_stage, hs.score").
		Joins("LEFT JOIN (?) as latest ON latest.account_id = a.id", latest).
		Joins("LEFT JOIN health_scores hs ON hs.account_id = latest.account_id AND hs.calculated_at = latest.calculated_at").
		Scopes(TenantScopeWithColumn(tenantID, "a.tenant_id"))
}

// LatestScores returns one row per account matching filters
func (r *DashboardRepository) LatestScores(ctx context.Context, tenantID uuid.UUID, filters domain.AccountFilters) ([]AccountScoreRow, error) {
	var rows []AccountScoreRow
	err := r.latestScores(ctx, tenantID).
		Scopes(AccountFilterScope(filters, "a.")).
		Order("a.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return dedupeByAccount(rows), nil
}

// RevenueAtRisk returns accounts above minARR whose latest score is below maxScore, largest ARR first
func (r *DashboardRepository) RevenueAtRisk(ctx context.Context, tenantID uuid.UUID, minARR, maxScore float64, limit int) ([]AccountScoreRow, error) {
	var rows []AccountScoreRow
	err := r.latestScores(ctx, tenantID).
		Where("a.arr > ? AND hs.score < ?", minARR, maxScore).
		Order("a.arr DESC, a.name ASC").
		Limit(ClampLimit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return dedupeByAccount(rows), nil
}

// AccountTotals returns the account count and summed ARR of a tenant
func (r *DashboardRepository) AccountTotals(ctx context.Context, tenantID uuid.UUID) (int64, float64, error) {
	var totals struct {
		Count    int64
		TotalARR float64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Select("COUNT(*) as count, COALESCE(SUM(arr), 0) as total_arr").
		Scopes(TenantScope(tenantID)).
		Scan(&totals).Error
	return totals.Count, totals.TotalARR, err
}

// Two records sharing the newest calculated_at would otherwise yield two rows
func dedupeByAccount(rows []AccountScoreRow) []AccountScoreRow {
	seen := make(map[uuid.UUID]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		if _, ok := seen[row.AccountID]; ok {
			continue
		}
		seen[row.AccountID] = struct{}{}
		out = append(out, row)
	}
	return out
}
