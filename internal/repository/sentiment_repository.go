package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SentimentRepository struct {
	db *gorm.DB
}

func NewSentimentRepository(db *gorm.DB) *SentimentRepository {
	return &SentimentRepository{db: db}
}

func (r *SentimentRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Upsert writes the analysis keyed by (tenant, source_type, source_id). An
// existing row keeps its identity and has its result columns overwritten.
func (r *SentimentRepository) Upsert(ctx context.Context, tx *gorm.DB, analysis *domain.SentimentAnalysis) (*domain.SentimentAnalysis, error) {
	db := r.conn(tx).WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "source_type"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sentiment_score", "magnitude", "label", "summary", "updated_at",
		}),
	}).Create(analysis).Error
	if err != nil {
		return nil, err
	}

	return r.getBySource(db, analysis.TenantID, analysis.SourceType, analysis.SourceID)
}

func (r *SentimentRepository) GetBySource(ctx context.Context, tenantID uuid.UUID, sourceType, sourceID string) (*domain.SentimentAnalysis, error) {
	return r.getBySource(r.db.WithContext(ctx), tenantID, sourceType, sourceID)
}

func (r *SentimentRepository) getBySource(db *gorm.DB, tenantID uuid.UUID, sourceType, sourceID string) (*domain.SentimentAnalysis, error) {
	var analysis domain.SentimentAnalysis
	err := db.
		Scopes(TenantScope(tenantID)).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

// ListByAccount returns analyses for an account, newest first
func (r *SentimentRepository) ListByAccount(ctx context.Context, tenantID, accountID uuid.UUID, limit int) ([]domain.SentimentAnalysis, error) {
	var analyses []domain.SentimentAnalysis
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(tenantID)).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(ClampLimit(limit)).
		Find(&analyses).Error
	return analyses, err
}

// CountByLabel counts analysed sources with the given label
func (r *SentimentRepository) CountByLabel(ctx context.Context, tenantID uuid.UUID, label domain.SentimentLabel) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.SentimentAnalysis{}).
		Scopes(TenantScope(tenantID)).
		Where("label = ?", label).
		Count(&count).Error
	return count, err
}
