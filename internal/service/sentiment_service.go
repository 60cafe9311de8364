package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/metrics"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/scoring"
	"github.com/straye-as/success-api/internal/sentiment"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultLanguage = "en"

// SentimentService classifies customer text and keeps the latest verdict per source
type SentimentService struct {
	accountRepo   *repository.AccountRepository
	sentimentRepo *repository.SentimentRepository
	analyzer      sentiment.Analyzer
	alerts        *AlertService
	metrics       *metrics.Metrics
	logger        *zap.Logger
	db            *gorm.DB
}

// NewSentimentService creates a new SentimentService instance
func NewSentimentService(
	accountRepo *repository.AccountRepository,
	sentimentRepo *repository.SentimentRepository,
	analyzer sentiment.Analyzer,
	alerts *AlertService,
	m *metrics.Metrics,
	logger *zap.Logger,
	db *gorm.DB,
) *SentimentService {
	if analyzer == nil {
		analyzer = sentiment.Unavailable{}
	}
	return &SentimentService{
		accountRepo:   accountRepo,
		sentimentRepo: sentimentRepo,
		analyzer:      analyzer,
		alerts:        alerts,
		metrics:       m,
		logger:        logger,
		db:            db,
	}
}

// AnalyzeText scores a text and upserts the result for its source. A score
// below -0.4 raises a sentiment_negative alert.
func (s *SentimentService) AnalyzeText(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, req *domain.AnalyzeTextRequest) (*domain.SentimentResultDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.accountRepo.GetByID(ctx, tc.TenantID, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return s.analyze(ctx, tc, accountID, req)
}

// AnalyzeBatch analyzes items one by one. A failing item is recorded and the
// rest still run.
func (s *SentimentService) AnalyzeBatch(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, req *domain.AnalyzeBatchRequest) (*domain.SentimentBatchResultDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.accountRepo.GetByID(ctx, tc.TenantID, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	result := &domain.SentimentBatchResultDTO{Results: []domain.SentimentResultDTO{}}
	for i := range req.Items {
		result.Processed++
		item, err := s.analyze(ctx, tc, accountID, &req.Items[i])
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, domain.BatchItemErrorDTO{Index: i, Message: err.Error()})
			s.logger.Warn("sentiment batch item failed",
				zap.Error(err),
				zap.String("account_id", accountID.String()),
				zap.Int("index", i))
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, *item)
	}
	return result, nil
}

func (s *SentimentService) analyze(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, req *domain.AnalyzeTextRequest) (*domain.SentimentResultDTO, error) {
	sourceType := strings.TrimSpace(req.SourceType)
	sourceID := strings.TrimSpace(req.SourceID)
	if sourceType == "" || sourceID == "" {
		return nil, fmt.Errorf("%w: source type and source id are required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}

	verdict, err := s.analyzer.Analyze(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	score := scoring.ClampSentiment(verdict.Score)
	label := scoring.ResolveSentimentLabel(verdict.Label, score)
	language := req.Language
	if language == "" {
		language = verdict.Language
	}
	if language == "" {
		language = defaultLanguage
	}

	var stored *domain.SentimentAnalysis
	var alert *domain.Alert

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		analysis := &domain.SentimentAnalysis{
			TenantID:   tc.TenantID,
			AccountID:  accountID,
			SourceType: sourceType,
			SourceID:   sourceID,
			Score:      score,
			Magnitude:  verdict.Magnitude,
			Label:      label,
			Summary:    verdict.Summary,
			Language:   language,
		}
		analysis.CreatedAt = now
		analysis.UpdatedAt = now

		var err error
		stored, err = s.sentimentRepo.Upsert(ctx, tx, analysis)
		if err != nil {
			return fmt.Errorf("failed to store sentiment: %w", err)
		}

		if scoring.IsNegativeSentiment(score) {
			alert, err = s.alerts.raise(ctx, tx, tc, accountID,
				domain.AlertTypeSentimentNegative, domain.AlertSeverityWarning, negativeSentimentMessage,
				map[string]interface{}{
					"source_type": sourceType,
					"source_id":   sourceID,
					"score":       score,
					"label":       string(label),
				})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SentimentAnalyzed(string(label))
	s.alerts.raised(ctx, alert)

	return &domain.SentimentResultDTO{
		ID:      stored.ID,
		Label:   stored.Label,
		Score:   stored.Score,
		Alerted: alert != nil,
	}, nil
}

// ListSentiment returns an account's analyses, newest first
func (s *SentimentService) ListSentiment(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, limit int) ([]domain.SentimentAnalysisDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.accountRepo.GetByID(ctx, tc.TenantID, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	analyses, err := s.sentimentRepo.ListByAccount(ctx, tc.TenantID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sentiment: %w", err)
	}

	dtos := make([]domain.SentimentAnalysisDTO, len(analyses))
	for i := range analyses {
		dtos[i] = mapper.ToSentimentAnalysisDTO(&analyses[i])
	}
	return dtos, nil
}
