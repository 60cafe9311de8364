package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/sentiment"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	followUpAlertWindow = 30 * 24 * time.Hour
	followUpAlertLimit  = 5
	followUpTicketLimit = 5
)

// FollowUpService drafts follow-up emails for accounts. Drafts are not stored.
type FollowUpService struct {
	accountRepo *repository.AccountRepository
	scoreRepo   *repository.HealthScoreRepository
	alertRepo   *repository.AlertRepository
	recordRepo  *repository.ExternalRecordRepository
	drafter     sentiment.Drafter
	logger      *zap.Logger
}

// NewFollowUpService creates a new FollowUpService instance. A nil drafter
// makes every call fail with an upstream error.
func NewFollowUpService(
	accountRepo *repository.AccountRepository,
	scoreRepo *repository.HealthScoreRepository,
	alertRepo *repository.AlertRepository,
	recordRepo *repository.ExternalRecordRepository,
	drafter sentiment.Drafter,
	logger *zap.Logger,
) *FollowUpService {
	if drafter == nil {
		drafter = sentiment.Unavailable{}
	}
	return &FollowUpService{
		accountRepo: accountRepo,
		scoreRepo:   scoreRepo,
		alertRepo:   alertRepo,
		recordRepo:  recordRepo,
		drafter:     drafter,
		logger:      logger,
	}
}

// DraftFollowUp asks the model for an email based on the account, its latest
// score, recent alerts and synced support tickets. extra is passed through as caller context.
func (s *FollowUpService) DraftFollowUp(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, extra map[string]interface{}) (*domain.FollowUpDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	account, err := s.accountRepo.GetByID(ctx, tc.TenantID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	details := map[string]interface{}{
		"account_name": account.Name,
		"arr":          account.ARR,
		"status":       string(account.Status),
	}
	if account.CurrentStage != nil {
		details["stage"] = *account.CurrentStage
	}

	latest, err := s.scoreRepo.GetLatest(ctx, nil, tc.TenantID, accountID)
	switch {
	case err == nil:
		details["health_score"] = latest.Score
		if latest.Trend != nil {
			details["health_trend"] = *latest.Trend
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to get latest health score: %w", err)
	}

	since := time.Now().UTC().Add(-followUpAlertWindow)
	alerts, err := s.alertRepo.List(ctx, tc.TenantID, domain.AlertFilters{
		AccountID: &accountID,
		Created:   domain.DateRange{From: &since},
		Limit:     followUpAlertLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	if len(alerts) > 0 {
		messages := make([]string, len(alerts))
		for i, a := range alerts {
			messages[i] = fmt.Sprintf("%s (%s): %s", a.AlertType, a.Severity, a.Message)
		}
		details["recent_alerts"] = messages
	}

	tickets, err := s.recordRepo.ListTickets(ctx, tc.TenantID, &accountID, followUpTicketLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	if len(tickets) > 0 {
		lines := make([]string, len(tickets))
		for i, t := range tickets {
			lines[i] = fmt.Sprintf("%s [%s]", t.Title, t.Status)
		}
		details["recent_tickets"] = lines
	}
	if len(extra) > 0 {
		details["context"] = extra
	}

	body, err := s.drafter.DraftFollowUp(ctx, details)
	if err != nil {
		s.logger.Warn("follow-up draft failed",
			zap.Error(err),
			zap.String("tenant_id", tc.TenantID.String()),
			zap.String("account_id", accountID.String()))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return &domain.FollowUpDTO{AccountID: accountID, EmailBody: body}, nil
}
