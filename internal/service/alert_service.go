package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/events"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/metrics"
	"github.com/straye-as/success-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Alert messages
const (
	healthDipMessage         = "Health score decreased"
	negativeSentimentMessage = "Negative sentiment detected"
)

// eventSink publishes domain events after commit. Failures are logged and
// counted, never returned.
type eventSink struct {
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func (e eventSink) publish(ctx context.Context, evts ...events.Event) {
	if e.publisher == nil {
		return
	}
	for _, evt := range evts {
		if err := e.publisher.Publish(ctx, evt); err != nil {
			e.metrics.EventPublishFailed(evt.Type)
			e.logger.Warn("failed to publish domain event",
				zap.Error(err),
				zap.String("event_type", evt.Type),
				zap.String("tenant_id", evt.TenantID.String()),
				zap.String("account_id", evt.AccountID.String()))
		}
	}
}

// AlertService raises alerts as a side effect of scoring and sentiment, and
// serves the alert feed. Alerts are never deduplicated.
type AlertService struct {
	alertRepo *repository.AlertRepository
	events    eventSink
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAlertService creates a new AlertService instance
func NewAlertService(
	alertRepo *repository.AlertRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		alertRepo: alertRepo,
		events:    eventSink{publisher: publisher, metrics: m, logger: logger},
		metrics:   m,
		logger:    logger,
	}
}

// raise persists an alert inside tx. Call raised once tx has committed.
func (s *AlertService) raise(
	ctx context.Context,
	tx *gorm.DB,
	tc domain.TenantContext,
	accountID uuid.UUID,
	alertType domain.AlertType,
	severity domain.AlertSeverity,
	message string,
	details map[string]interface{},
) (*domain.Alert, error) {
	encoded, err := mapper.EncodeJSON(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert context: %w", err)
	}

	alert := &domain.Alert{
		TenantID:  tc.TenantID,
		AccountID: accountID,
		AlertType: alertType,
		Severity:  severity,
		Message:   message,
		Context:   encoded,
	}
	alert.CreatedAt = time.Now().UTC()

	if err := s.alertRepo.Create(ctx, tx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	return alert, nil
}

// raised reports a committed alert to metrics and the event stream
func (s *AlertService) raised(ctx context.Context, alert *domain.Alert) {
	if alert == nil {
		return
	}
	s.metrics.AlertRaised(string(alert.AlertType))
	s.logger.Info("alert raised",
		zap.String("tenant_id", alert.TenantID.String()),
		zap.String("account_id", alert.AccountID.String()),
		zap.String("alert_type", string(alert.AlertType)),
		zap.String("severity", string(alert.Severity)))

	s.events.publish(ctx, events.Event{
		Type:       events.TypeAlertRaised,
		TenantID:   alert.TenantID,
		AccountID:  alert.AccountID,
		OccurredAt: alert.CreatedAt,
		Data:       mapper.ToAlertDTO(alert),
	})
}

// ListAlerts returns alerts matching filters, newest first
func (s *AlertService) ListAlerts(ctx context.Context, tc domain.TenantContext, filters domain.AlertFilters) ([]domain.AlertDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	alerts, err := s.alertRepo.List(ctx, tc.TenantID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	dtos := make([]domain.AlertDTO, len(alerts))
	for i := range alerts {
		dtos[i] = mapper.ToAlertDTO(&alerts[i])
	}
	return dtos, nil
}

// CountAlerts counts alerts matching filters
func (s *AlertService) CountAlerts(ctx context.Context, tc domain.TenantContext, filters domain.AlertFilters) (int64, error) {
	if err := tc.Validate(); err != nil {
		return 0, invalidInput(err)
	}
	count, err := s.alertRepo.Count(ctx, tc.TenantID, filters)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}
