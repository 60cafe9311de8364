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
	"github.com/straye-as/success-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CDIService appends and reads raw customer data events
type CDIService struct {
	eventRepo   *repository.CDIEventRepository
	accountRepo *repository.AccountRepository
	logger      *zap.Logger
}

// NewCDIService creates a new CDIService instance
func NewCDIService(eventRepo *repository.CDIEventRepository, accountRepo *repository.AccountRepository, logger *zap.Logger) *CDIService {
	return &CDIService{
		eventRepo:   eventRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

func validCDISource(source domain.CDISourceType) bool {
	switch source {
	case domain.CDISourceSupport, domain.CDISourceAnalytics, domain.CDISourceCRM, domain.CDISourceCustom:
		return true
	}
	return false
}

// IngestEvent appends an event. OccurredAt defaults to now.
func (s *CDIService) IngestEvent(ctx context.Context, tc domain.TenantContext, req *domain.IngestCDIEventRequest) (*domain.CDIEventDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if !validCDISource(req.SourceType) {
		return nil, fmt.Errorf("%w: unknown source type %q", ErrInvalidInput, req.SourceType)
	}
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return nil, fmt.Errorf("%w: event type is required", ErrInvalidInput)
	}
	if req.AccountID != nil {
		if _, err := s.accountRepo.GetByID(ctx, tc.TenantID, *req.AccountID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
	}

	payload, err := mapper.EncodeJSON(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	now := time.Now().UTC()
	occurredAt := now
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	event := &domain.CDIEvent{
		TenantID:   tc.TenantID,
		AccountID:  req.AccountID,
		SourceType: req.SourceType,
		EventType:  eventType,
		Payload:    payload,
		OccurredAt: occurredAt,
	}
	event.CreatedAt = now

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to store event: %w", err)
	}

	dto := mapper.ToCDIEventDTO(event)
	return &dto, nil
}

// ListEvents returns an account's events, most recent occurrence first
func (s *CDIService) ListEvents(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, limit int) ([]domain.CDIEventDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	events, err := s.eventRepo.ListByAccount(ctx, tc.TenantID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return toCDIEventDTOs(events), nil
}

// ListRecentEvents returns the tenant's latest events across accounts
func (s *CDIService) ListRecentEvents(ctx context.Context, tc domain.TenantContext, limit int) ([]domain.CDIEventDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	events, err := s.eventRepo.ListRecent(ctx, tc.TenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return toCDIEventDTOs(events), nil
}

func toCDIEventDTOs(events []domain.CDIEvent) []domain.CDIEventDTO {
	dtos := make([]domain.CDIEventDTO, len(events))
	for i := range events {
		dtos[i] = mapper.ToCDIEventDTO(&events[i])
	}
	return dtos
}
