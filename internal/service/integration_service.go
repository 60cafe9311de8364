package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/metrics"
	"github.com/straye-as/success-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sync trigger origins sent to the integration
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// maxErrorBody bounds how much of a failed response is kept in the sync log
const maxErrorBody = 512

// failureRecordTimeout bounds the write of a failed sync outcome, which runs
// detached from the caller's context
const failureRecordTimeout = 5 * time.Second

// HTTPDoer is the subset of *http.Client used for outbound sync triggers
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IntegrationService manages integration sources and triggers their syncs
type IntegrationService struct {
	integrationRepo *repository.IntegrationRepository
	recordRepo      *repository.ExternalRecordRepository
	client          HTTPDoer
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewIntegrationService creates a new IntegrationService instance. A nil
// client gets a default one bounded by the configured outbound timeout.
func NewIntegrationService(
	integrationRepo *repository.IntegrationRepository,
	recordRepo *repository.ExternalRecordRepository,
	cfg config.IntegrationsConfig,
	client HTTPDoer,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IntegrationService {
	if client == nil {
		client = &http.Client{Timeout: cfg.OutboundTimeoutDuration()}
	}
	return &IntegrationService{
		integrationRepo: integrationRepo,
		recordRepo:      recordRepo,
		client:          client,
		metrics:         m,
		logger:          logger,
	}
}

// Create registers an integration source
func (s *IntegrationService) Create(ctx context.Context, tc domain.TenantContext, req *domain.CreateIntegrationRequest) (*domain.IntegrationSourceDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	provider := strings.TrimSpace(req.ProviderType)
	if name == "" || provider == "" {
		return nil, fmt.Errorf("%w: name and provider type are required", ErrInvalidInput)
	}

	cfgJSON, err := mapper.EncodeJSON(req.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode integration config: %w", err)
	}

	now := time.Now().UTC()
	source := &domain.IntegrationSource{
		TenantID:     tc.TenantID,
		Name:         name,
		ProviderType: provider,
		WebhookURL:   strings.TrimSpace(req.WebhookURL),
		Config:       cfgJSON,
		IsActive:     true,
	}
	source.CreatedAt = now
	source.UpdatedAt = now

	if err := s.integrationRepo.Create(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}

	dto := mapper.ToIntegrationSourceDTO(source)
	return &dto, nil
}

// GetByID returns an integration source
func (s *IntegrationService) GetByID(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.IntegrationSourceDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	source, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToIntegrationSourceDTO(source)
	return &dto, nil
}

// Update changes an integration source. The provider type is fixed at creation.
func (s *IntegrationService) Update(ctx context.Context, tc domain.TenantContext, id uuid.UUID, req *domain.UpdateIntegrationRequest) (*domain.IntegrationSourceDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	source, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	source.Name = name
	source.WebhookURL = strings.TrimSpace(req.WebhookURL)
	if req.Config != nil {
		cfgJSON, err := mapper.EncodeJSON(req.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to encode integration config: %w", err)
		}
		source.Config = cfgJSON
	}
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}
	source.UpdatedAt = time.Now().UTC()

	if err := s.integrationRepo.Update(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to update integration: %w", err)
	}

	dto := mapper.ToIntegrationSourceDTO(source)
	return &dto, nil
}

// Delete removes an integration source
func (s *IntegrationService) Delete(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return invalidInput(err)
	}
	if err := s.integrationRepo.Delete(ctx, tc.TenantID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIntegrationNotFound
		}
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	return nil
}

// List returns the tenant's integration sources
func (s *IntegrationService) List(ctx context.Context, tc domain.TenantContext) ([]domain.IntegrationSourceDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	sources, err := s.integrationRepo.List(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	dtos := make([]domain.IntegrationSourceDTO, len(sources))
	for i := range sources {
		dtos[i] = mapper.ToIntegrationSourceDTO(&sources[i])
	}
	return dtos, nil
}

// ListSyncLogs returns an integration's most recent sync runs
func (s *IntegrationService) ListSyncLogs(ctx context.Context, tc domain.TenantContext, id uuid.UUID, limit int) ([]domain.IntegrationSyncLogDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.get(ctx, tc.TenantID, id); err != nil {
		return nil, err
	}

	logs, err := s.integrationRepo.ListSyncLogs(ctx, tc.TenantID, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}

	dtos := make([]domain.IntegrationSyncLogDTO, len(logs))
	for i := range logs {
		dtos[i] = mapper.ToIntegrationSyncLogDTO(&logs[i])
	}
	return dtos, nil
}

// TriggerSync asks the integration to push its data. The returned log stays
// running until the integration posts its records back.
func (s *IntegrationService) TriggerSync(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*domain.IntegrationSyncLogDTO, error) {
	return s.triggerSync(ctx, tc, id, TriggerManual)
}

// TriggerScheduledSync is TriggerSync on behalf of the scheduler
func (s *IntegrationService) TriggerScheduledSync(ctx context.Context, source *domain.IntegrationSource) (*domain.IntegrationSyncLogDTO, error) {
	return s.triggerSync(ctx, domain.SystemContext(source.TenantID), source.ID, TriggerScheduled)
}

// ListSyncable returns every active integration with a webhook URL across tenants
func (s *IntegrationService) ListSyncable(ctx context.Context) ([]domain.IntegrationSource, error) {
	sources, err := s.integrationRepo.ListSyncable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list syncable integrations: %w", err)
	}
	return sources, nil
}

func (s *IntegrationService) triggerSync(ctx context.Context, tc domain.TenantContext, id uuid.UUID, trigger string) (*domain.IntegrationSyncLogDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	source, err := s.get(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if source.WebhookURL == "" {
		return nil, ErrNoWebhookURL
	}

	now := time.Now().UTC()
	syncLog := &domain.IntegrationSyncLog{
		TenantID:      tc.TenantID,
		IntegrationID: source.ID,
		Status:        domain.SyncStatusRunning,
		StartedAt:     now,
	}
	syncLog.CreatedAt = now
	syncLog.UpdatedAt = now
	if err := s.integrationRepo.CreateSyncLog(ctx, syncLog); err != nil {
		return nil, fmt.Errorf("failed to create sync log: %w", err)
	}

	if err := s.post(ctx, source, syncLog.ID, trigger); err != nil {
		s.metrics.SyncTriggered(false)
		s.logger.Warn("sync trigger failed",
			zap.Error(err),
			zap.String("tenant_id", tc.TenantID.String()),
			zap.String("integration_id", source.ID.String()),
			zap.String("sync_log_id", syncLog.ID.String()))
		s.failSync(ctx, source, syncLog, err)
		return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	s.metrics.SyncTriggered(true)
	s.logger.Info("sync triggered",
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("integration_id", source.ID.String()),
		zap.String("sync_log_id", syncLog.ID.String()),
		zap.String("trigger", trigger))

	dto := mapper.ToIntegrationSyncLogDTO(syncLog)
	return &dto, nil
}

func (s *IntegrationService) post(ctx context.Context, source *domain.IntegrationSource, syncLogID uuid.UUID, trigger string) error {
	body, err := json.Marshal(map[string]string{
		"trigger":        trigger,
		"sync_log_id":    syncLogID.String(),
		"integration_id": source.ID.String(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, source.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// failSync marks the log and the source as failed. It outlives a cancelled or
// expired caller context so a timed out trigger is still recorded. Errors are
// logged only so the trigger error reaches the caller.
func (s *IntegrationService) failSync(ctx context.Context, source *domain.IntegrationSource, syncLog *domain.IntegrationSyncLog, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureRecordTimeout)
	defer cancel()

	now := time.Now().UTC()
	msg := cause.Error()
	syncLog.Status = domain.SyncStatusFailed
	syncLog.ErrorMessage = &msg
	syncLog.CompletedAt = &now
	syncLog.UpdatedAt = now

	if err := s.integrationRepo.UpdateSyncLog(ctx, syncLog); err != nil {
		s.logger.Error("failed to mark sync log failed", zap.Error(err), zap.String("sync_log_id", syncLog.ID.String()))
	}
	if err := s.integrationRepo.RecordSyncResult(ctx, source.ID, domain.SyncStatusFailed, now); err != nil {
		s.logger.Error("failed to record sync result", zap.Error(err), zap.String("integration_id", source.ID.String()))
	}
}

// Stats summarises the tenant's integrations and recent sync activity
func (s *IntegrationService) Stats(ctx context.Context, tc domain.TenantContext) (*domain.IntegrationStatsDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	total, active, err := s.integrationRepo.SourceCounts(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count integrations: %w", err)
	}
	records, err := s.recordRepo.SyncedRecordCounts(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count synced records: %w", err)
	}

	now := time.Now().UTC()
	recent, err := s.integrationRepo.CountSyncLogs(ctx, tc.TenantID, now.Add(-24*time.Hour), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent syncs: %w", err)
	}
	failedStatus := domain.SyncStatusFailed
	failed, err := s.integrationRepo.CountSyncLogs(ctx, tc.TenantID, now.Add(-7*24*time.Hour), &failedStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed syncs: %w", err)
	}

	stats := &domain.IntegrationStatsDTO{
		TotalIntegrations:  total,
		ActiveIntegrations: active,
		Contacts:           records[DataTypeContacts],
		Tickets:            records[DataTypeTickets],
		Deals:              records[DataTypeDeals],
		Last24hSyncs:       recent,
		FailedSyncs:        failed,
	}
	for _, n := range records {
		stats.TotalSyncedRecords += n
	}
	return stats, nil
}

// ListContacts returns mirrored contacts, optionally for one account
func (s *IntegrationService) ListContacts(ctx context.Context, tc domain.TenantContext, accountID *uuid.UUID, limit int) ([]domain.ExternalContactDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	contacts, err := s.recordRepo.ListContacts(ctx, tc.TenantID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	dtos := make([]domain.ExternalContactDTO, len(contacts))
	for i := range contacts {
		dtos[i] = mapper.ToExternalContactDTO(&contacts[i])
	}
	return dtos, nil
}

// ListTickets returns mirrored tickets, optionally for one account
func (s *IntegrationService) ListTickets(ctx context.Context, tc domain.TenantContext, accountID *uuid.UUID, limit int) ([]domain.ExternalTicketDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	tickets, err := s.recordRepo.ListTickets(ctx, tc.TenantID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	dtos := make([]domain.ExternalTicketDTO, len(tickets))
	for i := range tickets {
		dtos[i] = mapper.ToExternalTicketDTO(&tickets[i])
	}
	return dtos, nil
}

// ListDeals returns mirrored deals, optionally for one account
func (s *IntegrationService) ListDeals(ctx context.Context, tc domain.TenantContext, accountID *uuid.UUID, limit int) ([]domain.ExternalDealDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	deals, err := s.recordRepo.ListDeals(ctx, tc.TenantID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	dtos := make([]domain.ExternalDealDTO, len(deals))
	for i := range deals {
		dtos[i] = mapper.ToExternalDealDTO(&deals[i])
	}
	return dtos, nil
}

func (s *IntegrationService) get(ctx context.Context, tenantID, id uuid.UUID) (*domain.IntegrationSource, error) {
	source, err := s.integrationRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	return source, nil
}
