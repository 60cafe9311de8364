package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"github.com/straye-as/success-api/internal/metrics"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Record data types accepted by the webhook
const (
	DataTypeContacts = "contacts"
	DataTypeTickets  = "tickets"
	DataTypeDeals    = "deals"
)

// WebhookService ingests record batches pushed by integrations. The tenant is
// always taken from the integration row, never from the payload.
type WebhookService struct {
	integrationRepo *repository.IntegrationRepository
	recordRepo      *repository.ExternalRecordRepository
	accountRepo     *repository.AccountRepository
	archive         *storage.WebhookArchive
	cfg             config.IntegrationsConfig
	metrics         *metrics.Metrics
	logger          *zap.Logger
	db              *gorm.DB
}

// NewWebhookService creates a new WebhookService instance. archive may be nil.
func NewWebhookService(
	integrationRepo *repository.IntegrationRepository,
	recordRepo *repository.ExternalRecordRepository,
	accountRepo *repository.AccountRepository,
	archive *storage.WebhookArchive,
	cfg config.IntegrationsConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
	db *gorm.DB,
) *WebhookService {
	return &WebhookService{
		integrationRepo: integrationRepo,
		recordRepo:      recordRepo,
		accountRepo:     accountRepo,
		archive:         archive,
		cfg:             cfg,
		metrics:         m,
		logger:          logger,
		db:              db,
	}
}

// IngestBatch upserts every record of the envelope, tallying outcomes. Failed
// records never fail the batch; only a bad key, a malformed envelope or an
// unknown integration return an error.
func (s *WebhookService) IngestBatch(ctx context.Context, integrationID uuid.UUID, apiKey string, envelope *domain.WebhookEnvelope, raw []byte) (*domain.WebhookIngestResultDTO, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}
	if envelope == nil || envelope.Records == nil {
		return nil, ErrEmptyRecordBatch
	}
	if s.cfg.MaxBatchSize > 0 && len(envelope.Records) > s.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch exceeds %d records", ErrInvalidInput, s.cfg.MaxBatchSize)
	}

	source, err := s.integrationRepo.GetByIDAnyTenant(ctx, integrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	if !s.keyMatches(source, apiKey) {
		return nil, ErrInvalidAPIKey
	}

	sourceType := source.ProviderType
	if sourceType == "" {
		sourceType = envelope.SourceType
	}
	tc := domain.SystemContext(source.TenantID)
	log := integrationLogger(s.logger, tc, source.ID)

	mappingRows, err := s.integrationRepo.ListFieldMappings(ctx, source.TenantID, source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load field mappings: %w", err)
	}
	mappings := groupFieldMappings(mappingRows)

	syncLog, err := s.openSyncLog(ctx, source, envelope.SyncLogID)
	if err != nil {
		return nil, err
	}

	var stats domain.BatchStats
	for i, record := range envelope.Records {
		stats.Processed++
		dataType := strings.ToLower(strings.TrimSpace(record.String("data_type")))
		if dataType == "" {
			dataType = strings.ToLower(strings.TrimSpace(envelope.DataType))
		}

		created, err := s.ingestRecord(ctx, source, sourceType, dataType, mappings, record)
		switch {
		case err != nil:
			stats.Failed++
			s.metrics.WebhookRecord(dataType, "failed")
			log.Warn("webhook record failed",
				zap.Error(err),
				zap.Int("index", i),
				zap.String("data_type", dataType))
		case created:
			stats.Created++
			s.metrics.WebhookRecord(dataType, "created")
		default:
			stats.Updated++
			s.metrics.WebhookRecord(dataType, "updated")
		}
	}

	status := stats.Status()
	now := time.Now().UTC()
	syncLog.Status = status
	syncLog.RecordsProcessed = stats.Processed
	syncLog.RecordsCreated = stats.Created
	syncLog.RecordsUpdated = stats.Updated
	syncLog.RecordsFailed = stats.Failed
	syncLog.CompletedAt = &now
	syncLog.UpdatedAt = now
	if err := s.integrationRepo.UpdateSyncLog(ctx, syncLog); err != nil {
		return nil, fmt.Errorf("failed to update sync log: %w", err)
	}
	if err := s.integrationRepo.RecordSyncResult(ctx, source.ID, status, now); err != nil {
		return nil, fmt.Errorf("failed to record sync result: %w", err)
	}

	s.archiveEnvelope(ctx, source, syncLog.ID, raw)

	log.Info("webhook batch ingested",
		zap.String("sync_log_id", syncLog.ID.String()),
		zap.String("status", string(status)),
		zap.Int("processed", stats.Processed),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed))

	return &domain.WebhookIngestResultDTO{
		Success:   true,
		SyncLogID: syncLog.ID,
		Status:    status,
		Stats:     stats,
	}, nil
}

// keyMatches checks the integration's own api_key, falling back to the
// service wide webhook key. With neither configured every call is rejected.
func (s *WebhookService) keyMatches(source *domain.IntegrationSource, provided string) bool {
	expected := s.cfg.WebhookAPIKey
	if own, ok := mapper.DecodeObject(source.Config)["api_key"].(string); ok && own != "" {
		expected = own
	}
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// openSyncLog reuses the log named by the envelope or starts a new one
func (s *WebhookService) openSyncLog(ctx context.Context, source *domain.IntegrationSource, syncLogID *uuid.UUID) (*domain.IntegrationSyncLog, error) {
	if syncLogID != nil {
		existing, err := s.integrationRepo.GetSyncLog(ctx, source.TenantID, *syncLogID)
		if err == nil && existing.IntegrationID == source.ID {
			return existing, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to get sync log: %w", err)
		}
	}

	now := time.Now().UTC()
	syncLog := &domain.IntegrationSyncLog{
		TenantID:      source.TenantID,
		IntegrationID: source.ID,
		Status:        domain.SyncStatusRunning,
		StartedAt:     now,
	}
	syncLog.CreatedAt = now
	syncLog.UpdatedAt = now
	if err := s.integrationRepo.CreateSyncLog(ctx, syncLog); err != nil {
		return nil, fmt.Errorf("failed to create sync log: %w", err)
	}
	return syncLog, nil
}

func (s *WebhookService) ingestRecord(ctx context.Context, source *domain.IntegrationSource, sourceType, dataType string, mappings fieldMappings, record domain.WebhookRecord) (bool, error) {
	switch dataType {
	case DataTypeContacts, DataTypeTickets, DataTypeDeals:
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownDataType, dataType)
	}
	record, err := mappings.apply(dataType, record)
	if err != nil {
		return false, err
	}
	externalID := externalIDOf(record)
	if externalID == "" {
		return false, fmt.Errorf("%w: external_id is required", ErrInvalidInput)
	}

	accountID, err := s.resolveAccount(ctx, source.TenantID, record.String("account_id"))
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	var created bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var internalID uuid.UUID
		var err error
		switch dataType {
		case DataTypeContacts:
			contact, encErr := buildContact(source.TenantID, externalID, sourceType, accountID, record, now)
			if encErr != nil {
				return encErr
			}
			created, err = s.recordRepo.UpsertContact(ctx, tx, contact)
			internalID = contact.ID
		case DataTypeTickets:
			ticket, encErr := buildTicket(source.TenantID, externalID, sourceType, accountID, record, now)
			if encErr != nil {
				return encErr
			}
			created, err = s.recordRepo.UpsertTicket(ctx, tx, ticket)
			internalID = ticket.ID
		case DataTypeDeals:
			deal, encErr := buildDeal(source.TenantID, externalID, sourceType, accountID, record, now)
			if encErr != nil {
				return encErr
			}
			created, err = s.recordRepo.UpsertDeal(ctx, tx, deal)
			internalID = deal.ID
		}
		if err != nil {
			return fmt.Errorf("failed to upsert %s record: %w", dataType, err)
		}

		synced := &domain.IntegrationSyncedRecord{
			TenantID:      source.TenantID,
			IntegrationID: source.ID,
			DataType:      dataType,
			ExternalID:    externalID,
			InternalID:    internalID,
			LastSyncedAt:  now,
		}
		synced.CreatedAt = now
		synced.UpdatedAt = now
		if err := s.recordRepo.TrackSyncedRecord(ctx, tx, synced); err != nil {
			return fmt.Errorf("failed to track synced record: %w", err)
		}
		return nil
	})
	return created, err
}

// resolveAccount links a record to an account of the same tenant only
func (s *WebhookService) resolveAccount(ctx context.Context, tenantID uuid.UUID, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: account_id is not a uuid", ErrInvalidInput)
	}
	if _, err := s.accountRepo.GetByID(ctx, tenantID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &id, nil
}

func (s *WebhookService) archiveEnvelope(ctx context.Context, source *domain.IntegrationSource, syncLogID uuid.UUID, raw []byte) {
	if s.archive == nil || !s.cfg.ArchiveEnabled || len(raw) == 0 {
		return
	}
	body, err := redactEnvelope(raw)
	if err != nil {
		s.logger.Warn("webhook envelope not archived",
			zap.Error(err),
			zap.String("integration_id", source.ID.String()),
			zap.String("sync_log_id", syncLogID.String()))
		return
	}
	key, err := s.archive.Store(ctx, source.TenantID, source.ID, syncLogID, body)
	if err != nil {
		s.logger.Warn("failed to archive webhook envelope",
			zap.Error(err),
			zap.String("integration_id", source.ID.String()),
			zap.String("sync_log_id", syncLogID.String()))
		return
	}
	s.logger.Debug("webhook envelope archived", zap.String("key", key))
}

// redactEnvelope drops the api_key from a raw envelope. Other top level
// fields are kept byte for byte.
func redactEnvelope(raw []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if _, ok := fields["api_key"]; !ok {
		return raw, nil
	}
	delete(fields, "api_key")
	return json.Marshal(fields)
}

func integrationLogger(base *zap.Logger, tc domain.TenantContext, integrationID uuid.UUID) *zap.Logger {
	return base.With(
		zap.String("tenant_id", tc.TenantID.String()),
		zap.String("integration_id", integrationID.String()))
}

// externalIDOf accepts string and numeric ids
func externalIDOf(record domain.WebhookRecord) string {
	if id := strings.TrimSpace(record.String("external_id")); id != "" {
		return id
	}
	if n, ok := record.Float("external_id"); ok {
		return fmt.Sprintf("%.0f", n)
	}
	return ""
}

func buildContact(tenantID uuid.UUID, externalID, sourceType string, accountID *uuid.UUID, r domain.WebhookRecord, now time.Time) (*domain.ExternalContact, error) {
	props, err := mapper.EncodeJSON(r.Without("data_type", "external_id", "account_id",
		"first_name", "last_name", "email", "phone", "title"))
	if err != nil {
		return nil, err
	}
	contact := &domain.ExternalContact{
		TenantID:     tenantID,
		ExternalID:   externalID,
		SourceType:   sourceType,
		AccountID:    accountID,
		FirstName:    r.String("first_name"),
		LastName:     r.String("last_name"),
		Email:        r.String("email"),
		Phone:        r.String("phone"),
		Title:        r.String("title"),
		Properties:   props,
		LastSyncedAt: now,
	}
	contact.CreatedAt = now
	contact.UpdatedAt = now
	return contact, nil
}

func buildTicket(tenantID uuid.UUID, externalID, sourceType string, accountID *uuid.UUID, r domain.WebhookRecord, now time.Time) (*domain.ExternalTicket, error) {
	props, err := mapper.EncodeJSON(r.Without("data_type", "external_id", "account_id",
		"title", "description", "status", "priority", "ticket_type", "reporter_email", "assignee_email"))
	if err != nil {
		return nil, err
	}
	ticket := &domain.ExternalTicket{
		TenantID:      tenantID,
		ExternalID:    externalID,
		SourceType:    sourceType,
		AccountID:     accountID,
		Title:         r.String("title"),
		Description:   r.String("description"),
		Status:        r.String("status"),
		Priority:      r.String("priority"),
		TicketType:    r.String("ticket_type"),
		ReporterEmail: r.String("reporter_email"),
		AssigneeEmail: r.String("assignee_email"),
		Properties:    props,
		LastSyncedAt:  now,
	}
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return ticket, nil
}

func buildDeal(tenantID uuid.UUID, externalID, sourceType string, accountID *uuid.UUID, r domain.WebhookRecord, now time.Time) (*domain.ExternalDeal, error) {
	props, err := mapper.EncodeJSON(r.Without("data_type", "external_id", "account_id",
		"name", "stage", "amount", "probability", "owner_email"))
	if err != nil {
		return nil, err
	}
	deal := &domain.ExternalDeal{
		TenantID:     tenantID,
		ExternalID:   externalID,
		SourceType:   sourceType,
		AccountID:    accountID,
		Name:         r.String("name"),
		Stage:        r.String("stage"),
		OwnerEmail:   r.String("owner_email"),
		Properties:   props,
		LastSyncedAt: now,
	}
	if amount, ok := r.Float("amount"); ok {
		deal.Amount = amount
	}
	if p, ok := r.Float("probability"); ok {
		deal.Probability = &p
	}
	deal.CreatedAt = now
	deal.UpdatedAt = now
	return deal, nil
}
