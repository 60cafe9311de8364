package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

// maxWebhookBody bounds inbound webhook payloads
const maxWebhookBody = 10 << 20

type IntegrationHandler struct {
	integrationService *service.IntegrationService
	webhookService     *service.WebhookService
	logger             *zap.Logger
}

func NewIntegrationHandler(integrationService *service.IntegrationService, webhookService *service.WebhookService, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		integrationService: integrationService,
		webhookService:     webhookService,
		logger:             logger,
	}
}

// List godoc
// @Summary List integrations
// @Tags Integrations
// @Produce json
// @Success 200 {array} domain.IntegrationSourceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations [get]
func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.integrationService.List(r.Context(), tenantFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list integrations")
		return
	}
	respondJSON(w, http.StatusOK, sources)
}

// Create godoc
// @Summary Create integration
// @Tags Integrations
// @Accept json
// @Produce json
// @Param request body domain.CreateIntegrationRequest true "Integration data"
// @Success 201 {object} domain.IntegrationSourceDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations [post]
func (h *IntegrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateIntegrationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	source, err := h.integrationService.Create(r.Context(), tenantFrom(r), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create integration")
		return
	}
	respondJSON(w, http.StatusCreated, source)
}

// GetByID godoc
// @Summary Get integration
// @Tags Integrations
// @Produce json
// @Param id path string true "Integration ID"
// @Success 200 {object} domain.IntegrationSourceDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/{id} [get]
func (h *IntegrationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	source, err := h.integrationService.GetByID(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get integration")
		return
	}
	respondJSON(w, http.StatusOK, source)
}

// Update godoc
// @Summary Update integration
// @Tags Integrations
// @Accept json
// @Produce json
// @Param id path string true "Integration ID"
// @Param request body domain.UpdateIntegrationRequest true "Integration data"
// @Success 200 {object} domain.IntegrationSourceDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/{id} [put]
func (h *IntegrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateIntegrationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	source, err := h.integrationService.Update(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update integration")
		return
	}
	respondJSON(w, http.StatusOK, source)
}

// Delete godoc
// @Summary Delete integration
// @Tags Integrations
// @Param id path string true "Integration ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/{id} [delete]
func (h *IntegrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.integrationService.Delete(r.Context(), tenantFrom(r), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete integration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerSync godoc
// @Summary Trigger a sync
// @Description Opens a running sync log and posts the trigger to the integration's workflow webhook
// @Tags Integrations
// @Produce json
// @Param id path string true "Integration ID"
// @Success 202 {object} domain.IntegrationSyncLogDTO
// @Failure 400 {object} domain.APIError "No webhook URL configured"
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Workflow webhook failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/{id}/sync [post]
func (h *IntegrationHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	log, err := h.integrationService.TriggerSync(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to trigger sync")
		return
	}
	respondJSON(w, http.StatusAccepted, log)
}

// ListSyncLogs godoc
// @Summary List sync logs
// @Tags Integrations
// @Produce json
// @Param id path string true "Integration ID"
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} domain.IntegrationSyncLogDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/{id}/sync-logs [get]
func (h *IntegrationHandler) ListSyncLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	logs, err := h.integrationService.ListSyncLogs(r.Context(), tenantFrom(r), id, queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list sync logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

// ListFieldMappings godoc
// @Summary List field mappings
// @Tags Integrations
// @Produce json
// @Param id path string true "Integration ID"
// @Success 200 {array} domain.IntegrationFieldMappingDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/{id}/field-mappings [get]
func (h *IntegrationHandler) ListFieldMappings(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	mappings, err := h.integrationService.ListFieldMappings(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list field mappings")
		return
	}
	respondJSON(w, http.StatusOK, mappings)
}

// CreateFieldMapping godoc
// @Summary Create field mapping
// @Description Maps a source field of inbound records onto a target field. Supported transformation ops are lowercase, uppercase and trim.
// @Tags Integrations
// @Accept json
// @Produce json
// @Param id path string true "Integration ID"
// @Param request body domain.CreateFieldMappingRequest true "Mapping"
// @Success 201 {object} domain.IntegrationFieldMappingDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/{id}/field-mappings [post]
func (h *IntegrationHandler) CreateFieldMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.CreateFieldMappingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	mapping, err := h.integrationService.CreateFieldMapping(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create field mapping")
		return
	}
	respondJSON(w, http.StatusCreated, mapping)
}

// DeleteFieldMapping godoc
// @Summary Delete field mapping
// @Tags Integrations
// @Param id path string true "Integration ID"
// @Param mappingId path string true "Mapping ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/{id}/field-mappings/{mappingId} [delete]
func (h *IntegrationHandler) DeleteFieldMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	mappingID, ok := uuidParam(w, r, "mappingId")
	if !ok {
		return
	}

	if err := h.integrationService.DeleteFieldMapping(r.Context(), tenantFrom(r), id, mappingID); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete field mapping")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats godoc
// @Summary Integration statistics
// @Description Integration counts, synced records per type, syncs started in the last 24 hours and failed syncs in the last 7 days
// @Tags Integrations
// @Produce json
// @Success 200 {object} domain.IntegrationStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /integrations/stats [get]
func (h *IntegrationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.integrationService.Stats(r.Context(), tenantFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get integration stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ExternalData godoc
// @Summary List synced external records
// @Description Mirrored contacts, tickets or deals, most recently synced first
// @Tags Integrations
// @Produce json
// @Param type path string true "Record type" Enums(contacts, tickets, deals)
// @Param accountId query string false "Only records linked to this account"
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} object
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /external/{type} [get]
func (h *IntegrationHandler) ExternalData(w http.ResponseWriter, r *http.Request) {
	var accountID *uuid.UUID
	if raw := r.URL.Query().Get("accountId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid accountId")
			return
		}
		accountID = &id
	}

	ctx, tc, limit := r.Context(), tenantFrom(r), queryLimit(r)
	var (
		records interface{}
		err     error
	)
	switch chi.URLParam(r, "type") {
	case service.DataTypeContacts:
		records, err = h.integrationService.ListContacts(ctx, tc, accountID, limit)
	case service.DataTypeTickets:
		records, err = h.integrationService.ListTickets(ctx, tc, accountID, limit)
	case service.DataTypeDeals:
		records, err = h.integrationService.ListDeals(ctx, tc, accountID, limit)
	default:
		respondWithError(w, http.StatusBadRequest, "Invalid type")
		return
	}
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list external records")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// IngestWebhook godoc
// @Summary Inbound integration webhook
// @Description Receives a batch of synced records. Returns 200 with per-record stats even when some records fail.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param id path string true "Integration ID"
// @Param x-api-key header string false "Webhook key (may also be sent as api_key in the body)"
// @Param request body domain.WebhookEnvelope true "Record batch"
// @Success 200 {object} domain.WebhookIngestResultDTO
// @Failure 400 {object} domain.APIError "Malformed envelope"
// @Failure 401 {object} domain.APIError "Missing or invalid key"
// @Failure 404 {object} domain.APIError "Unknown integration"
// @Router /webhooks/integrations/{id} [post]
func (h *IntegrationHandler) IngestWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	var envelope domain.WebhookEnvelope
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&envelope); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	apiKey := r.Header.Get(auth.APIKeyHeader)
	if apiKey == "" {
		apiKey = envelope.APIKey
	}

	result, err := h.webhookService.IngestBatch(r.Context(), id, apiKey, &envelope, raw)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to ingest webhook")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
