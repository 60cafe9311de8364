package handler

import (
	"net/http"

	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

// EventHandler serves customer data events
type EventHandler struct {
	cdiService *service.CDIService
	logger     *zap.Logger
}

func NewEventHandler(cdiService *service.CDIService, logger *zap.Logger) *EventHandler {
	return &EventHandler{cdiService: cdiService, logger: logger}
}

// Ingest godoc
// @Summary Ingest a customer data event
// @Tags Events
// @Accept json
// @Produce json
// @Param request body domain.IngestCDIEventRequest true "Event"
// @Success 201 {object} domain.CDIEventDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Account not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /events [post]
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req domain.IngestCDIEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.cdiService.IngestEvent(r.Context(), tenantFrom(r), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to ingest event")
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// ListRecent godoc
// @Summary Recent events across accounts
// @Tags Events
// @Produce json
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} domain.CDIEventDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /events [get]
func (h *EventHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	events, err := h.cdiService.ListRecentEvents(r.Context(), tenantFrom(r), queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// ListForAccount godoc
// @Summary Events for an account
// @Tags Events
// @Produce json
// @Param id path string true "Account ID"
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} domain.CDIEventDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/events [get]
func (h *EventHandler) ListForAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	events, err := h.cdiService.ListEvents(r.Context(), tenantFrom(r), id, queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}
