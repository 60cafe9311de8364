package handler

import (
	"net/http"

	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

type PlaybookHandler struct {
	playbookService *service.PlaybookService
	logger          *zap.Logger
}

func NewPlaybookHandler(playbookService *service.PlaybookService, logger *zap.Logger) *PlaybookHandler {
	return &PlaybookHandler{playbookService: playbookService, logger: logger}
}

// List godoc
// @Summary List playbooks
// @Tags Playbooks
// @Produce json
// @Param activeOnly query bool false "Only active playbooks"
// @Success 200 {array} domain.PlaybookDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /playbooks [get]
func (h *PlaybookHandler) List(w http.ResponseWriter, r *http.Request) {
	playbooks, err := h.playbookService.List(r.Context(), tenantFrom(r), r.URL.Query().Get("activeOnly") == "true")
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list playbooks")
		return
	}
	respondJSON(w, http.StatusOK, playbooks)
}

// Create godoc
// @Summary Create playbook
// @Tags Playbooks
// @Accept json
// @Produce json
// @Param request body domain.CreatePlaybookRequest true "Playbook data"
// @Success 201 {object} domain.PlaybookDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /playbooks [post]
func (h *PlaybookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePlaybookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	playbook, err := h.playbookService.Create(r.Context(), tenantFrom(r), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create playbook")
		return
	}
	respondJSON(w, http.StatusCreated, playbook)
}

// GetByID godoc
// @Summary Get playbook
// @Tags Playbooks
// @Produce json
// @Param id path string true "Playbook ID"
// @Success 200 {object} domain.PlaybookDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /playbooks/{id} [get]
func (h *PlaybookHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	playbook, err := h.playbookService.GetByID(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get playbook")
		return
	}
	respondJSON(w, http.StatusOK, playbook)
}

// Update godoc
// @Summary Update playbook
// @Tags Playbooks
// @Accept json
// @Produce json
// @Param id path string true "Playbook ID"
// @Param request body domain.UpdatePlaybookRequest true "Playbook data"
// @Success 200 {object} domain.PlaybookDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /playbooks/{id} [put]
func (h *PlaybookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdatePlaybookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	playbook, err := h.playbookService.Update(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update playbook")
		return
	}
	respondJSON(w, http.StatusOK, playbook)
}

// Delete godoc
// @Summary Delete playbook
// @Tags Playbooks
// @Param id path string true "Playbook ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /playbooks/{id} [delete]
func (h *PlaybookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.playbookService.Delete(r.Context(), tenantFrom(r), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete playbook")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Run godoc
// @Summary Run playbook
// @Description Execute an active playbook against an account and record the run
// @Tags Playbooks
// @Accept json
// @Produce json
// @Param id path string true "Playbook ID"
// @Param request body domain.RunPlaybookRequest true "Target account"
// @Success 201 {object} domain.PlaybookRunDTO
// @Failure 404 {object} domain.APIError "Playbook or account not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /playbooks/{id}/run [post]
func (h *PlaybookHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.RunPlaybookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	run, err := h.playbookService.RunPlaybook(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to run playbook")
		return
	}
	respondJSON(w, http.StatusCreated, run)
}

// ListRuns godoc
// @Summary List playbook runs for an account
// @Tags Playbooks
// @Produce json
// @Param id path string true "Account ID"
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} domain.PlaybookRunDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/playbook-runs [get]
func (h *PlaybookHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	runs, err := h.playbookService.ListPlaybookRuns(r.Context(), tenantFrom(r), id, queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list playbook runs")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}
