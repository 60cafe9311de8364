package handler

import (
	"net/http"

	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

type StageHandler struct {
	stageService *service.LifecycleStageService
	logger       *zap.Logger
}

func NewStageHandler(stageService *service.LifecycleStageService, logger *zap.Logger) *StageHandler {
	return &StageHandler{stageService: stageService, logger: logger}
}

// List godoc
// @Summary List lifecycle stages
// @Tags Stages
// @Produce json
// @Success 200 {array} domain.LifecycleStageDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stages [get]
func (h *StageHandler) List(w http.ResponseWriter, r *http.Request) {
	stages, err := h.stageService.List(r.Context(), tenantFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list stages")
		return
	}
	respondJSON(w, http.StatusOK, stages)
}

// Create godoc
// @Summary Create lifecycle stage
// @Tags Stages
// @Accept json
// @Produce json
// @Param request body domain.CreateLifecycleStageRequest true "Stage data"
// @Success 201 {object} domain.LifecycleStageDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Name already exists"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stages [post]
func (h *StageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLifecycleStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	stage, err := h.stageService.Create(r.Context(), tenantFrom(r), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create stage")
		return
	}
	respondJSON(w, http.StatusCreated, stage)
}

// GetByID godoc
// @Summary Get lifecycle stage
// @Tags Stages
// @Produce json
// @Param id path string true "Stage ID"
// @Success 200 {object} domain.LifecycleStageDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stages/{id} [get]
func (h *StageHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	stage, err := h.stageService.GetByID(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get stage")
		return
	}
	respondJSON(w, http.StatusOK, stage)
}

// Update godoc
// @Summary Update lifecycle stage
// @Tags Stages
// @Accept json
// @Produce json
// @Param id path string true "Stage ID"
// @Param request body domain.UpdateLifecycleStageRequest true "Stage data"
// @Success 200 {object} domain.LifecycleStageDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Stage in use or name exists"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stages/{id} [put]
func (h *StageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateLifecycleStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	stage, err := h.stageService.Update(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update stage")
		return
	}
	respondJSON(w, http.StatusOK, stage)
}

// Delete godoc
// @Summary Delete lifecycle stage
// @Tags Stages
// @Param id path string true "Stage ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Stage in use"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stages/{id} [delete]
func (h *StageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.stageService.Delete(r.Context(), tenantFrom(r), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete stage")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMilestones godoc
// @Summary List stage milestones
// @Tags Stages
// @Produce json
// @Param id path string true "Stage ID"
// @Success 200 {array} domain.StageMilestoneDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stages/{id}/milestones [get]
func (h *StageHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	milestones, err := h.stageService.ListMilestones(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list milestones")
		return
	}
	respondJSON(w, http.StatusOK, milestones)
}

// CreateMilestone godoc
// @Summary Create stage milestone
// @Tags Stages
// @Accept json
// @Produce json
// @Param id path string true "Stage ID"
// @Param request body domain.CreateMilestoneRequest true "Milestone data"
// @Success 201 {object} domain.StageMilestoneDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /stages/{id}/milestones [post]
func (h *StageHandler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.CreateMilestoneRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	milestone, err := h.stageService.CreateMilestone(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create milestone")
		return
	}
	respondJSON(w, http.StatusCreated, milestone)
}

// UpdateMilestone godoc
// @Summary Update stage milestone
// @Description Only the fields present in the body are changed
// @Tags Stages
// @Accept json
// @Produce json
// @Param id path string true "Milestone ID"
// @Param request body domain.UpdateMilestoneRequest true "Milestone data"
// @Success 200 {object} domain.StageMilestoneDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /milestones/{id} [put]
func (h *StageHandler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateMilestoneRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	milestone, err := h.stageService.UpdateMilestone(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update milestone")
		return
	}
	respondJSON(w, http.StatusOK, milestone)
}

// DeleteMilestone godoc
// @Summary Delete stage milestone
// @Tags Stages
// @Param id path string true "Milestone ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /milestones/{id} [delete]
func (h *StageHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.stageService.DeleteMilestone(r.Context(), tenantFrom(r), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete milestone")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
