package handler

import (
	"net/http"

	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

type SuccessPlanHandler struct {
	planService *service.SuccessPlanService
	logger      *zap.Logger
}

func NewSuccessPlanHandler(planService *service.SuccessPlanService, logger *zap.Logger) *SuccessPlanHandler {
	return &SuccessPlanHandler{planService: planService, logger: logger}
}

// ListPlans godoc
// @Summary List success plans
// @Tags SuccessPlans
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {array} domain.SuccessPlanDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/success-plans [get]
func (h *SuccessPlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	plans, err := h.planService.ListPlans(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list success plans")
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// CreatePlan godoc
// @Summary Create success plan
// @Tags SuccessPlans
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.CreateSuccessPlanRequest true "Plan data"
// @Success 201 {object} domain.SuccessPlanDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/success-plans [post]
func (h *SuccessPlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.CreateSuccessPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.planService.CreatePlan(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create success plan")
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

// ListSteps godoc
// @Summary List plan steps
// @Tags SuccessPlans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {array} domain.SuccessPlanStepDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /success-plans/{id}/steps [get]
func (h *SuccessPlanHandler) ListSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	steps, err := h.planService.ListSteps(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list plan steps")
		return
	}
	respondJSON(w, http.StatusOK, steps)
}

// AddStep godoc
// @Summary Add plan step
// @Description New steps start pending. Without sortOrder the step is appended after the last one.
// @Tags SuccessPlans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param request body domain.AddPlanStepRequest true "Step data"
// @Success 201 {object} domain.SuccessPlanStepDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /success-plans/{id}/steps [post]
func (h *SuccessPlanHandler) AddStep(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.AddPlanStepRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	step, err := h.planService.AddStep(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to add plan step")
		return
	}
	respondJSON(w, http.StatusCreated, step)
}

// UpdateStepStatus godoc
// @Summary Update plan step status
// @Tags SuccessPlans
// @Accept json
// @Produce json
// @Param id path string true "Step ID"
// @Param request body domain.UpdatePlanStepStatusRequest true "New status"
// @Success 200 {object} domain.SuccessPlanStepDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /success-plan-steps/{id}/status [put]
func (h *SuccessPlanHandler) UpdateStepStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdatePlanStepStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	step, err := h.planService.UpdateStepStatus(r.Context(), tenantFrom(r), id, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update plan step")
		return
	}
	respondJSON(w, http.StatusOK, step)
}
