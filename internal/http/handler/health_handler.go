package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

// HealthHandler serves health scores, lifecycle stage transitions and stage weights
type HealthHandler struct {
	healthService  *service.HealthScoreService
	journeyService *service.JourneyService
	weightService  *service.WeightService
	logger         *zap.Logger
}

func NewHealthHandler(
	healthService *service.HealthScoreService,
	journeyService *service.JourneyService,
	weightService *service.WeightService,
	logger *zap.Logger,
) *HealthHandler {
	return &HealthHandler{
		healthService:  healthService,
		journeyService: journeyService,
		weightService:  weightService,
		logger:         logger,
	}
}

// RecordHealthScore godoc
// @Summary Record a health score
// @Description Compute a weighted score from component metrics using the stage weights, store it with its trend and raise a dip alert when it falls
// @Tags Health
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.RecordHealthScoreRequest true "Metrics and window"
// @Success 201 {object} domain.HealthScoreResultDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/health-scores [post]
func (h *HealthHandler) RecordHealthScore(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.RecordHealthScoreRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.healthService.RecordHealthScore(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to record health score")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// ListHealthScores godoc
// @Summary List health scores
// @Tags Health
// @Produce json
// @Param id path string true "Account ID"
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} domain.HealthScoreDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/health-scores [get]
func (h *HealthHandler) ListHealthScores(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	scores, err := h.healthService.ListHealthScores(r.Context(), tenantFrom(r), id, queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list health scores")
		return
	}

	respondJSON(w, http.StatusOK, scores)
}

// LatestHealthScore godoc
// @Summary Latest health score
// @Tags Health
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} domain.HealthScoreDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/health-scores/latest [get]
func (h *HealthHandler) LatestHealthScore(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	score, err := h.healthService.LatestHealthScore(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get latest health score")
		return
	}

	respondJSON(w, http.StatusOK, score)
}

// UpdateStage godoc
// @Summary Move an account to a lifecycle stage
// @Description Closes the open journey entry and opens a new one. Moving to the current stage is a no-op.
// @Tags Journey
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.UpdateStageRequest true "Target stage"
// @Success 200 {object} domain.StageTransitionDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/stage [put]
func (h *HealthHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	transition, err := h.journeyService.UpdateAccountStage(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update account stage")
		return
	}

	respondJSON(w, http.StatusOK, transition)
}

// JourneyHistory godoc
// @Summary Journey history
// @Tags Journey
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {array} domain.JourneyHistoryEntryDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/journey [get]
func (h *HealthHandler) JourneyHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	history, err := h.journeyService.GetJourneyHistory(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get journey history")
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// StageOccupancy godoc
// @Summary Accounts per open stage
// @Tags Journey
// @Produce json
// @Success 200 {array} domain.StageCountDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /journey/occupancy [get]
func (h *HealthHandler) StageOccupancy(w http.ResponseWriter, r *http.Request) {
	counts, err := h.journeyService.StageOccupancy(r.Context(), tenantFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to count stage occupancy")
		return
	}

	respondJSON(w, http.StatusOK, counts)
}

// ListWeights godoc
// @Summary List stored stage weights
// @Tags Weights
// @Produce json
// @Success 200 {array} domain.StageWeightsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /weights [get]
func (h *HealthHandler) ListWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := h.weightService.ListWeights(r.Context(), tenantFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list weights")
		return
	}

	respondJSON(w, http.StatusOK, weights)
}

// GetWeights godoc
// @Summary Resolve weights for a stage
// @Description Returns the stored weights for the stage, or the defaults when none are stored
// @Tags Weights
// @Produce json
// @Param stage path string true "Stage name"
// @Success 200 {object} domain.StageWeightsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /weights/{stage} [get]
func (h *HealthHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := h.weightService.GetWeights(r.Context(), tenantFrom(r), chi.URLParam(r, "stage"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get weights")
		return
	}

	respondJSON(w, http.StatusOK, weights)
}

// SetWeights godoc
// @Summary Store weights for a stage
// @Tags Weights
// @Accept json
// @Produce json
// @Param stage path string true "Stage name"
// @Param request body domain.SetWeightsRequest true "Metric weights"
// @Success 200 {object} domain.StageWeightsDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /weights/{stage} [put]
func (h *HealthHandler) SetWeights(w http.ResponseWriter, r *http.Request) {
	var req domain.SetWeightsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	weights, err := h.weightService.SetWeights(r.Context(), tenantFrom(r), chi.URLParam(r, "stage"), req.Weights)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to set weights")
		return
	}

	respondJSON(w, http.StatusOK, weights)
}
