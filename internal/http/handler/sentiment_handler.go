package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

// SentimentHandler serves sentiment analysis and follow-up drafting
type SentimentHandler struct {
	sentimentService *service.SentimentService
	followUpService  *service.FollowUpService
	logger           *zap.Logger
}

func NewSentimentHandler(sentimentService *service.SentimentService, followUpService *service.FollowUpService, logger *zap.Logger) *SentimentHandler {
	return &SentimentHandler{
		sentimentService: sentimentService,
		followUpService:  followUpService,
		logger:           logger,
	}
}

// Analyze godoc
// @Summary Analyze text sentiment
// @Description Classify a piece of customer text and store it per source. A strongly negative result raises an alert.
// @Tags Sentiment
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.AnalyzeTextRequest true "Text to analyze"
// @Success 200 {object} domain.SentimentResultDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Sentiment provider failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/sentiment [post]
func (h *SentimentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.AnalyzeTextRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.sentimentService.AnalyzeText(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to analyze sentiment")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// AnalyzeBatch godoc
// @Summary Analyze a batch of texts
// @Description Each item is analyzed independently; failures are counted and do not stop the batch
// @Tags Sentiment
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.AnalyzeBatchRequest true "Items to analyze"
// @Success 200 {object} domain.SentimentBatchResultDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/sentiment/batch [post]
func (h *SentimentHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.AnalyzeBatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.sentimentService.AnalyzeBatch(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to analyze sentiment batch")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// List godoc
// @Summary List sentiment analyses
// @Tags Sentiment
// @Produce json
// @Param id path string true "Account ID"
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} domain.SentimentAnalysisDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/sentiment [get]
func (h *SentimentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	analyses, err := h.sentimentService.ListSentiment(r.Context(), tenantFrom(r), id, queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list sentiment")
		return
	}
	respondJSON(w, http.StatusOK, analyses)
}

// DraftFollowUp godoc
// @Summary Draft a follow-up email
// @Description Drafts a follow-up email from the account's health, stage and recent alerts
// @Tags Sentiment
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.FollowUpRequest false "Extra context"
// @Success 200 {object} domain.FollowUpDTO
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/follow-up [post]
func (h *SentimentHandler) DraftFollowUp(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := h.followUpService.DraftFollowUp(r.Context(), tenantFrom(r), id, req.Context)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to draft follow-up")
		return
	}
	respondJSON(w, http.StatusOK, draft)
}
