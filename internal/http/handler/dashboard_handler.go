package handler

import (
	"net/http"
	"strconv"

	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// @Summary Get dashboard summary
// @Description Portfolio overview for the tenant.
// @Description
// @Description **Accounts:** `totalAccounts` and `totalArr` over all accounts.
// @Description
// @Description **Health:** `averageScore` is the mean of every account's latest score (0-1 scale).
// @Description `revenueAtRisk` sums ARR of accounts whose latest score is below 0.50 and whose ARR exceeds 100000.
// @Description
// @Description **Activity:** `alertsInRange` counts alerts created in the optional from/to window and
// @Description `negativeSources` counts sources whose stored sentiment is negative.
// @Description
// @Description **Stages:** open journey entries per stage.
// @Tags Dashboard
// @Produce json
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} domain.DashboardSummaryDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.dashboardService.Summary(r.Context(), tenantFrom(r), dateRange)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build dashboard summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// @Summary Health distribution
// @Description Buckets top-level accounts by latest score: healthy (>= 0.70), at risk (>= 0.40) and critical. Accounts without a score are counted as unscored.
// @Tags Dashboard
// @Produce json
// @Param status query string false "Filter by status" Enums(active, prospect, paused, churned)
// @Param stage query string false "Filter by current stage"
// @Param search query string false "Search by name or domain"
// @Success 200 {object} domain.HealthDistributionDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/health-distribution [get]
func (h *DashboardHandler) HealthDistribution(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseAccountFilters(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid filter parameters")
		return
	}

	dist, err := h.dashboardService.HealthDistribution(r.Context(), tenantFrom(r), filters)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to compute health distribution")
		return
	}
	respondJSON(w, http.StatusOK, dist)
}

// @Summary Revenue at risk
// @Description Accounts with ARR above 100000 and a latest score below 0.50, largest ARR first
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Maximum rows" default(10)
// @Success 200 {array} domain.RevenueAtRiskDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/revenue-at-risk [get]
func (h *DashboardHandler) RevenueAtRisk(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.dashboardService.RevenueAtRisk(r.Context(), tenantFrom(r), limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list revenue at risk")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// @Summary Portfolio growth
// @Description Distinct accounts entering each stage per day, newest day first, at most 100 rows.
// @Description `cumulativeCount` is the running total over all stages in date order.
// @Description Without `from` the window covers the last `days` days.
// @Tags Dashboard
// @Produce json
// @Param days query int false "Look-back window in days" default(90)
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end, exclusive (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {array} domain.PortfolioGrowthPointDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/portfolio-growth [get]
func (h *DashboardHandler) PortfolioGrowth(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 1 {
			respondWithError(w, http.StatusBadRequest, "Invalid days")
			return
		}
	}

	points, err := h.dashboardService.PortfolioGrowth(r.Context(), tenantFrom(r), days, dateRange)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to compute portfolio growth")
		return
	}
	respondJSON(w, http.StatusOK, points)
}
