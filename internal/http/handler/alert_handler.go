package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

type AlertHandler struct {
	alertService *service.AlertService
	logger       *zap.Logger
}

func NewAlertHandler(alertService *service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{alertService: alertService, logger: logger}
}

// List godoc
// @Summary List alerts
// @Description Alert feed, newest first
// @Tags Alerts
// @Produce json
// @Param accountId query string false "Filter by account"
// @Param type query string false "Filter by alert type" Enums(health_dip, sentiment_negative, revenue_at_risk, manual)
// @Param severity query string false "Filter by severity" Enums(info, warning, critical)
// @Param from query string false "Created at or after (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Created before (RFC 3339 or YYYY-MM-DD)"
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} domain.AlertDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /alerts [get]
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := domain.AlertFilters{Limit: queryLimit(r)}

	if accountID := q.Get("accountId"); accountID != "" {
		id, err := uuid.Parse(accountID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid accountId")
			return
		}
		filters.AccountID = &id
	}
	if alertType := q.Get("type"); alertType != "" {
		t := domain.AlertType(alertType)
		filters.AlertType = &t
	}
	if severity := q.Get("severity"); severity != "" {
		s := domain.AlertSeverity(severity)
		filters.Severity = &s
	}
	created, err := parseDateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters.Created = created

	alerts, err := h.alertService.ListAlerts(r.Context(), tenantFrom(r), filters)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list alerts")
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}
