package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/service"
	"go.uber.org/zap"
)

type AccountHandler struct {
	accountService *service.AccountService
	logger         *zap.Logger
}

func NewAccountHandler(accountService *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// parseAccountFilters reads the shared account filter query parameters
func parseAccountFilters(r *http.Request) (domain.AccountFilters, bool) {
	q := r.URL.Query()
	filters := domain.AccountFilters{
		Search:   q.Get("search"),
		RootOnly: q.Get("rootOnly") == "true",
	}

	if status := q.Get("status"); status != "" {
		s := domain.AccountStatus(status)
		if !s.IsValid() {
			return filters, false
		}
		filters.Status = &s
	}
	if stage := q.Get("stage"); stage != "" {
		filters.Stage = &stage
	}
	if parent := q.Get("parentId"); parent != "" {
		id, err := uuid.Parse(parent)
		if err != nil {
			return filters, false
		}
		filters.ParentID = &id
	}
	if minARR := q.Get("minArr"); minARR != "" {
		v, err := strconv.ParseFloat(minARR, 64)
		if err != nil {
			return filters, false
		}
		filters.MinARR = &v
	}
	if maxARR := q.Get("maxArr"); maxARR != "" {
		v, err := strconv.ParseFloat(maxARR, 64)
		if err != nil {
			return filters, false
		}
		filters.MaxARR = &v
	}
	return filters, true
}

// List godoc
// @Summary List accounts
// @Description Get a paginated list of accounts with optional filters
// @Tags Accounts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name or domain"
// @Param status query string false "Filter by status" Enums(active, prospect, paused, churned)
// @Param stage query string false "Filter by current lifecycle stage"
// @Param parentId query string false "Filter by parent account"
// @Param rootOnly query bool false "Only accounts without a parent"
// @Param minArr query number false "Minimum ARR"
// @Param maxArr query number false "Maximum ARR"
// @Param sortBy query string false "Sort field" Enums(name, arr, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AccountDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts [get]
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	filters, ok := parseAccountFilters(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid filter parameters")
		return
	}

	sort := repository.DefaultSortConfig()
	if field := r.URL.Query().Get("sortBy"); field != "" {
		sort.Field = field
	}
	if order := r.URL.Query().Get("sortOrder"); order != "" {
		sort.Order = repository.ParseSortOrder(order)
	}

	result, err := h.accountService.List(r.Context(), tenantFrom(r), filters, sort, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list accounts")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create account
// @Description Create an account, optionally under a parent, and enter its initial lifecycle stage
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body domain.CreateAccountRequest true "Account data"
// @Success 201 {object} domain.AccountDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Parent not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.accountService.Create(r.Context(), tenantFrom(r), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create account")
		return
	}

	w.Header().Set("Location", "/api/v1/accounts/"+account.ID.String())
	respondJSON(w, http.StatusCreated, account)
}

// GetByID godoc
// @Summary Get account
// @Description Get an account with its latest health score and open alert count
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} domain.AccountWithHealthDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.accountService.GetByID(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get account")
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// Update godoc
// @Summary Update account
// @Description Update an account. Changing the parent moves the whole subtree.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.UpdateAccountRequest true "Account data"
// @Success 200 {object} domain.AccountDTO
// @Failure 400 {object} domain.APIError "Validation error or hierarchy cycle"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id} [put]
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.accountService.Update(r.Context(), tenantFrom(r), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update account")
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// Delete godoc
// @Summary Delete account
// @Tags Accounts
// @Param id path string true "Account ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Account has children"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id} [delete]
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.accountService.Delete(r.Context(), tenantFrom(r), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChildren godoc
// @Summary List child accounts
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {array} domain.AccountDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/children [get]
func (h *AccountHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	children, err := h.accountService.ListChildren(r.Context(), tenantFrom(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list child accounts")
		return
	}

	respondJSON(w, http.StatusOK, children)
}
