package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

type AccountDTO struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	ParentID       *uuid.UUID    `json:"parentId,omitempty"`
	HierarchyLevel int           `json:"hierarchyLevel"`
	HierarchyPath  string        `json:"hierarchyPath"`
	Status         AccountStatus `json:"status"`
	ARR            float64       `json:"arr"`
	CurrentStage   *string       `json:"currentStage,omitempty"`
	OwnerID        string        `json:"ownerId,omitempty"`
	Domain         string        `json:"domain,omitempty"`
	Industry       string        `json:"industry,omitempty"`
	ExternalRef    string        `json:"externalRef,omitempty"`
	CreatedAt      string        `json:"createdAt"` // ISO 8601
	UpdatedAt      string        `json:"updatedAt"` // ISO 8601
}

// AccountWithHealthDTO adds the latest health snapshot to an account
type AccountWithHealthDTO struct {
	AccountDTO
	LatestHealth *HealthScoreDTO `json:"latestHealth,omitempty"`
	OpenAlerts   int64           `json:"recentAlerts"`
}

type LifecycleStageDTO struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	SortOrder   int                `json:"sortOrder"`
	IsActive    bool               `json:"isActive"`
	Weights     map[string]float64 `json:"weights"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   string             `json:"updatedAt"`
}

// StageWeightsDTO is the resolved weight set for a stage
type StageWeightsDTO struct {
	Stage     string             `json:"stage"`
	Weights   map[string]float64 `json:"weights"`
	IsDefault bool               `json:"isDefault"`
}

type HealthScoreDTO struct {
	ID           uuid.UUID          `json:"id"`
	AccountID    uuid.UUID          `json:"accountId"`
	Stage        string             `json:"stage"`
	Score        float64            `json:"score"`
	Metrics      map[string]float64 `json:"metrics"`
	WindowStart  string             `json:"windowStart"`
	WindowEnd    string             `json:"windowEnd"`
	Trend        *float64           `json:"trend"`
	Notes        *string            `json:"notes,omitempty"`
	CalculatedAt string             `json:"calculatedAt"`
}

// HealthScoreResultDTO is returned by a scoring call
type HealthScoreResultDTO struct {
	ID       uuid.UUID  `json:"id"`
	Score    float64    `json:"score"`
	Trend    *float64   `json:"trend"`
	AlertID  *uuid.UUID `json:"alertId,omitempty"`
	Category string     `json:"category"`
}

type AlertDTO struct {
	ID        uuid.UUID              `json:"id"`
	AccountID uuid.UUID              `json:"accountId"`
	AlertType AlertType              `json:"alertType"`
	Severity  AlertSeverity          `json:"severity"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	CreatedAt string                 `json:"createdAt"`
}

type JourneyHistoryEntryDTO struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"accountId"`
	FromStage *string   `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	EnteredAt string    `json:"enteredAt"`
	ExitedAt  *string   `json:"exitedAt"`
	ChangedBy string    `json:"changedBy"`
	Reason    string    `json:"reason,omitempty"`
}

// StageTransitionDTO reports the outcome of a stage change request
type StageTransitionDTO struct {
	AccountID uuid.UUID               `json:"accountId"`
	Changed   bool                    `json:"changed"`
	FromStage *string                 `json:"fromStage"`
	ToStage   string                  `json:"toStage"`
	Entry     *JourneyHistoryEntryDTO `json:"entry,omitempty"`
}

type SentimentAnalysisDTO struct {
	ID         uuid.UUID      `json:"id"`
	AccountID  uuid.UUID      `json:"accountId"`
	SourceType string         `json:"sourceType"`
	SourceID   string         `json:"sourceId"`
	Score      float64        `json:"score"`
	Magnitude  *float64       `json:"magnitude,omitempty"`
	Label      SentimentLabel `json:"label"`
	Summary    *string        `json:"summary,omitempty"`
	Language   string         `json:"language"`
	CreatedAt  string         `json:"createdAt"`
	UpdatedAt  string         `json:"updatedAt"`
}

// SentimentResultDTO is returned for each analyzed text
type SentimentResultDTO struct {
	ID      uuid.UUID      `json:"id"`
	Label   SentimentLabel `json:"label"`
	Score   float64        `json:"score"`
	Alerted bool           `json:"alerted"`
}

// SentimentBatchResultDTO tallies a batch analysis
type SentimentBatchResultDTO struct {
	Processed int                  `json:"processed"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Results   []SentimentResultDTO `json:"results"`
	Errors    []BatchItemErrorDTO  `json:"errors,omitempty"`
}

// BatchItemErrorDTO describes why one batch item failed
type BatchItemErrorDTO struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

type PlaybookDTO struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	ScenarioKey string                 `json:"scenarioKey,omitempty"`
	Description string                 `json:"description,omitempty"`
	Triggers    map[string]interface{} `json:"triggers"`
	Actions     []PlaybookAction       `json:"actions"`
	IsActive    bool                   `json:"isActive"`
	CreatedAt   string                 `json:"createdAt"`
	UpdatedAt   string                 `json:"updatedAt"`
}

// PlaybookAction is one step a playbook performs
type PlaybookAction struct {
	Type   string                 `json:"type" validate:"required,max=100"`
	Config map[string]interface{} `json:"config,omitempty"`
}

type PlaybookRunDTO struct {
	ID           uuid.UUID              `json:"id"`
	PlaybookID   uuid.UUID              `json:"playbookId"`
	PlaybookName string                 `json:"playbookName,omitempty"`
	AccountID    uuid.UUID              `json:"accountId"`
	Status       PlaybookRunStatus      `json:"status"`
	TriggeredBy  string                 `json:"triggeredBy"`
	Result       map[string]interface{} `json:"result"`
	CreatedAt    string                 `json:"createdAt"`
}

type CDIEventDTO struct {
	ID         uuid.UUID              `json:"id"`
	AccountID  *uuid.UUID             `json:"accountId,omitempty"`
	SourceType CDISourceType          `json:"sourceType"`
	EventType  string                 `json:"eventType"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt string                 `json:"occurredAt"`
	CreatedAt  string                 `json:"createdAt"`
}

type IntegrationSourceDTO struct {
	ID             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	ProviderType   string                 `json:"providerType"`
	WebhookURL     string                 `json:"webhookUrl,omitempty"`
	Config         map[string]interface{} `json:"config"`
	IsActive       bool                   `json:"isActive"`
	LastSyncAt     *string                `json:"lastSyncAt,omitempty"`
	LastSyncStatus *SyncStatus            `json:"lastSyncStatus,omitempty"`
	CreatedAt      string                 `json:"createdAt"`
	UpdatedAt      string                 `json:"updatedAt"`
}

type IntegrationSyncLogDTO struct {
	ID               uuid.UUID  `json:"id"`
	IntegrationID    uuid.UUID  `json:"integrationId"`
	Status           SyncStatus `json:"status"`
	RecordsProcessed int        `json:"recordsProcessed"`
	RecordsCreated   int        `json:"recordsCreated"`
	RecordsUpdated   int        `json:"recordsUpdated"`
	RecordsFailed    int        `json:"recordsFailed"`
	ErrorMessage     *string    `json:"errorMessage,omitempty"`
	StartedAt        string     `json:"startedAt"`
	CompletedAt      *string    `json:"completedAt,omitempty"`
}

// BatchStats counts the outcome of an inbound record batch
type BatchStats struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// Status derives the sync log status from the batch counts
func (s BatchStats) Status() SyncStatus {
	switch {
	case s.Failed == 0:
		return SyncStatusSuccess
	case s.Failed == s.Processed:
		return SyncStatusFailed
	default:
		return SyncStatusPartial
	}
}

// WebhookIngestResultDTO is the body of every accepted webhook call
type WebhookIngestResultDTO struct {
	Success   bool       `json:"success"`
	SyncLogID uuid.UUID  `json:"syncLogId"`
	Status    SyncStatus `json:"status"`
	Stats     BatchStats `json:"stats"`
}

// HealthCategory buckets a health score for dashboards
type HealthCategory string

const (
	HealthCategoryHealthy  HealthCategory = "healthy"
	HealthCategoryAtRisk   HealthCategory = "at_risk"
	HealthCategoryCritical HealthCategory = "critical"
)

// HealthDistributionDTO counts root accounts per health category
type HealthDistributionDTO struct {
	Healthy  int64 `json:"healthy"`
	AtRisk   int64 `json:"atRisk"`
	Critical int64 `json:"critical"`
	Unscored int64 `json:"unscored"`
	Total    int64 `json:"total"`
}

// RevenueAtRiskDTO is one high-value account with a low score
type RevenueAtRiskDTO struct {
	AccountID    uuid.UUID `json:"accountId"`
	Name         string    `json:"name"`
	ARR          float64   `json:"arr"`
	Score        float64   `json:"score"`
	CurrentStage *string   `json:"currentStage,omitempty"`
}

// StageCountDTO counts accounts currently in a stage
type StageCountDTO struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
}

// DashboardSummaryDTO aggregates tenant-level figures
type DashboardSummaryDTO struct {
	TotalAccounts int64           `json:"totalAccounts"`
	AlertsInRange int64           `json:"alertsInRange"`
	AverageScore  *float64        `json:"averageScore"`
	Stages        []StageCountDTO `json:"stages"`
	// AverageDaysInStage covers completed stays only, keyed by stage
	AverageDaysInStage map[string]float64 `json:"averageDaysInStage"`
	TotalARR           float64            `json:"totalArr"`
	RevenueAtRisk      float64            `json:"revenueAtRisk"`
	RangeStart         *string            `json:"rangeStart,omitempty"`
	RangeEnd           *string            `json:"rangeEnd,omitempty"`
	NegativeSources    int64              `json:"negativeSentimentSources"`
}

// FollowUpDTO is an AI-drafted follow-up email
type FollowUpDTO struct {
	AccountID uuid.UUID `json:"accountId"`
	EmailBody string    `json:"emailBody"`
}

// PortfolioGrowthPointDTO counts accounts entering a stage on one day.
// CumulativeCount is the running total over all stages up to that day.
type PortfolioGrowthPointDTO struct {
	Date            string `json:"date"` // YYYY-MM-DD
	Stage           string `json:"stage"`
	AccountCount    int64  `json:"accountCount"`
	CumulativeCount int64  `json:"cumulativeCount"`
}

type StageMilestoneDTO struct {
	ID          uuid.UUID `json:"id"`
	StageID     uuid.UUID `json:"stageId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

type SuccessPlanDTO struct {
	ID         uuid.UUID              `json:"id"`
	AccountID  uuid.UUID              `json:"accountId"`
	Name       string                 `json:"name"`
	TargetDate *string                `json:"targetDate,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
	CreatedAt  string                 `json:"createdAt"`
	UpdatedAt  string                 `json:"updatedAt"`
}

type SuccessPlanStepDTO struct {
	ID             uuid.UUID      `json:"id"`
	PlanID         uuid.UUID      `json:"planId"`
	Title          string         `json:"title"`
	DueDate        *string        `json:"dueDate,omitempty"`
	AssigneeUserID *string        `json:"assigneeUserId,omitempty"`
	Status         PlanStepStatus `json:"status"`
	SortOrder      int            `json:"sortOrder"`
	CreatedAt      string         `json:"createdAt"`
	UpdatedAt      string         `json:"updatedAt"`
}

type IntegrationFieldMappingDTO struct {
	ID                 uuid.UUID              `json:"id"`
	IntegrationID      uuid.UUID              `json:"integrationId"`
	SourceField        string                 `json:"sourceField"`
	TargetTable        string                 `json:"targetTable"`
	TargetField        string                 `json:"targetField"`
	TransformationRule map[string]interface{} `json:"transformationRule"`
	IsRequired         bool                   `json:"isRequired"`
	DefaultValue       *string                `json:"defaultValue,omitempty"`
	CreatedAt          string                 `json:"createdAt"`
}

// IntegrationStatsDTO summarises a tenant's integrations and sync activity
type IntegrationStatsDTO struct {
	TotalIntegrations  int64 `json:"totalIntegrations"`
	ActiveIntegrations int64 `json:"activeIntegrations"`
	TotalSyncedRecords int64 `json:"totalSyncedRecords"`
	Contacts           int64 `json:"contacts"`
	Tickets            int64 `json:"tickets"`
	Deals              int64 `json:"deals"`
	Last24hSyncs       int64 `json:"last24hSyncs"`
	FailedSyncs        int64 `json:"failedSyncs"` // last 7 days
}

type ExternalContactDTO struct {
	ID           uuid.UUID              `json:"id"`
	ExternalID   string                 `json:"externalId"`
	SourceType   string                 `json:"sourceType"`
	AccountID    *uuid.UUID             `json:"accountId,omitempty"`
	FirstName    string                 `json:"firstName,omitempty"`
	LastName     string                 `json:"lastName,omitempty"`
	Email        string                 `json:"email,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	Title        string                 `json:"title,omitempty"`
	Properties   map[string]interface{} `json:"properties"`
	LastSyncedAt string                 `json:"lastSyncedAt"`
}

type ExternalTicketDTO struct {
	ID            uuid.UUID              `json:"id"`
	ExternalID    string                 `json:"externalId"`
	SourceType    string                 `json:"sourceType"`
	AccountID     *uuid.UUID             `json:"accountId,omitempty"`
	Title         string                 `json:"title,omitempty"`
	Status        string                 `json:"status,omitempty"`
	Priority      string                 `json:"priority,omitempty"`
	ReporterEmail string                 `json:"reporterEmail,omitempty"`
	Properties    map[string]interface{} `json:"properties"`
	LastSyncedAt  string                 `json:"lastSyncedAt"`
}

type ExternalDealDTO struct {
	ID           uuid.UUID              `json:"id"`
	ExternalID   string                 `json:"externalId"`
	SourceType   string                 `json:"sourceType"`
	AccountID    *uuid.UUID             `json:"accountId,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Stage        string                 `json:"stage,omitempty"`
	Amount       float64                `json:"amount"`
	OwnerEmail   string                 `json:"ownerEmail,omitempty"`
	Properties   map[string]interface{} `json:"properties"`
	LastSyncedAt string                 `json:"lastSyncedAt"`
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// API Response wrapper
type APIResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
}

// Request DTOs

type CreateAccountRequest struct {
	Name         string        `json:"name" validate:"required,max=200"`
	ParentID     *uuid.UUID    `json:"parentId,omitempty"`
	Status       AccountStatus `json:"status,omitempty" validate:"omitempty,oneof=active prospect paused churned"`
	ARR          float64       `json:"arr,omitempty" validate:"gte=0"`
	InitialStage string        `json:"initialStage,omitempty" validate:"max=100"`
	OwnerID      string        `json:"ownerId,omitempty" validate:"max=100"`
	Domain       string        `json:"domain,omitempty" validate:"max=255"`
	Industry     string        `json:"industry,omitempty" validate:"max=100"`
	ExternalRef  string        `json:"externalRef,omitempty" validate:"max=100"`
}

type UpdateAccountRequest struct {
	Name        string        `json:"name" validate:"required,max=200"`
	ParentID    *uuid.UUID    `json:"parentId,omitempty"`
	Status      AccountStatus `json:"status" validate:"required,oneof=active prospect paused churned"`
	ARR         float64       `json:"arr" validate:"gte=0"`
	OwnerID     string        `json:"ownerId,omitempty" validate:"max=100"`
	Domain      string        `json:"domain,omitempty" validate:"max=255"`
	Industry    string        `json:"industry,omitempty" validate:"max=100"`
	ExternalRef string        `json:"externalRef,omitempty" validate:"max=100"`
}

type CreateLifecycleStageRequest struct {
	Name        string             `json:"name" validate:"required,max=100"`
	Description string             `json:"description,omitempty"`
	SortOrder   int                `json:"sortOrder"`
	Weights     map[string]float64 `json:"weights,omitempty"`
}

type UpdateLifecycleStageRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

type SetWeightsRequest struct {
	Weights map[string]float64 `json:"weights" validate:"required,min=1"`
}

type RecordHealthScoreRequest struct {
	Stage       string             `json:"stage" validate:"required,max=100"`
	Metrics     map[string]float64 `json:"metrics" validate:"required"`
	WindowStart time.Time          `json:"windowStart" validate:"required"`
	WindowEnd   time.Time          `json:"windowEnd" validate:"required"`
	Notes       *string            `json:"notes,omitempty"`
}

type UpdateStageRequest struct {
	Stage  string `json:"stage" validate:"required,max=100"`
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

type AnalyzeTextRequest struct {
	SourceType string `json:"sourceType" validate:"required,max=50"`
	SourceID   string `json:"sourceId" validate:"required,max=255"`
	Text       string `json:"text" validate:"required"`
	Language   string `json:"language,omitempty" validate:"max=10"`
}

type AnalyzeBatchRequest struct {
	Items []AnalyzeTextRequest `json:"items" validate:"required,min=1,dive"`
}

type CreatePlaybookRequest struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	ScenarioKey string                 `json:"scenarioKey,omitempty" validate:"max=100"`
	Description string                 `json:"description,omitempty"`
	Triggers    map[string]interface{} `json:"triggers,omitempty"`
	Actions     []PlaybookAction       `json:"actions" validate:"dive"`
}

type UpdatePlaybookRequest struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	ScenarioKey string                 `json:"scenarioKey,omitempty" validate:"max=100"`
	Description string                 `json:"description,omitempty"`
	Triggers    map[string]interface{} `json:"triggers,omitempty"`
	Actions     []PlaybookAction       `json:"actions" validate:"dive"`
	IsActive    *bool                  `json:"isActive,omitempty"`
}

type RunPlaybookRequest struct {
	AccountID   uuid.UUID `json:"accountId" validate:"required"`
	TriggeredBy string    `json:"triggeredBy,omitempty" validate:"max=100"`
}

type IngestCDIEventRequest struct {
	AccountID  *uuid.UUID             `json:"accountId,omitempty"`
	SourceType CDISourceType          `json:"sourceType" validate:"required,oneof=support analytics crm custom"`
	EventType  string                 `json:"eventType" validate:"required,max=100"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt *time.Time             `json:"occurredAt,omitempty"`
}

type CreateIntegrationRequest struct {
	Name         string                 `json:"name" validate:"required,max=200"`
	ProviderType string                 `json:"providerType" validate:"required,max=50"`
	WebhookURL   string                 `json:"webhookUrl,omitempty" validate:"omitempty,url,max=1000"`
	Config       map[string]interface{} `json:"config,omitempty"`
}

type UpdateIntegrationRequest struct {
	Name       string                 `json:"name" validate:"required,max=200"`
	WebhookURL string                 `json:"webhookUrl,omitempty" validate:"omitempty,url,max=1000"`
	Config     map[string]interface{} `json:"config,omitempty"`
	IsActive   *bool                  `json:"isActive,omitempty"`
}

type FollowUpRequest struct {
	Context map[string]interface{} `json:"context,omitempty"`
}

type CreateMilestoneRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sortOrder"`
}

// UpdateMilestoneRequest changes only the fields that are set
type UpdateMilestoneRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty"`
	SortOrder   *int    `json:"sortOrder,omitempty"`
}

type CreateSuccessPlanRequest struct {
	Name       string                 `json:"name" validate:"required,max=200"`
	TargetDate *time.Time             `json:"targetDate,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

type AddPlanStepRequest struct {
	Title          string     `json:"title" validate:"required,max=500"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	AssigneeUserID *string    `json:"assigneeUserId,omitempty" validate:"omitempty,max=100"`
	SortOrder      *int       `json:"sortOrder,omitempty"`
}

type UpdatePlanStepStatusRequest struct {
	Status PlanStepStatus `json:"status" validate:"required,oneof=pending in_progress blocked done"`
}

type CreateFieldMappingRequest struct {
	SourceField        string                 `json:"sourceField" validate:"required,max=100"`
	TargetTable        string                 `json:"targetTable" validate:"required,oneof=contacts tickets deals"`
	TargetField        string                 `json:"targetField" validate:"required,max=100"`
	TransformationRule map[string]interface{} `json:"transformationRule,omitempty"`
	IsRequired         bool                   `json:"isRequired"`
	DefaultValue       *string                `json:"defaultValue,omitempty"`
}

// WebhookEnvelope is the body integrations post with synced records.
// Field names follow the integration wire format.
type WebhookEnvelope struct {
	IntegrationID *uuid.UUID      `json:"integration_id,omitempty"`
	SyncLogID     *uuid.UUID      `json:"sync_log_id,omitempty"`
	DataType      string          `json:"data_type,omitempty"`
	SourceType    string          `json:"source_type,omitempty"`
	APIKey        string          `json:"api_key,omitempty"`
	Records       []WebhookRecord `json:"records"`
}

// WebhookRecord is one heterogeneous record inside an envelope
type WebhookRecord map[string]interface{}

// String returns the string value of key, or "" when absent or not a string
func (r WebhookRecord) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Float returns the numeric value of key
func (r WebhookRecord) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Without returns a copy of r minus the given keys
func (r WebhookRecord) Without(keys ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Filters

// DateRange is an optional half-open [From, To) time filter
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// IsZero reports whether neither bound is set
func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// AccountSortField is an allow-listed sort column
type AccountSortField string

const (
	AccountSortByName      AccountSortField = "name"
	AccountSortByARR       AccountSortField = "arr"
	AccountSortByCreatedAt AccountSortField = "createdAt"
	AccountSortByUpdatedAt AccountSortField = "updatedAt"
)

// AccountFilters narrows account listings and dashboard queries
type AccountFilters struct {
	Status   *AccountStatus
	Stage    *string
	ParentID *uuid.UUID
	RootOnly bool
	Search   string
	MinARR   *float64
	MaxARR   *float64
}

// AlertFilters narrows alert feeds
type AlertFilters struct {
	AccountID *uuid.UUID
	AlertType *AlertType
	Severity  *AlertSeverity
	Created   DateRange
	Limit     int
}
