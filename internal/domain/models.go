package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the identity and timestamps shared by mutable entities.
// IDs are assigned in the application so every dialect behaves the same.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an ID when the caller did not
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AppendOnlyModel is used by immutable rows (scores, alerts, events)
type AppendOnlyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// BeforeCreate assigns an ID when the caller did not
func (m *AppendOnlyModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AccountStatus represents the commercial status of an account
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusProspect AccountStatus = "prospect"
	AccountStatusPaused   AccountStatus = "paused"
	AccountStatusChurned  AccountStatus = "churned"
)

// IsValid reports whether s is a known status
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusProspect, AccountStatusPaused, AccountStatusChurned:
		return true
	}
	return false
}

// Well-known lifecycle stages. Tenants may define their own names as well.
const (
	StageOnboarding = "onboarding"
	StageAdoption   = "adoption"
	StageMaturity   = "maturity"
	StageRenewal    = "renewal"
)

// Account is a customer organisation. Accounts form a tree through ParentID;
// HierarchyLevel and HierarchyPath are derived from the parent chain.
type Account struct {
	BaseModel
	TenantID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	Name           string        `gorm:"type:varchar(200);not null;index"`
	ParentID       *uuid.UUID    `gorm:"type:uuid;index;column:parent_id"`
	HierarchyLevel int           `gorm:"not null;default:0;column:hierarchy_level"`
	HierarchyPath  string        `gorm:"type:text;not null;column:hierarchy_path;index"`
	Status         AccountStatus `gorm:"type:varchar(50);not null;default:'active';index"`
	ARR            float64       `gorm:"not null;default:0;column:arr"`
	CurrentStage   *string       `gorm:"type:varchar(100);column:current_stage;index"`
	OwnerID        string        `gorm:"type:varchar(100);column:owner_id"`
	Domain         string        `gorm:"type:varchar(255)"`
	Industry       string        `gorm:"type:varchar(100)"`
	ExternalRef    string        `gorm:"type:varchar(100);column:external_ref;index"`
}

// LifecycleStage is a tenant-defined journey stage. It also holds the
// component weights used when scoring accounts in this stage.
type LifecycleStage struct {
	BaseModel
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lifecycle_stages_tenant_name"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_lifecycle_stages_tenant_name"`
	Description string    `gorm:"type:text"`
	SortOrder   int       `gorm:"not null;default:0;column:sort_order"`
	IsActive    bool      `gorm:"not null;default:true;column:is_active"`
	// Weights is a JSON object of component name to weight
	Weights string `gorm:"type:jsonb;not null;default:'{}'"`
}

// TableName overrides the default table name to match the migration
func (LifecycleStage) TableName() string {
	return "lifecycle_stages"
}

// HealthScoreRecord is an immutable health snapshot for one account and window
type HealthScoreRecord struct {
	AppendOnlyModel
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index"`
	AccountID    uuid.UUID `gorm:"type:uuid;not null;index:idx_health_scores_account_calc;column:account_id"`
	Stage        string    `gorm:"type:varchar(100);not null"`
	Score        float64   `gorm:"not null"`
	Metrics      string    `gorm:"type:jsonb;not null;default:'{}'"`
	WindowStart  time.Time `gorm:"not null;column:window_start"`
	WindowEnd    time.Time `gorm:"not null;column:window_end"`
	Trend        *float64
	Notes        *string   `gorm:"type:text"`
	CalculatedAt time.Time `gorm:"not null;index:idx_health_scores_account_calc;column:calculated_at"`
}

// TableName overrides the default table name to match the migration
func (HealthScoreRecord) TableName() string {
	return "health_scores"
}

// AlertType enumerates the alert kinds the engine raises
type AlertType string

const (
	AlertTypeHealthDip         AlertType = "health_dip"
	AlertTypeSentimentNegative AlertType = "sentiment_negative"
	AlertTypeRevenueAtRisk     AlertType = "revenue_at_risk"
	AlertTypeManual            AlertType = "manual"
)

// AlertSeverity is the urgency of an alert
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Alert is raised as a side effect of scoring or sentiment analysis and never updated
type Alert struct {
	AppendOnlyModel
	TenantID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	AccountID uuid.UUID     `gorm:"type:uuid;not null;index;column:account_id"`
	AlertType AlertType     `gorm:"type:varchar(50);not null;index;column:alert_type"`
	Severity  AlertSeverity `gorm:"type:varchar(20);not null"`
	Message   string        `gorm:"type:text;not null"`
	Context   string        `gorm:"type:jsonb;not null;default:'{}'"`
}

// JourneyHistoryEntry records time spent in one stage. ExitedAt is nil for
// the account's current stage; at most one such row exists per account.
type JourneyHistoryEntry struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	AccountID uuid.UUID  `gorm:"type:uuid;not null;index;column:account_id"`
	FromStage *string    `gorm:"type:varchar(100);column:from_stage"`
	ToStage   string     `gorm:"type:varchar(100);not null;column:to_stage;index"`
	EnteredAt time.Time  `gorm:"not null;column:entered_at"`
	ExitedAt  *time.Time `gorm:"column:exited_at"`
	ChangedBy string     `gorm:"type:varchar(100);not null;column:changed_by"`
	Reason    string     `gorm:"type:text"`
}

// TableName overrides the default table name to match the migration
func (JourneyHistoryEntry) TableName() string {
	return "journey_history"
}

// BeforeCreate assigns an ID when the caller did not
func (e *JourneyHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// SentimentLabel is the discrete sentiment class
type SentimentLabel string

const (
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentPositive SentimentLabel = "positive"
)

// SentimentAnalysis is the latest analysis of one source document.
// Re-analysis of the same source overwrites the row.
type SentimentAnalysis struct {
	BaseModel
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_sentiment_source"`
	AccountID  uuid.UUID      `gorm:"type:uuid;not null;index;column:account_id"`
	SourceType string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_sentiment_source;column:source_type"`
	SourceID   string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_sentiment_source;column:source_id"`
	Score      float64        `gorm:"not null;column:sentiment_score"`
	Magnitude  *float64
	Label      SentimentLabel `gorm:"type:varchar(20);not null"`
	Summary    *string        `gorm:"type:text"`
	Language   string         `gorm:"type:varchar(10);not null;default:'en'"`
}

// TableName overrides the default table name to match the migration
func (SentimentAnalysis) TableName() string {
	return "sentiment_analyses"
}

// Playbook is a stored trigger + action list automation
type Playbook struct {
	BaseModel
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(200);not null"`
	ScenarioKey string    `gorm:"type:varchar(100);column:scenario_key"`
	Description string    `gorm:"type:text"`
	Triggers    string    `gorm:"type:jsonb;not null;default:'{}'"`
	Actions     string    `gorm:"type:jsonb;not null;default:'[]'"`
	IsActive    bool      `gorm:"not null;default:true;column:is_active"`
}

// PlaybookRunStatus is the outcome of running a playbook
type PlaybookRunStatus string

const (
	PlaybookRunCompleted PlaybookRunStatus = "completed"
	PlaybookRunFailed    PlaybookRunStatus = "failed"
)

// PlaybookRun records one execution of a playbook against an account
type PlaybookRun struct {
	AppendOnlyModel
	TenantID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	PlaybookID  uuid.UUID         `gorm:"type:uuid;not null;index;column:playbook_id"`
	Playbook    *Playbook         `gorm:"foreignKey:PlaybookID"`
	AccountID   uuid.UUID         `gorm:"type:uuid;not null;index;column:account_id"`
	Status      PlaybookRunStatus `gorm:"type:varchar(20);not null"`
	TriggeredBy string            `gorm:"type:varchar(100);not null;column:triggered_by"`
	Result      string            `gorm:"type:jsonb;not null;default:'{}'"`
}

// CDISourceType classifies where a customer data event came from
type CDISourceType string

const (
	CDISourceSupport   CDISourceType = "support"
	CDISourceAnalytics CDISourceType = "analytics"
	CDISourceCRM       CDISourceType = "crm"
	CDISourceCustom    CDISourceType = "custom"
)

// CDIEvent is a raw customer data event
type CDIEvent struct {
	AppendOnlyModel
	TenantID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	AccountID  *uuid.UUID    `gorm:"type:uuid;index;column:account_id"`
	SourceType CDISourceType `gorm:"type:varchar(20);not null;column:source_type"`
	EventType  string        `gorm:"type:varchar(100);not null;column:event_type"`
	Payload    string        `gorm:"type:jsonb;not null;default:'{}'"`
	OccurredAt time.Time     `gorm:"not null;index;column:occurred_at"`
}

// TableName overrides the default table name to match the migration
func (CDIEvent) TableName() string {
	return "cdi_events"
}

// SyncStatus is the state of an integration sync run
type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// IntegrationSource is an external system that pushes records in and can be asked to sync
type IntegrationSource struct {
	BaseModel
	TenantID       uuid.UUID   `gorm:"type:uuid;not null;index"`
	Name           string      `gorm:"type:varchar(200);not null"`
	ProviderType   string      `gorm:"type:varchar(50);not null;column:provider_type"`
	WebhookURL     string      `gorm:"type:varchar(1000);column:webhook_url"`
	Config         string      `gorm:"type:jsonb;not null;default:'{}'"`
	IsActive       bool        `gorm:"not null;default:true;column:is_active"`
	LastSyncAt     *time.Time  `gorm:"column:last_sync_at"`
	LastSyncStatus *SyncStatus `gorm:"type:varchar(20);column:last_sync_status"`
}

// TableName overrides the default table name to match the migration
func (IntegrationSource) TableName() string {
	return "integration_sources"
}

// IntegrationSyncLog tracks one sync run and its record counts
type IntegrationSyncLog struct {
	BaseModel
	TenantID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	IntegrationID    uuid.UUID  `gorm:"type:uuid;not null;index;column:integration_id"`
	Status           SyncStatus `gorm:"type:varchar(20);not null"`
	RecordsProcessed int        `gorm:"not null;default:0;column:records_processed"`
	RecordsCreated   int        `gorm:"not null;default:0;column:records_created"`
	RecordsUpdated   int        `gorm:"not null;default:0;column:records_updated"`
	RecordsFailed    int        `gorm:"not null;default:0;column:records_failed"`
	ErrorMessage     *string    `gorm:"type:text;column:error_message"`
	StartedAt        time.Time  `gorm:"not null;column:started_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
}

// TableName overrides the default table name to match the migration
func (IntegrationSyncLog) TableName() string {
	return "integration_sync_logs"
}

// ExternalContact mirrors a contact owned by an integration. Properties holds
// every record field without a dedicated column.
type ExternalContact struct {
	BaseModel
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_external_contacts_key"`
	ExternalID   string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_external_contacts_key;column:external_id"`
	SourceType   string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_external_contacts_key;column:source_type"`
	AccountID    *uuid.UUID `gorm:"type:uuid;index;column:account_id"`
	FirstName    string     `gorm:"type:varchar(100);column:first_name"`
	LastName     string     `gorm:"type:varchar(100);column:last_name"`
	Email        string     `gorm:"type:varchar(255)"`
	Phone        string     `gorm:"type:varchar(50)"`
	Title        string     `gorm:"type:varchar(200)"`
	Properties   string     `gorm:"type:jsonb;not null;default:'{}'"`
	LastSyncedAt time.Time  `gorm:"not null;column:last_synced_at"`
}

// ExternalTicket mirrors a support ticket owned by an integration
type ExternalTicket struct {
	BaseModel
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_external_tickets_key"`
	ExternalID    string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_external_tickets_key;column:external_id"`
	SourceType    string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_external_tickets_key;column:source_type"`
	AccountID     *uuid.UUID `gorm:"type:uuid;index;column:account_id"`
	Title         string     `gorm:"type:varchar(500)"`
	Description   string     `gorm:"type:text"`
	Status        string     `gorm:"type:varchar(50)"`
	Priority      string     `gorm:"type:varchar(50)"`
	TicketType    string     `gorm:"type:varchar(50);column:ticket_type"`
	ReporterEmail string     `gorm:"type:varchar(255);column:reporter_email"`
	AssigneeEmail string     `gorm:"type:varchar(255);column:assignee_email"`
	Properties    string     `gorm:"type:jsonb;not null;default:'{}'"`
	LastSyncedAt  time.Time  `gorm:"not null;column:last_synced_at"`
}

// ExternalDeal mirrors a CRM deal owned by an integration
type ExternalDeal struct {
	BaseModel
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_external_deals_key"`
	ExternalID   string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_external_deals_key;column:external_id"`
	SourceType   string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_external_deals_key;column:source_type"`
	AccountID    *uuid.UUID `gorm:"type:uuid;index;column:account_id"`
	Name         string     `gorm:"type:varchar(255)"`
	Stage        string     `gorm:"type:varchar(100)"`
	Amount       float64    `gorm:"not null;default:0"`
	Probability  *float64
	OwnerEmail   string     `gorm:"type:varchar(255);column:owner_email"`
	Properties   string     `gorm:"type:jsonb;not null;default:'{}'"`
	LastSyncedAt time.Time  `gorm:"not null;column:last_synced_at"`
}

// IntegrationSyncedRecord links an external record to its internal row
type IntegrationSyncedRecord struct {
	BaseModel
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_synced_records_key;column:integration_id"`
	DataType      string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_synced_records_key;column:data_type"`
	ExternalID    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_synced_records_key;column:external_id"`
	InternalID    uuid.UUID `gorm:"type:uuid;not null;column:internal_id"`
	LastSyncedAt  time.Time `gorm:"not null;column:last_synced_at"`
}

// TableName overrides the default table name to match the migration
func (IntegrationSyncedRecord) TableName() string {
	return "integration_synced_records"
}

// StageMilestone is a checkpoint an account is expected to reach within a stage
type StageMilestone struct {
	BaseModel
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	StageID     uuid.UUID `gorm:"type:uuid;not null;index;column:stage_id"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:text"`
	SortOrder   int       `gorm:"not null;default:0;column:sort_order"`
}

// SuccessPlan is a goal agreed with an account, broken down into steps
type SuccessPlan struct {
	BaseModel
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	AccountID  uuid.UUID  `gorm:"type:uuid;not null;index;column:account_id"`
	Name       string     `gorm:"type:varchar(200);not null"`
	TargetDate *time.Time `gorm:"column:target_date"`
	Attributes string     `gorm:"type:jsonb;not null;default:'{}'"`
}

// PlanStepStatus is the progress of one success plan step
type PlanStepStatus string

const (
	PlanStepPending    PlanStepStatus = "pending"
	PlanStepInProgress PlanStepStatus = "in_progress"
	PlanStepBlocked    PlanStepStatus = "blocked"
	PlanStepDone       PlanStepStatus = "done"
)

// IsValid reports whether s is a known step status
func (s PlanStepStatus) IsValid() bool {
	switch s {
	case PlanStepPending, PlanStepInProgress, PlanStepBlocked, PlanStepDone:
		return true
	}
	return false
}

// SuccessPlanStep is one actionable item of a success plan
type SuccessPlanStep struct {
	BaseModel
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index"`
	PlanID         uuid.UUID      `gorm:"type:uuid;not null;index;column:plan_id"`
	Title          string         `gorm:"type:varchar(500);not null"`
	DueDate        *time.Time     `gorm:"column:due_date"`
	AssigneeUserID *string        `gorm:"type:varchar(100);column:assignee_user_id"`
	Status         PlanStepStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	SortOrder      int            `gorm:"not null;default:0;column:sort_order"`
}

// IntegrationFieldMapping copies a field of inbound records onto a target
// field before the record is stored
type IntegrationFieldMapping struct {
	BaseModel
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index;column:integration_id"`
	SourceField   string    `gorm:"type:varchar(100);not null;column:source_field"`
	TargetTable   string    `gorm:"type:varchar(20);not null;column:target_table"`
	TargetField   string    `gorm:"type:varchar(100);not null;column:target_field"`
	// TransformationRule is a JSON object; its "op" names the string transform
	TransformationRule string  `gorm:"type:jsonb;not null;default:'{}';column:transformation_rule"`
	IsRequired         bool    `gorm:"not null;default:false;column:is_required"`
	DefaultValue       *string `gorm:"type:text;column:default_value"`
}

// TableName overrides the default table name to match the migration
func (IntegrationFieldMapping) TableName() string {
	return "integration_field_mappings"
}
