package mapper

import (
	"encoding/json"
	"time"

	"github.com/straye-as/success-api/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// FormatTimePtr renders an optional timestamp in the API layout
func FormatTimePtr(t *time.Time) *string {
	return formatTimePtr(t)
}

// ToAccountDTO converts Account to AccountDTO
func ToAccountDTO(account *domain.Account) domain.AccountDTO {
	return domain.AccountDTO{
		ID:             account.ID,
		Name:           account.Name,
		ParentID:       account.ParentID,
		HierarchyLevel: account.HierarchyLevel,
		HierarchyPath:  account.HierarchyPath,
		Status:         account.Status,
		ARR:            account.ARR,
		CurrentStage:   account.CurrentStage,
		OwnerID:        account.OwnerID,
		Domain:         account.Domain,
		Industry:       account.Industry,
		ExternalRef:    account.ExternalRef,
		CreatedAt:      formatTime(account.CreatedAt),
		UpdatedAt:      formatTime(account.UpdatedAt),
	}
}

// ToLifecycleStageDTO converts LifecycleStage to LifecycleStageDTO
func ToLifecycleStageDTO(stage *domain.LifecycleStage) domain.LifecycleStageDTO {
	return domain.LifecycleStageDTO{
		ID:          stage.ID,
		Name:        stage.Name,
		Description: stage.Description,
		SortOrder:   stage.SortOrder,
		IsActive:    stage.IsActive,
		Weights:     DecodeWeights(stage.Weights),
		CreatedAt:   formatTime(stage.CreatedAt),
		UpdatedAt:   formatTime(stage.UpdatedAt),
	}
}

// ToHealthScoreDTO converts HealthScoreRecord to HealthScoreDTO
func ToHealthScoreDTO(record *domain.HealthScoreRecord) domain.HealthScoreDTO {
	return domain.HealthScoreDTO{
		ID:           record.ID,
		AccountID:    record.AccountID,
		Stage:        record.Stage,
		Score:        record.Score,
		Metrics:      DecodeWeights(record.Metrics),
		WindowStart:  formatTime(record.WindowStart),
		WindowEnd:    formatTime(record.WindowEnd),
		Trend:        record.Trend,
		Notes:        record.Notes,
		CalculatedAt: formatTime(record.CalculatedAt),
	}
}

// ToAlertDTO converts Alert to AlertDTO
func ToAlertDTO(alert *domain.Alert) domain.AlertDTO {
	return domain.AlertDTO{
		ID:        alert.ID,
		AccountID: alert.AccountID,
		AlertType: alert.AlertType,
		Severity:  alert.Severity,
		Message:   alert.Message,
		Context:   DecodeObject(alert.Context),
		CreatedAt: formatTime(alert.CreatedAt),
	}
}

// ToJourneyHistoryEntryDTO converts JourneyHistoryEntry to JourneyHistoryEntryDTO
func ToJourneyHistoryEntryDTO(entry *domain.JourneyHistoryEntry) domain.JourneyHistoryEntryDTO {
	return domain.JourneyHistoryEntryDTO{
		ID:        entry.ID,
		AccountID: entry.AccountID,
		FromStage: entry.FromStage,
		ToStage:   entry.ToStage,
		EnteredAt: formatTime(entry.EnteredAt),
		ExitedAt:  formatTimePtr(entry.ExitedAt),
		ChangedBy: entry.ChangedBy,
		Reason:    entry.Reason,
	}
}

// ToSentimentAnalysisDTO converts SentimentAnalysis to SentimentAnalysisDTO
func ToSentimentAnalysisDTO(analysis *domain.SentimentAnalysis) domain.SentimentAnalysisDTO {
	return domain.SentimentAnalysisDTO{
		ID:         analysis.ID,
		AccountID:  analysis.AccountID,
		SourceType: analysis.SourceType,
		SourceID:   analysis.SourceID,
		Score:      analysis.Score,
		Magnitude:  analysis.Magnitude,
		Label:      analysis.Label,
		Summary:    analysis.Summary,
		Language:   analysis.Language,
		CreatedAt:  formatTime(analysis.CreatedAt),
		UpdatedAt:  formatTime(analysis.UpdatedAt),
	}
}

// ToPlaybookDTO converts Playbook to PlaybookDTO
func ToPlaybookDTO(playbook *domain.Playbook) domain.PlaybookDTO {
	return domain.PlaybookDTO{
		ID:          playbook.ID,
		Name:        playbook.Name,
		ScenarioKey: playbook.ScenarioKey,
		Description: playbook.Description,
		Triggers:    DecodeObject(playbook.Triggers),
		Actions:     DecodeActions(playbook.Actions),
		IsActive:    playbook.IsActive,
		CreatedAt:   formatTime(playbook.CreatedAt),
		UpdatedAt:   formatTime(playbook.UpdatedAt),
	}
}

// ToPlaybookRunDTO converts PlaybookRun to PlaybookRunDTO
func ToPlaybookRunDTO(run *domain.PlaybookRun) domain.PlaybookRunDTO {
	dto := domain.PlaybookRunDTO{
		ID:          run.ID,
		PlaybookID:  run.PlaybookID,
		AccountID:   run.AccountID,
		Status:      run.Status,
		TriggeredBy: run.TriggeredBy,
		Result:      DecodeObject(run.Result),
		CreatedAt:   formatTime(run.CreatedAt),
	}
	if run.Playbook != nil {
		dto.PlaybookName = run.Playbook.Name
	}
	return dto
}

// ToCDIEventDTO converts CDIEvent to CDIEventDTO
func ToCDIEventDTO(event *domain.CDIEvent) domain.CDIEventDTO {
	return domain.CDIEventDTO{
		ID:         event.ID,
		AccountID:  event.AccountID,
		SourceType: event.SourceType,
		EventType:  event.EventType,
		Payload:    DecodeObject(event.Payload),
		OccurredAt: formatTime(event.OccurredAt),
		CreatedAt:  formatTime(event.CreatedAt),
	}
}

// ToIntegrationSourceDTO converts IntegrationSource to IntegrationSourceDTO
func ToIntegrationSourceDTO(source *domain.IntegrationSource) domain.IntegrationSourceDTO {
	return domain.IntegrationSourceDTO{
		ID:             source.ID,
		Name:           source.Name,
		ProviderType:   source.ProviderType,
		WebhookURL:     source.WebhookURL,
		Config:         DecodeObject(source.Config),
		IsActive:       source.IsActive,
		LastSyncAt:     formatTimePtr(source.LastSyncAt),
		LastSyncStatus: source.LastSyncStatus,
		CreatedAt:      formatTime(source.CreatedAt),
		UpdatedAt:      formatTime(source.UpdatedAt),
	}
}

// ToIntegrationSyncLogDTO converts IntegrationSyncLog to IntegrationSyncLogDTO
func ToIntegrationSyncLogDTO(log *domain.IntegrationSyncLog) domain.IntegrationSyncLogDTO {
	return domain.IntegrationSyncLogDTO{
		ID:               log.ID,
		IntegrationID:    log.IntegrationID,
		Status:           log.Status,
		RecordsProcessed: log.RecordsProcessed,
		RecordsCreated:   log.RecordsCreated,
		RecordsUpdated:   log.RecordsUpdated,
		RecordsFailed:    log.RecordsFailed,
		ErrorMessage:     log.ErrorMessage,
		StartedAt:        formatTime(log.StartedAt),
		CompletedAt:      formatTimePtr(log.CompletedAt),
	}
}

// ToStageMilestoneDTO converts StageMilestone to StageMilestoneDTO
func ToStageMilestoneDTO(m *domain.StageMilestone) domain.StageMilestoneDTO {
	return domain.StageMilestoneDTO{
		ID:          m.ID,
		StageID:     m.StageID,
		Name:        m.Name,
		Description: m.Description,
		SortOrder:   m.SortOrder,
		CreatedAt:   formatTime(m.CreatedAt),
		UpdatedAt:   formatTime(m.UpdatedAt),
	}
}

// ToSuccessPlanDTO converts SuccessPlan to SuccessPlanDTO
func ToSuccessPlanDTO(plan *domain.SuccessPlan) domain.SuccessPlanDTO {
	return domain.SuccessPlanDTO{
		ID:         plan.ID,
		AccountID:  plan.AccountID,
		Name:       plan.Name,
		TargetDate: formatTimePtr(plan.TargetDate),
		Attributes: DecodeObject(plan.Attributes),
		CreatedAt:  formatTime(plan.CreatedAt),
		UpdatedAt:  formatTime(plan.UpdatedAt),
	}
}

// ToSuccessPlanStepDTO converts SuccessPlanStep to SuccessPlanStepDTO
func ToSuccessPlanStepDTO(step *domain.SuccessPlanStep) domain.SuccessPlanStepDTO {
	return domain.SuccessPlanStepDTO{
		ID:             step.ID,
		PlanID:         step.PlanID,
		Title:          step.Title,
		DueDate:        formatTimePtr(step.DueDate),
		AssigneeUserID: step.AssigneeUserID,
		Status:         step.Status,
		SortOrder:      step.SortOrder,
		CreatedAt:      formatTime(step.CreatedAt),
		UpdatedAt:      formatTime(step.UpdatedAt),
	}
}

// ToIntegrationFieldMappingDTO converts IntegrationFieldMapping to IntegrationFieldMappingDTO
func ToIntegrationFieldMappingDTO(m *domain.IntegrationFieldMapping) domain.IntegrationFieldMappingDTO {
	return domain.IntegrationFieldMappingDTO{
		ID:                 m.ID,
		IntegrationID:      m.IntegrationID,
		SourceField:        m.SourceField,
		TargetTable:        m.TargetTable,
		TargetField:        m.TargetField,
		TransformationRule: DecodeObject(m.TransformationRule),
		IsRequired:         m.IsRequired,
		DefaultValue:       m.DefaultValue,
		CreatedAt:          formatTime(m.CreatedAt),
	}
}

func ToExternalContactDTO(c *domain.ExternalContact) domain.ExternalContactDTO {
	return domain.ExternalContactDTO{
		ID:           c.ID,
		ExternalID:   c.ExternalID,
		SourceType:   c.SourceType,
		AccountID:    c.AccountID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		Phone:        c.Phone,
		Title:        c.Title,
		Properties:   DecodeObject(c.Properties),
		LastSyncedAt: formatTime(c.LastSyncedAt),
	}
}

func ToExternalTicketDTO(t *domain.ExternalTicket) domain.ExternalTicketDTO {
	return domain.ExternalTicketDTO{
		ID:            t.ID,
		ExternalID:    t.ExternalID,
		SourceType:    t.SourceType,
		AccountID:     t.AccountID,
		Title:         t.Title,
		Status:        t.Status,
		Priority:      t.Priority,
		ReporterEmail: t.ReporterEmail,
		Properties:    DecodeObject(t.Properties),
		LastSyncedAt:  formatTime(t.LastSyncedAt),
	}
}

func ToExternalDealDTO(d *domain.ExternalDeal) domain.ExternalDealDTO {
	return domain.ExternalDealDTO{
		ID:           d.ID,
		ExternalID:   d.ExternalID,
		SourceType:   d.SourceType,
		AccountID:    d.AccountID,
		Name:         d.Name,
		Stage:        d.Stage,
		Amount:       d.Amount,
		OwnerEmail:   d.OwnerEmail,
		Properties:   DecodeObject(d.Properties),
		LastSyncedAt: formatTime(d.LastSyncedAt),
	}
}

// EncodeJSON marshals v for a jsonb column. nil, including a nil map,
// becomes an empty object.
func EncodeJSON(v interface{}) (string, error) {
	if v == nil {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "{}", nil
	}
	return string(data), nil
}

// DecodeObject unmarshals a jsonb object column. Invalid or empty data yields an empty map.
func DecodeObject(raw string) map[string]interface{} {
	out := map[string]interface{}{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return map[string]interface{}{}
	}
	return out
}

// DecodeWeights unmarshals a component-to-number jsonb column
func DecodeWeights(raw string) map[string]float64 {
	out := map[string]float64{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return map[string]float64{}
	}
	return out
}

// DecodeActions unmarshals a playbook action list
func DecodeActions(raw string) []domain.PlaybookAction {
	actions := []domain.PlaybookAction{}
	if raw == "" {
		return actions
	}
	if err := json.Unmarshal([]byte(raw), &actions); err != nil || actions == nil {
		return []domain.PlaybookAction{}
	}
	return actions
}
