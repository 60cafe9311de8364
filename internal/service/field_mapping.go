package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/mapper"
	"gorm.io/gorm"
)

// Transformation ops a field mapping may name under "op"
const (
	TransformLowercase = "lowercase"
	TransformUppercase = "uppercase"
	TransformTrim      = "trim"
)

// ListFieldMappings returns an integration's field mappings
func (s *IntegrationService) ListFieldMappings(ctx context.Context, tc domain.TenantContext, integrationID uuid.UUID) ([]domain.IntegrationFieldMappingDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.get(ctx, tc.TenantID, integrationID); err != nil {
		return nil, err
	}

	mappings, err := s.integrationRepo.ListFieldMappings(ctx, tc.TenantID, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list field mappings: %w", err)
	}
	dtos := make([]domain.IntegrationFieldMappingDTO, len(mappings))
	for i := range mappings {
		dtos[i] = mapper.ToIntegrationFieldMappingDTO(&mappings[i])
	}
	return dtos, nil
}

// CreateFieldMapping adds a mapping applied to every later webhook batch
func (s *IntegrationService) CreateFieldMapping(ctx context.Context, tc domain.TenantContext, integrationID uuid.UUID, req *domain.CreateFieldMappingRequest) (*domain.IntegrationFieldMappingDTO, error) {
	if err := tc.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	sourceField := strings.TrimSpace(req.SourceField)
	targetField := strings.TrimSpace(req.TargetField)
	if sourceField == "" || targetField == "" {
		return nil, fmt.Errorf("%w: source and target fields are required", ErrInvalidInput)
	}
	switch req.TargetTable {
	case DataTypeContacts, DataTypeTickets, DataTypeDeals:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, req.TargetTable)
	}
	if op, ok := req.TransformationRule["op"]; ok {
		if name, _ := op.(string); !isTransformOp(name) {
			return nil, fmt.Errorf("%w: unknown transformation %v", ErrInvalidInput, op)
		}
	}
	if _, err := s.get(ctx, tc.TenantID, integrationID); err != nil {
		return nil, err
	}

	rule, err := mapper.EncodeJSON(req.TransformationRule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transformation rule: %w", err)
	}

	now := time.Now().UTC()
	mapping := &domain.IntegrationFieldMapping{
		TenantID:           tc.TenantID,
		IntegrationID:      integrationID,
		SourceField:        sourceField,
		TargetTable:        req.TargetTable,
		TargetField:        targetField,
		TransformationRule: rule,
		IsRequired:         req.IsRequired,
		DefaultValue:       req.DefaultValue,
	}
	mapping.CreatedAt = now
	mapping.UpdatedAt = now

	if err := s.integrationRepo.CreateFieldMapping(ctx, mapping); err != nil {
		return nil, fmt.Errorf("failed to create field mapping: %w", err)
	}

	dto := mapper.ToIntegrationFieldMappingDTO(mapping)
	return &dto, nil
}

// DeleteFieldMapping removes one mapping of the integration
func (s *IntegrationService) DeleteFieldMapping(ctx context.Context, tc domain.TenantContext, integrationID, mappingID uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return invalidInput(err)
	}
	if err := s.integrationRepo.DeleteFieldMapping(ctx, tc.TenantID, integrationID, mappingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMappingNotFound
		}
		return fmt.Errorf("failed to delete field mapping: %w", err)
	}
	return nil
}

func isTransformOp(op string) bool {
	switch op {
	case TransformLowercase, TransformUppercase, TransformTrim:
		return true
	}
	return false
}

// fieldMappings groups an integration's mappings by target data type
type fieldMappings map[string][]domain.IntegrationFieldMapping

func groupFieldMappings(mappings []domain.IntegrationFieldMapping) fieldMappings {
	grouped := make(fieldMappings, len(mappings))
	for _, m := range mappings {
		grouped[m.TargetTable] = append(grouped[m.TargetTable], m)
	}
	return grouped
}

// apply returns a copy of record with the data type's mappings applied. A
// present source value is transformed onto the target field, otherwise the
// default is used. A required mapping with neither fails the record.
func (fm fieldMappings) apply(dataType string, record domain.WebhookRecord) (domain.WebhookRecord, error) {
	mappings := fm[dataType]
	if len(mappings) == 0 {
		return record, nil
	}

	out := make(domain.WebhookRecord, len(record)+len(mappings))
	for k, v := range record {
		out[k] = v
	}
	for _, m := range mappings {
		value := record[m.SourceField]
		switch {
		case !isBlank(value):
			out[m.TargetField] = transformValue(value, mapper.DecodeObject(m.TransformationRule))
		case m.DefaultValue != nil:
			out[m.TargetField] = *m.DefaultValue
		case m.IsRequired:
			return nil, fmt.Errorf("%w: required field %q is missing", ErrInvalidInput, m.SourceField)
		}
	}
	return out, nil
}

func isBlank(value interface{}) bool {
	if value == nil {
		return true
	}
	str, ok := value.(string)
	return ok && strings.TrimSpace(str) == ""
}

// transformValue applies the rule's op to string values and passes other values through
func transformValue(value interface{}, rule map[string]interface{}) interface{} {
	str, ok := value.(string)
	if !ok {
		return value
	}
	op, _ := rule["op"].(string)
	switch op {
	case TransformLowercase:
		return strings.ToLower(str)
	case TransformUppercase:
		return strings.ToUpper(str)
	case TransformTrim:
		return strings.TrimSpace(str)
	}
	return str
}
