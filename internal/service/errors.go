package service

import (
	"errors"
	"fmt"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when the caller could not be authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstream is returned when an external system failed
	ErrUpstream = errors.New("upstream failure")
)

// Resource specific errors. Each wraps one of the common errors so handlers
// can map them with errors.Is.
var (
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrParentNotFound      = fmt.Errorf("parent account %w", ErrNotFound)
	ErrStageNotFound       = fmt.Errorf("lifecycle stage %w", ErrNotFound)
	ErrPlaybookNotFound    = fmt.Errorf("playbook %w", ErrNotFound)
	ErrIntegrationNotFound = fmt.Errorf("integration %w", ErrNotFound)
	ErrSyncLogNotFound     = fmt.Errorf("sync log %w", ErrNotFound)
	ErrMilestoneNotFound   = fmt.Errorf("milestone %w", ErrNotFound)
	ErrPlanNotFound        = fmt.Errorf("success plan %w", ErrNotFound)
	ErrPlanStepNotFound    = fmt.Errorf("plan step %w", ErrNotFound)
	ErrMappingNotFound     = fmt.Errorf("field mapping %w", ErrNotFound)

	ErrHierarchyCycle   = fmt.Errorf("%w: account cannot be its own ancestor", ErrInvalidInput)
	ErrInvalidWindow    = fmt.Errorf("%w: window start must be before window end", ErrInvalidInput)
	ErrEmptyStage       = fmt.Errorf("%w: stage is required", ErrInvalidInput)
	ErrNoWebhookURL     = fmt.Errorf("%w: integration has no webhook url", ErrInvalidInput)
	ErrEmptyRecordBatch = fmt.Errorf("%w: records are required", ErrInvalidInput)
	ErrInvalidStepState = fmt.Errorf("%w: unknown plan step status", ErrInvalidInput)
	ErrUnknownDataType  = fmt.Errorf("%w: unknown data type", ErrInvalidInput)

	ErrHasChildren     = fmt.Errorf("%w: account has child accounts", ErrConflict)
	ErrStageInUse      = fmt.Errorf("%w: accounts are currently in this stage", ErrConflict)
	ErrStageNameExists = fmt.Errorf("%w: stage name already exists", ErrConflict)

	ErrInvalidAPIKey = fmt.Errorf("%w: invalid api key", ErrUnauthorized)

	ErrSyncFailed = fmt.Errorf("%w: sync trigger failed", ErrUpstream)
)

// invalidInput wraps a validation failure from a lower layer
func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
