package domain

import (
	"errors"

	"github.com/google/uuid"
)

// SystemActor is recorded as the actor for scheduled and integration-driven changes
const SystemActor = "system"

// ErrMissingTenant is returned when an operation is invoked without a tenant
var ErrMissingTenant = errors.New("tenant context is required")

// TenantContext identifies the caller of an engine operation. It is resolved
// by the transport layer and passed explicitly to every service call.
type TenantContext struct {
	TenantID uuid.UUID
	UserID   string
}

// NewTenantContext builds a context for the given tenant and actor
func NewTenantContext(tenantID uuid.UUID, userID string) TenantContext {
	return TenantContext{TenantID: tenantID, UserID: userID}
}

// SystemContext is used by jobs and webhooks acting on behalf of a tenant
func SystemContext(tenantID uuid.UUID) TenantContext {
	return TenantContext{TenantID: tenantID, UserID: SystemActor}
}

// Validate reports whether the context names a tenant
func (tc TenantContext) Validate() error {
	if tc.TenantID == uuid.Nil {
		return ErrMissingTenant
	}
	return nil
}

// Actor returns the user id, or the system actor when none is set
func (tc TenantContext) Actor() string {
	if tc.UserID == "" {
		return SystemActor
	}
	return tc.UserID
}
