package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
)

// AuthType records how a request was authenticated
type AuthType string

const (
	AuthTypeJWT    AuthType = "jwt"
	AuthTypeAPIKey AuthType = "api_key"
)

// Principal holds the authenticated caller and the tenant it acts for
type Principal struct {
	TenantID uuid.UUID
	UserID   string
	Email    string
	AuthType AuthType
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal adds the principal to the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the principal from the context
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// TenantContext converts the principal into the context passed to services
func (p *Principal) TenantContext() domain.TenantContext {
	return domain.NewTenantContext(p.TenantID, p.UserID)
}

// TenantFromContext returns the tenant context of the authenticated caller.
// The zero TenantContext is returned when the request is unauthenticated, which
// services reject as missing a tenant.
func TenantFromContext(ctx context.Context) domain.TenantContext {
	if p, ok := FromContext(ctx); ok {
		return p.TenantContext()
	}
	return domain.TenantContext{}
}
