package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"go.uber.org/zap"
)

const (
	APIKeyHeader   = "x-api-key"
	TenantIDHeader = "X-Tenant-ID"
)

// Middleware handles authentication for HTTP requests
type Middleware struct {
	tokens *TokenService
	apiKey string
	logger *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens: NewTokenService(&cfg.Auth),
		apiKey: cfg.Auth.ServiceAPIKey,
		logger: logger,
	}
}

// Authenticate resolves the caller's tenant from a service key or a bearer token
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if apiKey := r.Header.Get(APIKeyHeader); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tenantID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(TenantIDHeader)))
			if err != nil || tenantID == uuid.Nil {
				http.Error(w, "Unauthorized: missing or invalid "+TenantIDHeader+" header", http.StatusUnauthorized)
				return
			}

			principal := &Principal{
				TenantID: tenantID,
				UserID:   domain.SystemActor,
				AuthType: AuthTypeAPIKey,
			}
			m.logAuthenticated(r, principal, start)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized: missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "Unauthorized: invalid authorization header format", http.StatusUnauthorized)
			return
		}

		principal, err := m.tokens.Validate(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		m.logAuthenticated(r, principal, start)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (m *Middleware) logAuthenticated(r *http.Request, p *Principal, start time.Time) {
	m.logger.Debug("request authenticated",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("auth_type", string(p.AuthType)),
		zap.String("tenant_id", p.TenantID.String()),
		zap.String("user_id", p.UserID),
		zap.Duration("auth_duration", time.Since(start)),
	)
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}
