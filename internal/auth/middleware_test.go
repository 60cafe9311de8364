package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const serviceKey = "service-key-12345"

func newMiddleware() *auth.Middleware {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: testSecret, ServiceAPIKey: serviceKey}}
	return auth.NewMiddleware(cfg, zap.NewNop())
}

func serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *auth.Principal) {
	t.Helper()
	var captured *auth.Principal
	handler := newMiddleware().Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, captured
}

func TestMiddleware_Authenticate(t *testing.T) {
	tenantID := uuid.New()

	t.Run("service key with tenant header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set(auth.APIKeyHeader, serviceKey)
		req.Header.Set(auth.TenantIDHeader, tenantID.String())

		w, principal := serve(t, req)
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, principal)
		assert.Equal(t, tenantID, principal.TenantID)
		assert.Equal(t, auth.AuthTypeAPIKey, principal.AuthType)
		assert.Equal(t, domain.SystemActor, principal.UserID)
	})

	t.Run("service key without tenant header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set(auth.APIKeyHeader, serviceKey)

		w, principal := serve(t, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, principal)
	})

	t.Run("wrong service key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set(auth.APIKeyHeader, "wrong")
		req.Header.Set(auth.TenantIDHeader, tenantID.String())

		w, _ := serve(t, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		token, err := newTokenService("").Issue(tenantID, "user-1", "csm@example.com")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w, principal := serve(t, req)
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, principal)
		assert.Equal(t, tenantID, principal.TenantID)
		assert.Equal(t, auth.AuthTypeJWT, principal.AuthType)
	})

	t.Run("missing and malformed headers", func(t *testing.T) {
		for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w, principal := serve(t, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code, header)
			assert.Nil(t, principal)
		}
	})
}

func TestTenantFromContext(t *testing.T) {
	assert.Equal(t, domain.TenantContext{}, auth.TenantFromContext(context.Background()))

	tenantID := uuid.New()
	ctx := auth.WithPrincipal(context.Background(), &auth.Principal{TenantID: tenantID, UserID: "u"})
	tc := auth.TenantFromContext(ctx)
	assert.Equal(t, tenantID, tc.TenantID)
	assert.Equal(t, "u", tc.UserID)
}
