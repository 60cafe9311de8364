package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func newTokenService(issuer string) *auth.TokenService {
	return auth.NewTokenService(&config.AuthConfig{JWTSecret: testSecret, Issuer: issuer, TokenTTL: 30})
}

func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	tokens := newTokenService("success-api")
	tenantID := uuid.New()

	signed, err := tokens.Issue(tenantID, "user-1", "csm@example.com")
	require.NoError(t, err)

	principal, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, tenantID, principal.TenantID)
	assert.Equal(t, "user-1", principal.UserID)
	assert.Equal(t, "csm@example.com", principal.Email)
	assert.Equal(t, auth.AuthTypeJWT, principal.AuthType)

	tc := principal.TenantContext()
	assert.Equal(t, tenantID, tc.TenantID)
	assert.Equal(t, "user-1", tc.Actor())
}

func TestTokenService_Validate(t *testing.T) {
	tokens := newTokenService("success-api")
	tenantID := uuid.New().String()
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name: "expired",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), auth.Claims{
				TenantID: tenantID,
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    "success-api",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				},
			}),
			wantErr: auth.ErrExpiredToken,
		},
		{
			name: "wrong secret",
			token: signClaims(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), auth.Claims{
				TenantID:         tenantID,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "success-api", ExpiresAt: future},
			}),
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), auth.Claims{
				TenantID:         tenantID,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", ExpiresAt: future},
			}),
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "wrong algorithm",
			token: signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), auth.Claims{
				TenantID:         tenantID,
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "success-api", ExpiresAt: future},
			}),
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "missing tenant",
			token: signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), auth.Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "success-api", ExpiresAt: future},
			}),
			wantErr: auth.ErrMissingTenant,
		},
		{
			name:    "garbage",
			token:   "not-a-jwt",
			wantErr: auth.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Validate(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokenService_NoSecret(t *testing.T) {
	tokens := auth.NewTokenService(&config.AuthConfig{})

	_, err := tokens.Issue(uuid.New(), "user-1", "")
	assert.ErrorIs(t, err, auth.ErrNoSecret)

	_, err = tokens.Validate("anything")
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}

func TestTokenService_SubjectFallsBackToEmail(t *testing.T) {
	tokens := newTokenService("")
	token := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), auth.Claims{
		TenantID:         uuid.New().String(),
		Email:            "csm@example.com",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})

	principal, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "csm@example.com", principal.UserID)
}
