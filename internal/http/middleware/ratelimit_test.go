package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/config"
	"github.com/straye-as/success-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func sendFrom(h http.Handler, remoteAddr, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Bypass(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.RateLimitConfig
		remote string
		paths  []string
	}{
		{
			name:   "disabled",
			cfg:    config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1},
			remote: "192.168.1.1:12345",
			paths:  []string{"/api/v1/accounts"},
		},
		{
			name:   "whitelisted ip",
			cfg:    config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, WhitelistIPs: []string{"127.0.0.1"}},
			remote: "127.0.0.1:12345",
			paths:  []string{"/api/v1/accounts"},
		},
		{
			name:   "whitelisted path",
			cfg:    config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, WhitelistPaths: []string{"/health"}},
			remote: "192.168.1.1:12345",
			paths:  []string{"/health"},
		},
		{
			name:   "whitelisted path prefix",
			cfg:    config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, WhitelistPaths: []string{"/health/*"}},
			remote: "192.168.1.1:12345",
			paths:  []string{"/health/db", "/health/ready", "/health/live"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			h := middleware.NewRateLimiter(&cfg, zap.NewNop()).LimitByIP(okHandler())

			for i := 0; i < 30; i++ {
				w := sendFrom(h, tt.remote, tt.paths[i%len(tt.paths)])
				assert.Equal(t, http.StatusOK, w.Code)
			}
		})
	}
}

func TestRateLimiter_LimitExceeded(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true, RequestsPerMinute: 5}
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler())

	ok, limited := 0, 0
	for i := 0; i < 20; i++ {
		w := sendFrom(h, "192.168.1.100:12345", "/api/v1/accounts")
		switch w.Code {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "rate limit exceeded", body["error"])
		}
	}

	assert.Greater(t, ok, 0)
	assert.LessOrEqual(t, ok, 5)
	assert.Equal(t, 20, ok+limited)
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3}
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler())

	for _, ip := range []string{"192.168.1.1:12345", "192.168.1.2:12345", "192.168.1.3:12345"} {
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, sendFrom(h, ip, "/api/v1/accounts").Code, ip)
		}
	}
}

func TestRateLimiter_ForwardedForWhitelist(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, WhitelistIPs: []string{"10.0.0.1"}}
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.RemoteAddr = "172.16.0.5:443"
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.5")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_AuthenticatedKeyedByTenantUser(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, RequestsPerMinuteAuth: 3}
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).Limit(okHandler())

	send := func(p *auth.Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.RemoteAddr = "192.168.1.50:12345"
		req = req.WithContext(auth.WithPrincipal(context.Background(), p))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	alice := &auth.Principal{TenantID: uuid.New(), UserID: "alice", AuthType: auth.AuthTypeJWT}
	bob := &auth.Principal{TenantID: alice.TenantID, UserID: "bob", AuthType: auth.AuthTypeJWT}

	t.Run("authenticated limit applies instead of the ip limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, send(alice))
		}
		assert.Equal(t, http.StatusTooManyRequests, send(alice))
	})

	t.Run("each user has its own budget from the same ip", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send(bob))
	})
}

func TestRateLimiter_LimitWebhook(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, RequestsPerMinuteWebhook: 2}
	rl := middleware.NewRateLimiter(cfg, zap.NewNop())

	r := chi.NewRouter()
	r.With(rl.LimitWebhook).Post("/webhooks/integrations/{id}", okHandler().ServeHTTP)

	post := func(id string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/integrations/"+id, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	first := uuid.NewString()
	second := uuid.NewString()

	assert.Equal(t, http.StatusOK, post(first))
	assert.Equal(t, http.StatusOK, post(first))
	assert.Equal(t, http.StatusTooManyRequests, post(first))
	assert.Equal(t, http.StatusOK, post(second))
}

func TestRateLimiter_LimitWebhookDisabledWithoutBudget(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitWebhook(okHandler())

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, sendFrom(h, "192.168.1.1:1", "/webhooks/integrations/x").Code)
	}
}
