package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/auth"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/sentiment"
	"github.com/straye-as/success-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookRequest(t *testing.T, integrationID uuid.UUID, key string, body interface{}) *http.Request {
	t.Helper()
	req := requestWithContext(t, context.Background(), http.MethodPost, "/webhooks/integrations/x", body)
	if key != "" {
		req.Header.Set(auth.APIKeyHeader, key)
	}
	return withID(req, integrationID)
}

func TestIntegrationHandler_IngestWebhook(t *testing.T) {
	env := newHandlerEnv(t, sentiment.Unavailable{}, sentiment.Unavailable{})
	account := testutil.CreateTestAccount(t, env.db, env.tenant.TenantID, "Wayne", nil)
	shared := testutil.CreateTestIntegration(t, env.db, env.tenant.TenantID, "hubspot", "", "")
	ownKey := testutil.CreateTestIntegration(t, env.db, env.tenant.TenantID, "zendesk", "", `{"api_key":"zendesk-secret"}`)

	envelope := map[string]interface{}{
		"data_type": "contacts",
		"records": []map[string]interface{}{
			{"external_id": "c-1", "email": "bruce@wayne.example", "account_id": account.ID.String()},
			{"external_id": "c-2", "email": "alfred@wayne.example"},
			{"email": "no-id@wayne.example"},
		},
	}

	t.Run("partial success is still ok", func(t *testing.T) {
		rr := serve(env.integrations.IngestWebhook, webhookRequest(t, shared.ID, testWebhookKey, envelope))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		result := decode[domain.WebhookIngestResultDTO](t, rr)
		assert.Equal(t, domain.BatchStats{Processed: 3, Created: 2, Failed: 1}, result.Stats)
	})

	t.Run("replay updates instead of creating", func(t *testing.T) {
		rr := serve(env.integrations.IngestWebhook, webhookRequest(t, shared.ID, testWebhookKey, envelope))

		require.Equal(t, http.StatusOK, rr.Code)
		result := decode[domain.WebhookIngestResultDTO](t, rr)
		assert.Equal(t, 2, result.Stats.Updated)
		assert.Equal(t, 0, result.Stats.Created)
	})

	t.Run("key may be sent in the body", func(t *testing.T) {
		body := map[string]interface{}{
			"api_key":   "zendesk-secret",
			"data_type": "tickets",
			"records":   []map[string]interface{}{{"external_id": "t-1", "title": "Login broken"}},
		}
		rr := serve(env.integrations.IngestWebhook, webhookRequest(t, ownKey.ID, "", body))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, 1, decode[domain.WebhookIngestResultDTO](t, rr).Stats.Created)
	})

	t.Run("integration key overrides the global key", func(t *testing.T) {
		rr := serve(env.integrations.IngestWebhook, webhookRequest(t, ownKey.ID, testWebhookKey, envelope))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		rr := serve(env.integrations.IngestWebhook, webhookRequest(t, shared.ID, "", envelope))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing records", func(t *testing.T) {
		rr := serve(env.integrations.IngestWebhook, webhookRequest(t, shared.ID, testWebhookKey, map[string]interface{}{"data_type": "contacts"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed envelope", func(t *testing.T) {
		rr := serve(env.integrations.IngestWebhook, webhookRequest(t, shared.ID, testWebhookKey, []byte(`{"records":`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown integration", func(t *testing.T) {
		rr := serve(env.integrations.IngestWebhook, webhookRequest(t, uuid.New(), testWebhookKey, envelope))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestIntegrationHandler_TriggerSync(t *testing.T) {
	env := newHandlerEnv(t, sentiment.Unavailable{}, sentiment.Unavailable{})
	noURL := testutil.CreateTestIntegration(t, env.db, env.tenant.TenantID, "salesforce", "", "")

	t.Run("integration without a webhook url", func(t *testing.T) {
		rr := serve(env.integrations.TriggerSync, withID(env.newRequest(t, http.MethodPost, "/x", nil), noURL.ID))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("integration of another tenant", func(t *testing.T) {
		foreign := testutil.CreateTestIntegration(t, env.db, uuid.New(), "salesforce", "http://127.0.0.1:1/hook", "")
		rr := serve(env.integrations.TriggerSync, withID(env.newRequest(t, http.MethodPost, "/x", nil), foreign.ID))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("list shows only own integrations", func(t *testing.T) {
		rr := serve(env.integrations.List, env.newRequest(t, http.MethodGet, "/integrations", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]domain.IntegrationSourceDTO](t, rr), 1)
	})
}
