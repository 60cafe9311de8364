package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationService_CRUD(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tc := testutil.NewTenant()

	created, err := env.integrations.Create(ctx, tc, &domain.CreateIntegrationRequest{
		Name:         "CRM",
		ProviderType: "hubspot",
		WebhookURL:   "https://n8n.example.com/webhook/sync",
		Config:       map[string]interface{}{"portal": "123"},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, "123", created.Config["portal"])

	inactive := false
	updated, err := env.integrations.Update(ctx, tc, created.ID, &domain.UpdateIntegrationRequest{Name: "CRM v2", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "hubspot", updated.ProviderType)
	assert.Empty(t, updated.WebhookURL)

	list, err := env.integrations.List(ctx, tc)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other := testutil.NewTenant()
	_, err = env.integrations.GetByID(ctx, other, created.ID)
	assert.ErrorIs(t, err, service.ErrIntegrationNotFound)

	require.NoError(t, env.integrations.Delete(ctx, tc, created.ID))
	err = env.integrations.Delete(ctx, tc, created.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestIntegrationService_TriggerSync(t *testing.T) {
	ctx := context.Background()

	t.Run("successful trigger leaves the log running", func(t *testing.T) {
		var received map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		env := newTestEnv(t, withHTTPClient(server.Client()))
		tc := testutil.NewTenant()
		source := testutil.CreateTestIntegration(t, env.db, tc.TenantID, "hubspot", server.URL, "")

		log, err := env.integrations.TriggerSync(ctx, tc, source.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SyncStatusRunning, log.Status)
		assert.Equal(t, "manual", received["trigger"])
		assert.Equal(t, log.ID.String(), received["sync_log_id"])
		assert.Equal(t, source.ID.String(), received["integration_id"])
	})

	t.Run("non-2xx marks the sync failed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "workflow disabled", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		env := newTestEnv(t, withHTTPClient(server.Client()))
		tc := testutil.NewTenant()
		source := testutil.CreateTestIntegration(t, env.db, tc.TenantID, "hubspot", server.URL, "")

		_, err := env.integrations.TriggerSync(ctx, tc, source.ID)
		assert.ErrorIs(t, err, service.ErrSyncFailed)
		assert.ErrorIs(t, err, service.ErrUpstream)

		logs, err := env.integrations.ListSyncLogs(ctx, tc, source.ID, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, domain.SyncStatusFailed, logs[0].Status)
		require.NotNil(t, logs[0].ErrorMessage)
		assert.Contains(t, *logs[0].ErrorMessage, "503")
		assert.Contains(t, *logs[0].ErrorMessage, "workflow disabled")
		assert.NotNil(t, logs[0].CompletedAt)

		dto, err := env.integrations.GetByID(ctx, tc, source.ID)
		require.NoError(t, err)
		require.NotNil(t, dto.LastSyncStatus)
		assert.Equal(t, domain.SyncStatusFailed, *dto.LastSyncStatus)
	})

	t.Run("transport timeout is recorded after the caller gives up", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()
		defer close(release)

		env := newTestEnv(t, withHTTPClient(server.Client()))
		tc := testutil.NewTenant()
		source := testutil.CreateTestIntegration(t, env.db, tc.TenantID, "hubspot", server.URL, "")

		callCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		_, err := env.integrations.TriggerSync(callCtx, tc, source.ID)
		assert.ErrorIs(t, err, service.ErrSyncFailed)

		logs, err := env.integrations.ListSyncLogs(ctx, tc, source.ID, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, domain.SyncStatusFailed, logs[0].Status)
		require.NotNil(t, logs[0].ErrorMessage)
		assert.Contains(t, *logs[0].ErrorMessage, "deadline exceeded")
		assert.NotNil(t, logs[0].CompletedAt)

		dto, err := env.integrations.GetByID(ctx, tc, source.ID)
		require.NoError(t, err)
		require.NotNil(t, dto.LastSyncStatus)
		assert.Equal(t, domain.SyncStatusFailed, *dto.LastSyncStatus)
	})

	t.Run("missing webhook url", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		source := testutil.CreateTestIntegration(t, env.db, tc.TenantID, "hubspot", "", "")

		_, err := env.integrations.TriggerSync(ctx, tc, source.ID)
		assert.ErrorIs(t, err, service.ErrNoWebhookURL)
	})

	t.Run("scheduled trigger covers syncable integrations", func(t *testing.T) {
		var triggers []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			triggers = append(triggers, body["trigger"])
		}))
		defer server.Close()

		env := newTestEnv(t, withHTTPClient(server.Client()))
		tc := testutil.NewTenant()
		testutil.CreateTestIntegration(t, env.db, tc.TenantID, "hubspot", server.URL, "")
		testutil.CreateTestIntegration(t, env.db, tc.TenantID, "zendesk", "", "")

		sources, err := env.integrations.ListSyncable(ctx)
		require.NoError(t, err)
		require.Len(t, sources, 1)

		_, err = env.integrations.TriggerScheduledSync(ctx, &sources[0])
		require.NoError(t, err)
		assert.Equal(t, []string{"scheduled"}, triggers)
	})
}

func TestIntegrationService_Stats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, withWebhookKey(webhookKey))
	tc := testutil.NewTenant()
	source := testutil.CreateTestIntegration(t, env.db, tc.TenantID, "hubspot", "", "")
	idle := testutil.CreateTestIntegration(t, env.db, tc.TenantID, "zendesk", "", "")
	require.NoError(t, env.db.Model(idle).Update("is_active", false).Error)

	_, err := env.webhooks.IngestBatch(ctx, source.ID, webhookKey, &domain.WebhookEnvelope{
		Records: []domain.WebhookRecord{
			{"data_type": "contacts", "external_id": "c-1", "email": "a@example.com"},
			{"data_type": "contacts", "external_id": "c-2", "email": "b@example.com"},
			{"data_type": "tickets", "external_id": "t-1", "title": "Login loop"},
		},
	}, nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	for _, age := range []time.Duration{3 * 24 * time.Hour, 10 * 24 * time.Hour} {
		started := now.Add(-age)
		log := &domain.IntegrationSyncLog{
			TenantID:      tc.TenantID,
			IntegrationID: source.ID,
			Status:        domain.SyncStatusFailed,
			StartedAt:     started,
		}
		log.CreatedAt = started
		log.UpdatedAt = started
		require.NoError(t, env.db.Create(log).Error)
	}

	stats, err := env.integrations.Stats(ctx, tc)
	require.NoError(t, err)
	assert.Equal(t, domain.IntegrationStatsDTO{
		TotalIntegrations:  2,
		ActiveIntegrations: 1,
		TotalSyncedRecords: 3,
		Contacts:           2,
		Tickets:            1,
		Deals:              0,
		Last24hSyncs:       1,
		FailedSyncs:        1,
	}, *stats)

	empty, err := env.integrations.Stats(ctx, testutil.NewTenant())
	require.NoError(t, err)
	assert.Equal(t, domain.IntegrationStatsDTO{}, *empty)
}

func TestIntegrationService_ExternalData(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, withWebhookKey(webhookKey))
	tc := testutil.NewTenant()
	account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)
	source := testutil.CreateTestIntegration(t, env.db, tc.TenantID, "hubspot", "", "")

	_, err := env.webhooks.IngestBatch(ctx, source.ID, webhookKey, &domain.WebhookEnvelope{
		Records: []domain.WebhookRecord{
			{"data_type": "contacts", "external_id": "c-1", "email": "linked@example.com", "account_id": account.ID.String()},
			{"data_type": "contacts", "external_id": "c-2", "email": "loose@example.com"},
		},
	}, nil)
	require.NoError(t, err)

	all, err := env.integrations.ListContacts(ctx, tc, nil, 50)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	linked, err := env.integrations.ListContacts(ctx, tc, &account.ID, 50)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "c-1", linked[0].ExternalID)
	require.NotNil(t, linked[0].AccountID)
	assert.Equal(t, account.ID, *linked[0].AccountID)

	deals, err := env.integrations.ListDeals(ctx, tc, nil, 50)
	require.NoError(t, err)
	assert.Empty(t, deals)

	other, err := env.integrations.ListContacts(ctx, testutil.NewTenant(), nil, 50)
	require.NoError(t, err)
	assert.Empty(t, other)
}
