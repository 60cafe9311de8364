package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybookService(t *testing.T) {
	ctx := context.Background()

	t.Run("run records the executed actions", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		playbook, err := env.playbooks.Create(ctx, tc, &domain.CreatePlaybookRequest{
			Name:        "Rescue",
			ScenarioKey: "health_dip",
			Triggers:    map[string]interface{}{"alert_type": "health_dip"},
			Actions: []domain.PlaybookAction{
				{Type: "email", Config: map[string]interface{}{"template": "check-in"}},
				{Type: "task"},
			},
		})
		require.NoError(t, err)
		assert.True(t, playbook.IsActive)
		assert.Len(t, playbook.Actions, 2)

		run, err := env.playbooks.RunPlaybook(ctx, tc, playbook.ID, &domain.RunPlaybookRequest{AccountID: account.ID})
		require.NoError(t, err)
		assert.Equal(t, domain.PlaybookRunCompleted, run.Status)
		assert.Equal(t, "test-user", run.TriggeredBy)
		assert.Equal(t, "Rescue", run.PlaybookName)
		executed, ok := run.Result["actions_executed"].([]interface{})
		require.True(t, ok)
		assert.Len(t, executed, 2)

		runs, err := env.playbooks.ListPlaybookRuns(ctx, tc, account.ID, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, run.ID, runs[0].ID)
	})

	t.Run("inactive playbooks cannot run", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		playbook, err := env.playbooks.Create(ctx, tc, &domain.CreatePlaybookRequest{Name: "Rescue"})
		require.NoError(t, err)
		inactive := false
		_, err = env.playbooks.Update(ctx, tc, playbook.ID, &domain.UpdatePlaybookRequest{Name: "Rescue", IsActive: &inactive})
		require.NoError(t, err)

		_, err = env.playbooks.RunPlaybook(ctx, tc, playbook.ID, &domain.RunPlaybookRequest{AccountID: account.ID})
		assert.ErrorIs(t, err, service.ErrPlaybookNotFound)

		active, err := env.playbooks.List(ctx, tc, true)
		require.NoError(t, err)
		assert.Empty(t, active)
		all, err := env.playbooks.List(ctx, tc, false)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		_, err := env.playbooks.Create(ctx, tc, &domain.CreatePlaybookRequest{Name: "Bad", Actions: []domain.PlaybookAction{{Type: ""}}})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		playbook, err := env.playbooks.Create(ctx, tc, &domain.CreatePlaybookRequest{Name: "Good"})
		require.NoError(t, err)
		_, err = env.playbooks.RunPlaybook(ctx, tc, playbook.ID, &domain.RunPlaybookRequest{AccountID: uuid.New()})
		assert.ErrorIs(t, err, service.ErrAccountNotFound)

		require.NoError(t, env.playbooks.Delete(ctx, tc, playbook.ID))
		_, err = env.playbooks.GetByID(ctx, tc, playbook.ID)
		assert.ErrorIs(t, err, service.ErrPlaybookNotFound)
	})
}

func TestCDIService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tc := testutil.NewTenant()
	account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

	earlier := time.Now().UTC().Add(-time.Hour)
	_, err := env.cdi.IngestEvent(ctx, tc, &domain.IngestCDIEventRequest{
		AccountID:  &account.ID,
		SourceType: domain.CDISourceAnalytics,
		EventType:  "login",
		Payload:    map[string]interface{}{"user": "u-1"},
		OccurredAt: &earlier,
	})
	require.NoError(t, err)

	latest, err := env.cdi.IngestEvent(ctx, tc, &domain.IngestCDIEventRequest{
		AccountID:  &account.ID,
		SourceType: domain.CDISourceSupport,
		EventType:  "ticket_opened",
	})
	require.NoError(t, err)

	events, err := env.cdi.ListEvents(ctx, tc, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, latest.ID, events[0].ID)
	assert.Equal(t, "u-1", events[1].Payload["user"])

	recent, err := env.cdi.ListRecentEvents(ctx, tc, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	_, err = env.cdi.IngestEvent(ctx, tc, &domain.IngestCDIEventRequest{SourceType: "fax", EventType: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	missing := uuid.New()
	_, err = env.cdi.IngestEvent(ctx, tc, &domain.IngestCDIEventRequest{AccountID: &missing, SourceType: domain.CDISourceCRM, EventType: "x"})
	assert.ErrorIs(t, err, service.ErrAccountNotFound)
}

func TestFollowUpService(t *testing.T) {
	ctx := context.Background()

	t.Run("draft carries account context", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)
		for _, v := range []float64{0.8, 0.5} {
			_, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageAdoption, v, v, v))
			require.NoError(t, err)
		}

		for _, title := range []string{"Login broken", "Export slow"} {
			require.NoError(t, env.db.Create(&domain.ExternalTicket{
				TenantID:     tc.TenantID,
				ExternalID:   title,
				SourceType:   "zendesk",
				AccountID:    &account.ID,
				Title:        title,
				Status:       "open",
				Properties:   "{}",
				LastSyncedAt: time.Now().UTC(),
			}).Error)
		}

		draft, err := env.followUps.DraftFollowUp(ctx, tc, account.ID, map[string]interface{}{"tone": "friendly"})
		require.NoError(t, err)
		assert.Equal(t, "Hi there", draft.EmailBody)
		assert.Equal(t, account.ID, draft.AccountID)

		details := env.drafter.details
		assert.Equal(t, "Acme", details["account_name"])
		assert.InDelta(t, 0.5, details["health_score"].(float64), 1e-9)
		assert.Len(t, details["recent_alerts"], 1)
		assert.Equal(t, map[string]interface{}{"tone": "friendly"}, details["context"])
		assert.ElementsMatch(t, []string{"Login broken [open]", "Export slow [open]"}, details["recent_tickets"])
	})

	t.Run("provider failure is an upstream error", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)
		env.drafter.err = errProviderDown

		_, err := env.followUps.DraftFollowUp(ctx, tc, account.ID, nil)
		assert.ErrorIs(t, err, service.ErrUpstream)
	})

	t.Run("unknown account", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.followUps.DraftFollowUp(ctx, testutil.NewTenant(), uuid.New(), nil)
		assert.ErrorIs(t, err, service.ErrAccountNotFound)
	})
}
