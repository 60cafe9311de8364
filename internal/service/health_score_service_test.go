package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/events"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthScoreService_RecordHealthScore(t *testing.T) {
	ctx := context.Background()

	t.Run("default weights give a deterministic score", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		for i := 0; i < 2; i++ {
			result, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageOnboarding, 0.5, 0.6, 0.5))
			require.NoError(t, err)
			assert.InDelta(t, 0.53, result.Score, 1e-9)
			assert.Equal(t, string(domain.HealthCategoryAtRisk), result.Category)
		}
	})

	t.Run("first score has no trend", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		result, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageOnboarding, 0.2, 0.2, 0.2))
		require.NoError(t, err)
		assert.Nil(t, result.Trend)
		assert.Nil(t, result.AlertID)

		count, err := env.alerts.CountAlerts(ctx, tc, domain.AlertFilters{AccountID: &account.ID})
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("drop beyond threshold raises a health dip", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		_, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageOnboarding, 0.5, 0.6, 0.5))
		require.NoError(t, err)

		result, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageOnboarding, 0.38, 0.38, 0.38))
		require.NoError(t, err)
		require.NotNil(t, result.Trend)
		assert.InDelta(t, -0.15, *result.Trend, 1e-9)
		require.NotNil(t, result.AlertID)

		alerts, err := env.alerts.ListAlerts(ctx, tc, domain.AlertFilters{AccountID: &account.ID})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, domain.AlertTypeHealthDip, alerts[0].AlertType)
		assert.Equal(t, domain.AlertSeverityWarning, alerts[0].Severity)
		assert.Equal(t, "Health score decreased", alerts[0].Message)
		assert.Equal(t, domain.StageOnboarding, alerts[0].Context["stage"])
		assert.InDelta(t, -0.15, alerts[0].Context["trend"].(float64), 1e-9)

		assert.Len(t, env.publisher.ofType(events.TypeAlertRaised), 1)
		assert.Len(t, env.publisher.ofType(events.TypeHealthRecorded), 2)
	})

	t.Run("small drop raises nothing", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		_, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageOnboarding, 0.5, 0.6, 0.5))
		require.NoError(t, err)
		result, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageOnboarding, 0.48, 0.48, 0.48))
		require.NoError(t, err)
		require.NotNil(t, result.Trend)
		assert.InDelta(t, -0.05, *result.Trend, 1e-9)
		assert.Nil(t, result.AlertID)
	})

	t.Run("repeated dips are not deduplicated", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		for _, v := range []float64{0.8, 0.6, 0.8, 0.6} {
			_, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageAdoption, v, v, v))
			require.NoError(t, err)
		}

		dip := domain.AlertTypeHealthDip
		count, err := env.alerts.CountAlerts(ctx, tc, domain.AlertFilters{AccountID: &account.ID, AlertType: &dip})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("stage weights override the defaults", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)
		testutil.CreateTestStage(t, env.db, tc.TenantID, domain.StageRenewal, `{"usage_frequency":1}`)

		result, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageRenewal, 0.9, 0.1, 0.1))
		require.NoError(t, err)
		assert.InDelta(t, 0.9, result.Score, 1e-9)
		assert.Equal(t, string(domain.HealthCategoryHealthy), result.Category)
	})

	t.Run("validation errors", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		req := scoreRequest("", 0.5, 0.5, 0.5)
		_, err := env.health.RecordHealthScore(ctx, tc, account.ID, req)
		assert.ErrorIs(t, err, service.ErrEmptyStage)
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		req = scoreRequest(domain.StageOnboarding, 0.5, 0.5, 0.5)
		req.WindowStart = req.WindowEnd.Add(time.Hour)
		_, err = env.health.RecordHealthScore(ctx, tc, account.ID, req)
		assert.ErrorIs(t, err, service.ErrInvalidWindow)

		_, err = env.health.RecordHealthScore(ctx, tc, uuid.New(), scoreRequest(domain.StageOnboarding, 0.5, 0.5, 0.5))
		assert.ErrorIs(t, err, service.ErrAccountNotFound)

		_, err = env.health.RecordHealthScore(ctx, domain.TenantContext{}, account.ID, scoreRequest(domain.StageOnboarding, 0.5, 0.5, 0.5))
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("accounts of another tenant are invisible", func(t *testing.T) {
		env := newTestEnv(t)
		owner := testutil.NewTenant()
		other := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, owner.TenantID, "Acme", nil)

		_, err := env.health.RecordHealthScore(ctx, other, account.ID, scoreRequest(domain.StageOnboarding, 0.5, 0.5, 0.5))
		assert.ErrorIs(t, err, service.ErrAccountNotFound)
	})
}

func TestHealthScoreService_ListAndLatest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tc := testutil.NewTenant()
	account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

	latest, err := env.health.LatestHealthScore(ctx, tc, account.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for _, v := range []float64{0.2, 0.4, 0.6} {
		_, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageOnboarding, v, v, v))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	latest, err = env.health.LatestHealthScore(ctx, tc, account.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 0.6, latest.Score, 1e-9)

	history, err := env.health.ListHealthScores(ctx, tc, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.InDelta(t, 0.6, history[0].Score, 1e-9)
	assert.InDelta(t, 0.2, history[2].Score, 1e-9)
	assert.Equal(t, 0.6, history[0].Metrics["depth"])
}
