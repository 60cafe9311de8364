package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/datawarehouse"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLister struct {
	accounts []domain.Account
	err      error
	tenant   *uuid.UUID
}

func (l *stubLister) ListScorable(ctx context.Context, tenantID *uuid.UUID) ([]domain.Account, error) {
	l.tenant = tenantID
	return l.accounts, l.err
}

type stubUsage struct {
	failFor map[string]bool
}

func (u *stubUsage) AccountUsage(ctx context.Context, ref string, from, to time.Time) (*datawarehouse.Usage, error) {
	if u.failFor[ref] {
		return nil, errors.New("warehouse timeout")
	}
	return &datawarehouse.Usage{
		AccountRef:        ref,
		WindowStart:       from,
		WindowEnd:         to,
		ActiveDays:        15,
		FeaturesUsed:      5,
		FeaturesAvailable: 10,
		ActiveUsers:       4,
		PowerUsers:        1,
	}, nil
}

type recordedScore struct {
	tc        domain.TenantContext
	accountID uuid.UUID
	req       *domain.RecordHealthScoreRequest
}

type stubRecorder struct {
	mu    sync.Mutex
	calls []recordedScore
	alert bool
}

func (r *stubRecorder) RecordHealthScore(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, req *domain.RecordHealthScoreRequest) (*domain.HealthScoreResultDTO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedScore{tc: tc, accountID: accountID, req: req})
	res := &domain.HealthScoreResultDTO{ID: uuid.New(), Score: 0.5}
	if r.alert {
		id := uuid.New()
		res.AlertID = &id
	}
	return res, nil
}

func mappedAccount(tenantID uuid.UUID, ref string, stage *string) domain.Account {
	a := domain.Account{TenantID: tenantID, Name: ref, ExternalRef: ref, CurrentStage: stage}
	a.ID = uuid.New()
	return a
}

func TestHealthRecomputeJob(t *testing.T) {
	tenantA, tenantB := uuid.New(), uuid.New()
	adoption := "adoption"
	now := time.Date(2026, 3, 31, 2, 0, 0, 0, time.UTC)

	t.Run("scores each account with its stage or the default", func(t *testing.T) {
		lister := &stubLister{accounts: []domain.Account{
			mappedAccount(tenantA, "ACME", &adoption),
			mappedAccount(tenantB, "GLOBEX", nil),
		}}
		recorder := &stubRecorder{}
		job := NewHealthRecomputeJob(lister, &stubUsage{}, recorder, "", 30*24*time.Hour, zap.NewNop())
		job.now = func() time.Time { return now }

		result, err := job.Recompute(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, &RecomputeResult{Processed: 2, Succeeded: 2}, result)
		assert.Nil(t, lister.tenant)

		require.Len(t, recorder.calls, 2)
		first := recorder.calls[0]
		assert.Equal(t, tenantA, first.tc.TenantID)
		assert.Equal(t, domain.SystemActor, first.tc.UserID)
		assert.Equal(t, "adoption", first.req.Stage)
		assert.Equal(t, now, first.req.WindowEnd)
		assert.Equal(t, now.Add(-30*24*time.Hour), first.req.WindowStart)
		assert.InDelta(t, 0.5, first.req.Metrics["usage_frequency"], 1e-9)
		assert.InDelta(t, 0.5, first.req.Metrics["breadth"], 1e-9)
		assert.InDelta(t, 0.25, first.req.Metrics["depth"], 1e-9)

		assert.Equal(t, domain.StageOnboarding, recorder.calls[1].req.Stage)
	})

	t.Run("account failures are tallied and do not stop the pass", func(t *testing.T) {
		lister := &stubLister{accounts: []domain.Account{
			mappedAccount(tenantA, "BROKEN", nil),
			mappedAccount(tenantA, "ACME", nil),
		}}
		recorder := &stubRecorder{alert: true}
		job := NewHealthRecomputeJob(lister, &stubUsage{failFor: map[string]bool{"BROKEN": true}}, recorder, "renewal", 0, zap.NewNop())

		result, err := job.Recompute(context.Background(), &tenantA)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Alerts)
		assert.Equal(t, &tenantA, lister.tenant)
		require.Len(t, recorder.calls, 1)
		assert.Equal(t, "renewal", recorder.calls[0].req.Stage)
	})

	t.Run("run fails when every account fails", func(t *testing.T) {
		lister := &stubLister{accounts: []domain.Account{mappedAccount(tenantA, "BROKEN", nil)}}
		job := NewHealthRecomputeJob(lister, &stubUsage{failFor: map[string]bool{"BROKEN": true}}, &stubRecorder{}, "", 0, zap.NewNop())

		assert.Error(t, job.Run(context.Background()))
	})

	t.Run("listing error is returned", func(t *testing.T) {
		job := NewHealthRecomputeJob(&stubLister{err: errors.New("db down")}, &stubUsage{}, &stubRecorder{}, "", 0, zap.NewNop())

		_, err := job.Recompute(context.Background(), nil)
		assert.Error(t, err)
	})
}

type stubTrigger struct {
	sources   []domain.IntegrationSource
	failFor   map[uuid.UUID]bool
	triggered []uuid.UUID
}

func (s *stubTrigger) ListSyncable(ctx context.Context) ([]domain.IntegrationSource, error) {
	return s.sources, nil
}

func (s *stubTrigger) TriggerScheduledSync(ctx context.Context, source *domain.IntegrationSource) (*domain.IntegrationSyncLogDTO, error) {
	if s.failFor[source.ID] {
		return nil, errors.New("webhook returned 500")
	}
	s.triggered = append(s.triggered, source.ID)
	return &domain.IntegrationSyncLogDTO{ID: uuid.New(), IntegrationID: source.ID, Status: domain.SyncStatusRunning}, nil
}

func syncSource() domain.IntegrationSource {
	s := domain.IntegrationSource{TenantID: uuid.New(), ProviderType: "n8n", WebhookURL: "https://flows.example.com/hook", IsActive: true}
	s.ID = uuid.New()
	return s
}

func TestIntegrationSyncJob(t *testing.T) {
	ok1, broken, ok2 := syncSource(), syncSource(), syncSource()

	t.Run("one failing integration does not stop the others", func(t *testing.T) {
		trigger := &stubTrigger{
			sources: []domain.IntegrationSource{ok1, broken, ok2},
			failFor: map[uuid.UUID]bool{broken.ID: true},
		}
		job := NewIntegrationSyncJob(trigger, zap.NewNop())

		result, err := job.TriggerAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &SyncResult{Triggered: 2, Failed: 1}, result)
		assert.Equal(t, []uuid.UUID{ok1.ID, ok2.ID}, trigger.triggered)
		assert.NoError(t, job.Run(context.Background()))
	})

	t.Run("run fails when every trigger fails", func(t *testing.T) {
		trigger := &stubTrigger{
			sources: []domain.IntegrationSource{broken},
			failFor: map[uuid.UUID]bool{broken.ID: true},
		}
		assert.Error(t, NewIntegrationSyncJob(trigger, zap.NewNop()).Run(context.Background()))
	})

	t.Run("no integrations is a successful pass", func(t *testing.T) {
		assert.NoError(t, NewIntegrationSyncJob(&stubTrigger{}, zap.NewNop()).Run(context.Background()))
	})
}

func TestScheduler(t *testing.T) {
	noop := func(ctx context.Context) error { return nil }

	t.Run("registers jobs and rejects duplicates", func(t *testing.T) {
		s := NewScheduler(nil, zap.NewNop())
		require.NoError(t, s.AddJob(IntegrationSyncJobName, "0 */30 * * * *", time.Minute, noop))
		require.NoError(t, s.AddJob(HealthRecomputeJobName, "0 0 2 * * *", time.Minute, noop))

		assert.Error(t, s.AddJob(HealthRecomputeJobName, "@hourly", time.Minute, noop))
		assert.Equal(t, []string{HealthRecomputeJobName, IntegrationSyncJobName}, s.GetJobNames())

		require.NoError(t, s.RemoveJob(IntegrationSyncJobName))
		assert.Error(t, s.RemoveJob(IntegrationSyncJobName))
		assert.Equal(t, []string{HealthRecomputeJobName}, s.GetJobNames())
	})

	t.Run("invalid cron expression", func(t *testing.T) {
		s := NewScheduler(nil, zap.NewNop())
		assert.Error(t, s.AddJob("bad", "every tuesday", time.Minute, noop))
		assert.Empty(t, s.GetJobNames())
	})

	t.Run("run applies the timeout and records metrics", func(t *testing.T) {
		m := metrics.New()
		s := NewScheduler(m, zap.NewNop())

		err := s.RunNow("slow", 10*time.Millisecond, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		families, err := m.Registry().Gather()
		require.NoError(t, err)
		var found bool
		for _, f := range families {
			if f.GetName() == "success_api_jobs_runs_total" {
				found = true
			}
		}
		assert.True(t, found)
	})
}
