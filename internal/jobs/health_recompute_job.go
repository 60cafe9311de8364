package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/datawarehouse"
	"github.com/straye-as/success-api/internal/domain"
	"go.uber.org/zap"
)

// HealthRecomputeJobName is the name of the nightly health recompute job
const HealthRecomputeJobName = "health-recompute"

// DefaultUsageWindow is used when no window is configured
const DefaultUsageWindow = 30 * 24 * time.Hour

// ScorableAccountLister lists accounts that have a warehouse mapping
type ScorableAccountLister interface {
	ListScorable(ctx context.Context, tenantID *uuid.UUID) ([]domain.Account, error)
}

// UsageSource aggregates product usage for one mapped account
type UsageSource interface {
	AccountUsage(ctx context.Context, accountRef string, from, to time.Time) (*datawarehouse.Usage, error)
}

// HealthRecorder records one health snapshot
type HealthRecorder interface {
	RecordHealthScore(ctx context.Context, tc domain.TenantContext, accountID uuid.UUID, req *domain.RecordHealthScoreRequest) (*domain.HealthScoreResultDTO, error)
}

// RecomputeResult tallies one recompute pass
type RecomputeResult struct {
	Processed int
	Succeeded int
	Failed    int
	Alerts    int
}

// HealthRecomputeJob scores every mapped account from warehouse usage
type HealthRecomputeJob struct {
	accounts     ScorableAccountLister
	usage        UsageSource
	health       HealthRecorder
	defaultStage string
	window       time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewHealthRecomputeJob creates the job. An empty defaultStage means onboarding.
func NewHealthRecomputeJob(accounts ScorableAccountLister, usage UsageSource, health HealthRecorder, defaultStage string, window time.Duration, logger *zap.Logger) *HealthRecomputeJob {
	if defaultStage == "" {
		defaultStage = domain.StageOnboarding
	}
	if window <= 0 {
		window = DefaultUsageWindow
	}
	return &HealthRecomputeJob{
		accounts:     accounts,
		usage:        usage,
		health:       health,
		defaultStage: defaultStage,
		window:       window,
		logger:       logger,
		now:          time.Now,
	}
}

// Run recomputes every tenant. It fails only when no account could be scored.
func (j *HealthRecomputeJob) Run(ctx context.Context) error {
	result, err := j.Recompute(ctx, nil)
	if err != nil {
		return err
	}
	if result.Failed > 0 && result.Succeeded == 0 {
		return fmt.Errorf("all %d accounts failed to recompute", result.Failed)
	}
	return nil
}

// Recompute scores the mapped accounts of one tenant, or all tenants when
// tenantID is nil. Account failures are tallied and do not stop the pass.
func (j *HealthRecomputeJob) Recompute(ctx context.Context, tenantID *uuid.UUID) (*RecomputeResult, error) {
	accounts, err := j.accounts.ListScorable(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scorable accounts: %w", err)
	}

	end := j.now().UTC()
	start := end.Add(-j.window)
	result := &RecomputeResult{}

	for i := range accounts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		account := &accounts[i]
		result.Processed++

		alerted, err := j.recomputeAccount(ctx, account, start, end)
		if err != nil {
			result.Failed++
			j.logger.Warn("health recompute failed for account",
				zap.String("tenant_id", account.TenantID.String()),
				zap.String("account_id", account.ID.String()),
				zap.String("external_ref", account.ExternalRef),
				zap.Error(err))
			continue
		}
		result.Succeeded++
		if alerted {
			result.Alerts++
		}
	}

	j.logger.Info("health recompute completed",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("alerts", result.Alerts))
	return result, nil
}

func (j *HealthRecomputeJob) recomputeAccount(ctx context.Context, account *domain.Account, start, end time.Time) (bool, error) {
	usage, err := j.usage.AccountUsage(ctx, account.ExternalRef, start, end)
	if err != nil {
		return false, err
	}

	stage := j.defaultStage
	if account.CurrentStage != nil && *account.CurrentStage != "" {
		stage = *account.CurrentStage
	}

	res, err := j.health.RecordHealthScore(ctx, domain.SystemContext(account.TenantID), account.ID, &domain.RecordHealthScoreRequest{
		Stage:       stage,
		Metrics:     usage.Metrics(),
		WindowStart: start,
		WindowEnd:   end,
	})
	if err != nil {
		return false, err
	}
	return res.AlertID != nil, nil
}

// RegisterHealthRecomputeJob schedules the job
func RegisterHealthRecomputeJob(scheduler *Scheduler, job *HealthRecomputeJob, cronExpr string, timeout time.Duration) error {
	return scheduler.AddJob(HealthRecomputeJobName, cronExpr, timeout, job.Run)
}
