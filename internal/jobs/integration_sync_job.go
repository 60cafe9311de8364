package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/straye-as/success-api/internal/domain"
	"go.uber.org/zap"
)

// IntegrationSyncJobName is the name of the periodic integration sync job
const IntegrationSyncJobName = "integration-sync"

// SyncTrigger starts integration syncs on behalf of the scheduler
type SyncTrigger interface {
	ListSyncable(ctx context.Context) ([]domain.IntegrationSource, error)
	TriggerScheduledSync(ctx context.Context, source *domain.IntegrationSource) (*domain.IntegrationSyncLogDTO, error)
}

// SyncResult tallies one sync pass
type SyncResult struct {
	Triggered int
	Failed    int
}

// IntegrationSyncJob triggers every active integration that has a webhook URL
type IntegrationSyncJob struct {
	trigger SyncTrigger
	logger  *zap.Logger
}

func NewIntegrationSyncJob(trigger SyncTrigger, logger *zap.Logger) *IntegrationSyncJob {
	return &IntegrationSyncJob{trigger: trigger, logger: logger}
}

// Run triggers all syncable integrations
func (j *IntegrationSyncJob) Run(ctx context.Context) error {
	result, err := j.TriggerAll(ctx)
	if err != nil {
		return err
	}
	if result.Failed > 0 && result.Triggered == 0 {
		return fmt.Errorf("all %d integration syncs failed", result.Failed)
	}
	return nil
}

// TriggerAll posts a sync trigger to each integration. One failing
// integration does not stop the others.
func (j *IntegrationSyncJob) TriggerAll(ctx context.Context) (*SyncResult, error) {
	sources, err := j.trigger.ListSyncable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list syncable integrations: %w", err)
	}

	result := &SyncResult{}
	for i := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		source := &sources[i]

		if _, err := j.trigger.TriggerScheduledSync(ctx, source); err != nil {
			result.Failed++
			j.logger.Warn("scheduled sync failed",
				zap.String("tenant_id", source.TenantID.String()),
				zap.String("integration_id", source.ID.String()),
				zap.String("provider", source.ProviderType),
				zap.Error(err))
			continue
		}
		result.Triggered++
	}

	j.logger.Info("integration sync pass completed",
		zap.Int("triggered", result.Triggered),
		zap.Int("failed", result.Failed))
	return result, nil
}

// RegisterIntegrationSyncJob schedules the job
func RegisterIntegrationSyncJob(scheduler *Scheduler, job *IntegrationSyncJob, cronExpr string, timeout time.Duration) error {
	return scheduler.AddJob(IntegrationSyncJobName, cronExpr, timeout, job.Run)
}
