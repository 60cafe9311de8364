package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/scoring"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleStageService_CRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("create and list ordered by sort order", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		_, err := env.stages.Create(ctx, tc, &domain.CreateLifecycleStageRequest{Name: domain.StageRenewal, SortOrder: 4})
		require.NoError(t, err)
		created, err := env.stages.Create(ctx, tc, &domain.CreateLifecycleStageRequest{
			Name:      domain.StageOnboarding,
			SortOrder: 1,
			Weights:   map[string]float64{"usage_frequency": 0.5, "breadth": 0.5},
		})
		require.NoError(t, err)
		assert.True(t, created.IsActive)
		assert.Equal(t, 0.5, created.Weights["breadth"])

		stages, err := env.stages.List(ctx, tc)
		require.NoError(t, err)
		require.Len(t, stages, 2)
		assert.Equal(t, domain.StageOnboarding, stages[0].Name)
	})

	t.Run("duplicate names conflict", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		_, err := env.stages.Create(ctx, tc, &domain.CreateLifecycleStageRequest{Name: domain.StageAdoption})
		require.NoError(t, err)
		_, err = env.stages.Create(ctx, tc, &domain.CreateLifecycleStageRequest{Name: domain.StageAdoption})
		assert.ErrorIs(t, err, service.ErrStageNameExists)

		other := testutil.NewTenant()
		_, err = env.stages.Create(ctx, other, &domain.CreateLifecycleStageRequest{Name: domain.StageAdoption})
		assert.NoError(t, err)
	})

	t.Run("stage in use cannot be deleted or renamed", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		stage, err := env.stages.Create(ctx, tc, &domain.CreateLifecycleStageRequest{Name: domain.StageAdoption})
		require.NoError(t, err)
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)
		_, err = env.journey.UpdateAccountStage(ctx, tc, account.ID, &domain.UpdateStageRequest{Stage: domain.StageAdoption})
		require.NoError(t, err)

		err = env.stages.Delete(ctx, tc, stage.ID)
		assert.ErrorIs(t, err, service.ErrStageInUse)
		assert.ErrorIs(t, err, service.ErrConflict)

		_, err = env.stages.Update(ctx, tc, stage.ID, &domain.UpdateLifecycleStageRequest{Name: "growth"})
		assert.ErrorIs(t, err, service.ErrStageInUse)

		_, err = env.journey.UpdateAccountStage(ctx, tc, account.ID, &domain.UpdateStageRequest{Stage: domain.StageRenewal})
		require.NoError(t, err)
		assert.NoError(t, env.stages.Delete(ctx, tc, stage.ID))

		_, err = env.stages.GetByID(ctx, tc, stage.ID)
		assert.ErrorIs(t, err, service.ErrStageNotFound)
	})

	t.Run("unknown stage", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		err := env.stages.Delete(ctx, tc, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestWeightService(t *testing.T) {
	ctx := context.Background()

	t.Run("missing stage falls back to defaults", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		weights, err := env.weights.GetWeights(ctx, tc, "expansion")
		require.NoError(t, err)
		assert.True(t, weights.IsDefault)
		assert.Equal(t, map[string]float64(scoring.DefaultWeights()), weights.Weights)
	})

	t.Run("stored weights replace the defaults", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		_, err := env.weights.SetWeights(ctx, tc, domain.StageAdoption, map[string]float64{"usage_frequency": 0.2, "breadth": 0.8})
		require.NoError(t, err)

		weights, err := env.weights.GetWeights(ctx, tc, domain.StageAdoption)
		require.NoError(t, err)
		assert.False(t, weights.IsDefault)
		assert.Equal(t, 0.8, weights.Weights["breadth"])

		all, err := env.weights.ListWeights(ctx, tc)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, domain.StageAdoption, all[0].Stage)
	})

	t.Run("strict mode requires a unit sum", func(t *testing.T) {
		env := newTestEnv(t, withStrictWeights())
		tc := testutil.NewTenant()

		_, err := env.weights.SetWeights(ctx, tc, domain.StageAdoption, map[string]float64{"usage_frequency": 0.5, "breadth": 0.3})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = env.weights.SetWeights(ctx, tc, domain.StageAdoption, map[string]float64{"usage_frequency": 0.5, "breadth": 0.5})
		assert.NoError(t, err)
	})

	t.Run("lenient mode accepts any non-negative weights", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		_, err := env.weights.SetWeights(ctx, tc, domain.StageAdoption, map[string]float64{"usage_frequency": 0.5, "breadth": 0.3})
		assert.NoError(t, err)

		_, err = env.weights.SetWeights(ctx, tc, domain.StageAdoption, map[string]float64{"usage_frequency": -1})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = env.weights.SetWeights(ctx, tc, domain.StageAdoption, map[string]float64{})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestLifecycleStageService_Milestones(t *testing.T) {
	ctx := context.Background()

	t.Run("milestones are ordered and partially updated", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		stage := testutil.CreateTestStage(t, env.db, tc.TenantID, domain.StageOnboarding, "{}")

		golive, err := env.stages.CreateMilestone(ctx, tc, stage.ID, &domain.CreateMilestoneRequest{Name: "Go live", SortOrder: 2})
		require.NoError(t, err)
		kickoff, err := env.stages.CreateMilestone(ctx, tc, stage.ID, &domain.CreateMilestoneRequest{
			Name:        "Kickoff",
			Description: "Intro call with sponsor",
			SortOrder:   1,
		})
		require.NoError(t, err)
		assert.Equal(t, stage.ID, kickoff.StageID)

		milestones, err := env.stages.ListMilestones(ctx, tc, stage.ID)
		require.NoError(t, err)
		require.Len(t, milestones, 2)
		assert.Equal(t, kickoff.ID, milestones[0].ID)
		assert.Equal(t, golive.ID, milestones[1].ID)

		order := 0
		updated, err := env.stages.UpdateMilestone(ctx, tc, golive.ID, &domain.UpdateMilestoneRequest{SortOrder: &order})
		require.NoError(t, err)
		assert.Equal(t, "Go live", updated.Name)
		assert.Equal(t, 0, updated.SortOrder)

		milestones, err = env.stages.ListMilestones(ctx, tc, stage.ID)
		require.NoError(t, err)
		require.Len(t, milestones, 2)
		assert.Equal(t, golive.ID, milestones[0].ID)
		assert.Equal(t, "Intro call with sponsor", milestones[1].Description)

		blank := " "
		_, err = env.stages.UpdateMilestone(ctx, tc, golive.ID, &domain.UpdateMilestoneRequest{Name: &blank})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("delete", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		stage := testutil.CreateTestStage(t, env.db, tc.TenantID, domain.StageAdoption, "{}")
		milestone, err := env.stages.CreateMilestone(ctx, tc, stage.ID, &domain.CreateMilestoneRequest{Name: "First report"})
		require.NoError(t, err)

		require.NoError(t, env.stages.DeleteMilestone(ctx, tc, milestone.ID))
		assert.ErrorIs(t, env.stages.DeleteMilestone(ctx, tc, milestone.ID), service.ErrMilestoneNotFound)

		milestones, err := env.stages.ListMilestones(ctx, tc, stage.ID)
		require.NoError(t, err)
		assert.Empty(t, milestones)
	})

	t.Run("deleting a stage removes its milestones", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		stage := testutil.CreateTestStage(t, env.db, tc.TenantID, domain.StageRenewal, "{}")
		_, err := env.stages.CreateMilestone(ctx, tc, stage.ID, &domain.CreateMilestoneRequest{Name: "Renewal call"})
		require.NoError(t, err)

		require.NoError(t, env.stages.Delete(ctx, tc, stage.ID))

		var remaining int64
		require.NoError(t, env.db.Model(&domain.StageMilestone{}).Where("stage_id = ?", stage.ID).Count(&remaining).Error)
		assert.Zero(t, remaining)
	})

	t.Run("unknown stage or milestone", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		_, err := env.stages.CreateMilestone(ctx, tc, uuid.New(), &domain.CreateMilestoneRequest{Name: "Orphan"})
		assert.ErrorIs(t, err, service.ErrStageNotFound)
		_, err = env.stages.ListMilestones(ctx, tc, uuid.New())
		assert.ErrorIs(t, err, service.ErrStageNotFound)
		name := "Renamed"
		_, err = env.stages.UpdateMilestone(ctx, tc, uuid.New(), &domain.UpdateMilestoneRequest{Name: &name})
		assert.ErrorIs(t, err, service.ErrMilestoneNotFound)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		env := newTestEnv(t)
		owner := testutil.NewTenant()
		other := testutil.NewTenant()
		stage := testutil.CreateTestStage(t, env.db, owner.TenantID, domain.StageMaturity, "{}")
		milestone, err := env.stages.CreateMilestone(ctx, owner, stage.ID, &domain.CreateMilestoneRequest{Name: "Executive review"})
		require.NoError(t, err)

		_, err = env.stages.ListMilestones(ctx, other, stage.ID)
		assert.ErrorIs(t, err, service.ErrStageNotFound)
		assert.ErrorIs(t, env.stages.DeleteMilestone(ctx, other, milestone.ID), service.ErrMilestoneNotFound)
	})
}
