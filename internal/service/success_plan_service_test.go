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

func TestSuccessPlanService(t *testing.T) {
	ctx := context.Background()

	t.Run("plans are listed newest first", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)
		target := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

		first, err := env.plans.CreatePlan(ctx, tc, account.ID, &domain.CreateSuccessPlanRequest{
			Name:       "Q4 adoption",
			TargetDate: &target,
			Attributes: map[string]interface{}{"goal": "80% seat usage"},
		})
		require.NoError(t, err)
		assert.Equal(t, account.ID, first.AccountID)
		require.NotNil(t, first.TargetDate)
		assert.Equal(t, "2026-12-31T00:00:00Z", *first.TargetDate)
		assert.Equal(t, "80% seat usage", first.Attributes["goal"])

		time.Sleep(5 * time.Millisecond)
		second, err := env.plans.CreatePlan(ctx, tc, account.ID, &domain.CreateSuccessPlanRequest{Name: "Renewal prep"})
		require.NoError(t, err)
		assert.Nil(t, second.TargetDate)
		assert.Empty(t, second.Attributes)

		plans, err := env.plans.ListPlans(ctx, tc, account.ID)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, second.ID, plans[0].ID)
		assert.Equal(t, first.ID, plans[1].ID)
	})

	t.Run("steps append in order and track status", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)
		plan, err := env.plans.CreatePlan(ctx, tc, account.ID, &domain.CreateSuccessPlanRequest{Name: "Onboarding"})
		require.NoError(t, err)

		kickoff, err := env.plans.AddStep(ctx, tc, plan.ID, &domain.AddPlanStepRequest{Title: "Kickoff call", AssigneeUserID: strPtr("csm-1")})
		require.NoError(t, err)
		assert.Equal(t, domain.PlanStepPending, kickoff.Status)
		assert.Equal(t, 0, kickoff.SortOrder)
		require.NotNil(t, kickoff.AssigneeUserID)
		assert.Equal(t, "csm-1", *kickoff.AssigneeUserID)

		training, err := env.plans.AddStep(ctx, tc, plan.ID, &domain.AddPlanStepRequest{Title: "Admin training"})
		require.NoError(t, err)
		assert.Equal(t, 1, training.SortOrder)

		first := -1
		contract, err := env.plans.AddStep(ctx, tc, plan.ID, &domain.AddPlanStepRequest{Title: "Sign contract", SortOrder: &first})
		require.NoError(t, err)

		updated, err := env.plans.UpdateStepStatus(ctx, tc, training.ID, domain.PlanStepInProgress)
		require.NoError(t, err)
		assert.Equal(t, domain.PlanStepInProgress, updated.Status)

		steps, err := env.plans.ListSteps(ctx, tc, plan.ID)
		require.NoError(t, err)
		require.Len(t, steps, 3)
		assert.Equal(t, contract.ID, steps[0].ID)
		assert.Equal(t, kickoff.ID, steps[1].ID)
		assert.Equal(t, training.ID, steps[2].ID)
		assert.Equal(t, domain.PlanStepInProgress, steps[2].Status)
	})

	t.Run("unknown references", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		_, err := env.plans.CreatePlan(ctx, tc, uuid.New(), &domain.CreateSuccessPlanRequest{Name: "Ghost"})
		assert.ErrorIs(t, err, service.ErrAccountNotFound)

		_, err = env.plans.AddStep(ctx, tc, uuid.New(), &domain.AddPlanStepRequest{Title: "Orphan"})
		assert.ErrorIs(t, err, service.ErrPlanNotFound)

		_, err = env.plans.UpdateStepStatus(ctx, tc, uuid.New(), domain.PlanStepDone)
		assert.ErrorIs(t, err, service.ErrPlanStepNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

		_, err := env.plans.CreatePlan(ctx, tc, account.ID, &domain.CreateSuccessPlanRequest{Name: "  "})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		plan, err := env.plans.CreatePlan(ctx, tc, account.ID, &domain.CreateSuccessPlanRequest{Name: "Plan"})
		require.NoError(t, err)
		step, err := env.plans.AddStep(ctx, tc, plan.ID, &domain.AddPlanStepRequest{Title: "Step"})
		require.NoError(t, err)

		_, err = env.plans.UpdateStepStatus(ctx, tc, step.ID, domain.PlanStepStatus("cancelled"))
		assert.ErrorIs(t, err, service.ErrInvalidStepState)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		env := newTestEnv(t)
		owner := testutil.NewTenant()
		other := testutil.NewTenant()
		account := testutil.CreateTestAccount(t, env.db, owner.TenantID, "Acme", nil)
		plan, err := env.plans.CreatePlan(ctx, owner, account.ID, &domain.CreateSuccessPlanRequest{Name: "Private"})
		require.NoError(t, err)
		step, err := env.plans.AddStep(ctx, owner, plan.ID, &domain.AddPlanStepRequest{Title: "Step"})
		require.NoError(t, err)

		_, err = env.plans.ListPlans(ctx, other, account.ID)
		assert.ErrorIs(t, err, service.ErrAccountNotFound)
		_, err = env.plans.ListSteps(ctx, other, plan.ID)
		assert.ErrorIs(t, err, service.ErrPlanNotFound)
		_, err = env.plans.UpdateStepStatus(ctx, other, step.ID, domain.PlanStepDone)
		assert.ErrorIs(t, err, service.ErrPlanStepNotFound)
	})
}
