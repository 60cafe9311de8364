package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/straye-as/success-api/internal/repository"
	"github.com/straye-as/success-api/internal/service"
	"github.com/straye-as/success-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updateRequest(dto *domain.AccountDTO, parentID *uuid.UUID) *domain.UpdateAccountRequest {
	return &domain.UpdateAccountRequest{
		Name:     dto.Name,
		ParentID: parentID,
		Status:   dto.Status,
		ARR:      dto.ARR,
	}
}

func TestAccountService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("root account", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		dto, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Acme", ARR: 120000})
		require.NoError(t, err)
		assert.Equal(t, 0, dto.HierarchyLevel)
		assert.Equal(t, dto.ID.String(), dto.HierarchyPath)
		assert.Equal(t, domain.AccountStatusActive, dto.Status)
		assert.Nil(t, dto.CurrentStage)
	})

	t.Run("child account extends the parent path", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		parent, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Parent"})
		require.NoError(t, err)
		child, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Child", ParentID: &parent.ID})
		require.NoError(t, err)

		assert.Equal(t, 1, child.HierarchyLevel)
		assert.Equal(t, parent.ID.String()+"/"+child.ID.String(), child.HierarchyPath)

		children, err := env.accounts.ListChildren(ctx, tc, parent.ID)
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, child.ID, children[0].ID)
	})

	t.Run("initial stage opens the journey", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		dto, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Acme", InitialStage: domain.StageOnboarding})
		require.NoError(t, err)
		require.NotNil(t, dto.CurrentStage)
		assert.Equal(t, domain.StageOnboarding, *dto.CurrentStage)

		history, err := env.journey.GetJourneyHistory(ctx, tc, dto.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Nil(t, history[0].FromStage)
		assert.Equal(t, "Initialized on account creation", history[0].Reason)
	})

	t.Run("parent from another tenant is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		foreign := testutil.CreateTestAccount(t, env.db, uuid.New(), "Foreign", nil)

		_, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Child", ParentID: &foreign.ID})
		assert.ErrorIs(t, err, service.ErrParentNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()

		_, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: " "})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Acme", Status: "unknown"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Acme", ARR: -1})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestAccountService_UpdateHierarchy(t *testing.T) {
	ctx := context.Background()

	t.Run("self parent is a cycle", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		a, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "A"})
		require.NoError(t, err)

		_, err = env.accounts.Update(ctx, tc, a.ID, updateRequest(a, &a.ID))
		assert.ErrorIs(t, err, service.ErrHierarchyCycle)
	})

	t.Run("descendant parent is a cycle", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		a, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "A"})
		require.NoError(t, err)
		b, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "B", ParentID: &a.ID})
		require.NoError(t, err)
		c, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "C", ParentID: &b.ID})
		require.NoError(t, err)

		_, err = env.accounts.Update(ctx, tc, a.ID, updateRequest(a, &c.ID))
		assert.ErrorIs(t, err, service.ErrHierarchyCycle)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("opposing concurrent moves cannot both succeed", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		a, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "A"})
		require.NoError(t, err)
		b, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "B"})
		require.NoError(t, err)

		errs := make([]error, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = env.accounts.Update(ctx, tc, a.ID, updateRequest(a, &b.ID))
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = env.accounts.Update(ctx, tc, b.ID, updateRequest(b, &a.ID))
		}()
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, service.ErrHierarchyCycle)
		}
		assert.Equal(t, 1, succeeded)

		gotA, err := env.accounts.GetByID(ctx, tc, a.ID)
		require.NoError(t, err)
		gotB, err := env.accounts.GetByID(ctx, tc, b.ID)
		require.NoError(t, err)
		assert.False(t, gotA.ParentID != nil && gotB.ParentID != nil, "both accounts ended up parented")
	})

	t.Run("moving a subtree rewrites descendant paths", func(t *testing.T) {
		env := newTestEnv(t)
		tc := testutil.NewTenant()
		root, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Root"})
		require.NoError(t, err)
		a, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "A"})
		require.NoError(t, err)
		b, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "B", ParentID: &a.ID})
		require.NoError(t, err)
		c, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "C", ParentID: &b.ID})
		require.NoError(t, err)

		moved, err := env.accounts.Update(ctx, tc, a.ID, updateRequest(a, &root.ID))
		require.NoError(t, err)
		assert.Equal(t, 1, moved.HierarchyLevel)
		assert.Equal(t, root.ID.String()+"/"+a.ID.String(), moved.HierarchyPath)

		grandchild, err := env.accounts.GetByID(ctx, tc, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, grandchild.HierarchyLevel)
		assert.Equal(t, root.ID.String()+"/"+a.ID.String()+"/"+b.ID.String()+"/"+c.ID.String(), grandchild.HierarchyPath)

		// detach back to root level
		detached, err := env.accounts.Update(ctx, tc, a.ID, updateRequest(a, nil))
		require.NoError(t, err)
		assert.Equal(t, 0, detached.HierarchyLevel)

		child, err := env.accounts.GetByID(ctx, tc, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, child.HierarchyLevel)
		assert.Equal(t, a.ID.String()+"/"+b.ID.String(), child.HierarchyPath)
	})
}

func TestAccountService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tc := testutil.NewTenant()

	parent, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Parent"})
	require.NoError(t, err)
	child, err := env.accounts.Create(ctx, tc, &domain.CreateAccountRequest{Name: "Child", ParentID: &parent.ID})
	require.NoError(t, err)

	err = env.accounts.Delete(ctx, tc, parent.ID)
	assert.ErrorIs(t, err, service.ErrHasChildren)
	assert.ErrorIs(t, err, service.ErrConflict)

	require.NoError(t, env.accounts.Delete(ctx, tc, child.ID))
	require.NoError(t, env.accounts.Delete(ctx, tc, parent.ID))

	_, err = env.accounts.GetByID(ctx, tc, parent.ID)
	assert.ErrorIs(t, err, service.ErrAccountNotFound)
}

func TestAccountService_GetByIDIncludesHealth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tc := testutil.NewTenant()
	account := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Acme", nil)

	for _, v := range []float64{0.9, 0.5} {
		_, err := env.health.RecordHealthScore(ctx, tc, account.ID, scoreRequest(domain.StageOnboarding, v, v, v))
		require.NoError(t, err)
	}

	dto, err := env.accounts.GetByID(ctx, tc, account.ID)
	require.NoError(t, err)
	require.NotNil(t, dto.LatestHealth)
	assert.InDelta(t, 0.5, dto.LatestHealth.Score, 1e-9)
	assert.Equal(t, int64(1), dto.OpenAlerts)
}

func TestAccountService_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tc := testutil.NewTenant()

	root := testutil.CreateTestAccount(t, env.db, tc.TenantID, "Alpha", nil)
	testutil.CreateTestAccount(t, env.db, tc.TenantID, "Beta", nil)
	testutil.CreateTestAccount(t, env.db, tc.TenantID, "Alpha Child", root)
	testutil.CreateTestAccount(t, env.db, uuid.New(), "Other tenant", nil)

	page, err := env.accounts.List(ctx, tc, domain.AccountFilters{}, repository.DefaultSortConfig(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)

	roots, err := env.accounts.List(ctx, tc, domain.AccountFilters{RootOnly: true}, repository.DefaultSortConfig(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), roots.Total)

	search, err := env.accounts.List(ctx, tc, domain.AccountFilters{Search: "child"}, repository.DefaultSortConfig(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), search.Total)
}
