// Package testutil provides an in-memory database and fixtures for package tests
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/database"
	"github.com/straye-as/success-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with every model migrated.
// A single connection keeps transactions and plain reads on the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=off", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db), "failed to migrate test database")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// NewTenant returns a context for a fresh tenant
func NewTenant() domain.TenantContext {
	return domain.NewTenantContext(uuid.New(), "test-user")
}

// CreateTestAccount inserts a root account, or a child when parent is set
func CreateTestAccount(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string, parent *domain.Account) *domain.Account {
	t.Helper()

	now := time.Now().UTC()
	account := &domain.Account{
		TenantID: tenantID,
		Name:     name,
		Status:   domain.AccountStatusActive,
	}
	account.ID = uuid.New()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.HierarchyPath = account.ID.String()
	if parent != nil {
		account.ParentID = &parent.ID
		account.HierarchyLevel = parent.HierarchyLevel + 1
		account.HierarchyPath = parent.HierarchyPath + "/" + account.ID.String()
	}

	require.NoError(t, db.Create(account).Error)
	return account
}

// SetAccountARR updates an account's annual recurring revenue
func SetAccountARR(t *testing.T, db *gorm.DB, account *domain.Account, arr float64) {
	t.Helper()
	require.NoError(t, db.Model(account).Update("arr", arr).Error)
	account.ARR = arr
}

// CreateTestStage inserts a lifecycle stage with the given JSON weights
func CreateTestStage(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name, weights string) *domain.LifecycleStage {
	t.Helper()

	if weights == "" {
		weights = "{}"
	}
	now := time.Now().UTC()
	stage := &domain.LifecycleStage{
		TenantID: tenantID,
		Name:     name,
		IsActive: true,
		Weights:  weights,
	}
	stage.CreatedAt = now
	stage.UpdatedAt = now

	require.NoError(t, db.Create(stage).Error)
	return stage
}

// CreateTestIntegration inserts an active integration source
func CreateTestIntegration(t *testing.T, db *gorm.DB, tenantID uuid.UUID, provider, webhookURL, config string) *domain.IntegrationSource {
	t.Helper()

	if config == "" {
		config = "{}"
	}
	now := time.Now().UTC()
	source := &domain.IntegrationSource{
		TenantID:     tenantID,
		Name:         provider + " integration",
		ProviderType: provider,
		WebhookURL:   webhookURL,
		Config:       config,
		IsActive:     true,
	}
	source.CreatedAt = now
	source.UpdatedAt = now

	require.NoError(t, db.Create(source).Error)
	return source
}
