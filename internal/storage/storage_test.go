package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/success-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "a/b/c.json", "application/json", []byte(`{"ok":true}`)))

	data, err := store.Get(ctx, "a/b/c.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	require.NoError(t, store.Delete(ctx, "a/b/c.json"))
	_, err = store.Get(ctx, "a/b/c.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// Deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "a/b/c.json"))
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside.json", "/etc/passwd", ""} {
		err := store.Put(context.Background(), key, "text/plain", []byte("x"))
		assert.Error(t, err, key)
	}
}

func TestNewStorage_Modes(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := NewStorage(ctx, &config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = NewStorage(ctx, &config.StorageConfig{Mode: "azure"}, logger)
	assert.ErrorContains(t, err, "connection string")

	_, err = NewStorage(ctx, &config.StorageConfig{Mode: "s3"}, logger)
	assert.ErrorContains(t, err, "bucket")

	_, err = NewStorage(ctx, &config.StorageConfig{Mode: "gcs"}, logger)
	assert.ErrorContains(t, err, "bucket")

	_, err = NewStorage(ctx, &config.StorageConfig{Mode: "ftp"}, logger)
	assert.ErrorContains(t, err, "unsupported")
}

func TestS3Storage_CustomEndpoint(t *testing.T) {
	store, err := NewS3Storage(context.Background(), S3Config{
		Bucket:    "archive",
		Region:    "eu-north-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "archive", store.bucket)
}

func TestWebhookArchive_StoreAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	archive := NewWebhookArchive(store, "webhooks")
	archive.now = func() time.Time { return time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC) }

	tenantID, integrationID, syncLogID := uuid.New(), uuid.New(), uuid.New()
	key, err := archive.Store(ctx, tenantID, integrationID, syncLogID, []byte(`{"records":[]}`))
	require.NoError(t, err)

	assert.Equal(t,
		"webhooks/"+tenantID.String()+"/"+integrationID.String()+"/2026/03/07/"+syncLogID.String()+".json",
		key)

	body, err := archive.Load(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"records":[]}`, string(body))
}
