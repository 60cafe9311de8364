package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

// WebhookArchive keeps the raw body of every inbound integration webhook
type WebhookArchive struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
}

func NewWebhookArchive(store ObjectStore, prefix string) *WebhookArchive {
	return &WebhookArchive{store: store, prefix: prefix, now: time.Now}
}

// Key builds <prefix>/<tenant>/<integration>/<yyyy>/<mm>/<dd>/<sync log>.json
func (a *WebhookArchive) Key(tenantID, integrationID, syncLogID uuid.UUID, at time.Time) string {
	at = at.UTC()
	return path.Join(
		a.prefix,
		tenantID.String(),
		integrationID.String(),
		at.Format("2006"), at.Format("01"), at.Format("02"),
		syncLogID.String()+".json",
	)
}

// Store writes body and returns the key it was stored under
func (a *WebhookArchive) Store(ctx context.Context, tenantID, integrationID, syncLogID uuid.UUID, body []byte) (string, error) {
	key := a.Key(tenantID, integrationID, syncLogID, a.now())
	if err := a.store.Put(ctx, key, "application/json", body); err != nil {
		return "", fmt.Errorf("failed to archive webhook body: %w", err)
	}
	return key, nil
}

// Load reads an archived body back
func (a *WebhookArchive) Load(ctx context.Context, key string) ([]byte, error) {
	return a.store.Get(ctx, key)
}
