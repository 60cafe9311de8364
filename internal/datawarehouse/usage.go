package datawarehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/straye-as/success-api/internal/scoring"
	"go.uber.org/zap"
)

// ErrNotInitialized is returned when querying a disabled warehouse
var ErrNotInitialized = errors.New("data warehouse client not initialized")

// usageQuery aggregates product usage for one account over [from, to)
const usageQuery = `
SELECT
	COUNT(DISTINCT CAST(e.occurred_at AS date)) AS active_days,
	COUNT(DISTINCT e.feature_key) AS features_used,
	(SELECT COUNT(*) FROM dbo.cs_feature_catalog WHERE is_active = 1) AS features_available,
	COUNT(DISTINCT e.user_id) AS active_users,
	COUNT(DISTINCT CASE WHEN e.is_power_action = 1 THEN e.user_id END) AS power_users
FROM dbo.cs_usage_events e
WHERE e.account_ref = @p1
	AND e.occurred_at >= @p2
	AND e.occurred_at < @p3`

// Usage is the raw usage aggregate of one account and window
type Usage struct {
	AccountRef        string
	WindowStart       time.Time
	WindowEnd         time.Time
	ActiveDays        int
	FeaturesUsed      int
	FeaturesAvailable int
	ActiveUsers       int
	PowerUsers        int
}

// Metrics converts the aggregate into the score components, each in [0, 1]:
// usage_frequency is the share of days with activity, breadth the share of
// features touched, depth the share of active users doing power actions.
func (u *Usage) Metrics() map[string]float64 {
	windowDays := math.Ceil(u.WindowEnd.Sub(u.WindowStart).Hours() / 24)
	return map[string]float64{
		scoring.ComponentUsageFrequency: ratio(float64(u.ActiveDays), windowDays),
		scoring.ComponentBreadth:        ratio(float64(u.FeaturesUsed), float64(u.FeaturesAvailable)),
		scoring.ComponentDepth:          ratio(float64(u.PowerUsers), float64(u.ActiveUsers)),
	}
}

func ratio(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Min(1, math.Max(0, part/whole))
}

// AccountUsage aggregates usage for the account mapped to accountRef
func (c *Client) AccountUsage(ctx context.Context, accountRef string, from, to time.Time) (*Usage, error) {
	if c == nil || c.db == nil {
		return nil, ErrNotInitialized
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	usage := &Usage{AccountRef: accountRef, WindowStart: from, WindowEnd: to}

	var activeDays, featuresUsed, featuresAvailable, activeUsers, powerUsers sql.NullInt64
	err := c.db.QueryRowContext(ctx, usageQuery, accountRef, from, to).Scan(
		&activeDays, &featuresUsed, &featuresAvailable, &activeUsers, &powerUsers,
	)
	if err != nil {
		c.logger.Error("Data warehouse usage query failed",
			zap.Error(err),
			zap.String("query", truncateQuery(usageQuery, 200)),
			zap.String("account_ref", accountRef),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("usage query failed: %w", err)
	}

	usage.ActiveDays = int(activeDays.Int64)
	usage.FeaturesUsed = int(featuresUsed.Int64)
	usage.FeaturesAvailable = int(featuresAvailable.Int64)
	usage.ActiveUsers = int(activeUsers.Int64)
	usage.PowerUsers = int(powerUsers.Int64)

	c.logger.Debug("Data warehouse usage query completed",
		zap.String("account_ref", accountRef),
		zap.Duration("duration", time.Since(start)),
	)
	return usage, nil
}
