package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository computes dashboard aggregates from the source tables.
type Repository interface {
	TeamMetrics(ctx context.Context, accountID uuid.UUID, expiringBefore time.Time) (TeamMetrics, error)
	Trend(ctx context.Context, accountID uuid.UUID, metricType string, days int) ([]TrendPoint, error)
	AssetStatus(ctx context.Context, accountID uuid.UUID) ([]StatusCount, error)
	Widgets(ctx context.Context, accountID, userID uuid.UUID) ([]Widget, error)
	ReplaceWidgets(ctx context.Context, accountID, userID uuid.UUID, widgets []Widget) error
}
