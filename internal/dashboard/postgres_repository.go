package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxera/fluxera/internal/asset"
)

// trendTables maps a metric type to the table whose created_at it counts.
var trendTables = map[string]string{
	MetricLicenses: "licenses",
	MetricAssets:   "assets",
	MetricMembers:  "accounts_memberships",
}

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// TeamMetrics computes an account's headline figures in a single round trip.
func (r *PostgresRepository) TeamMetrics(ctx context.Context, accountID uuid.UUID, expiringBefore time.Time) (TeamMetrics, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM licenses WHERE account_id = $1),
			(SELECT COUNT(*) FROM licenses WHERE account_id = $1 AND expires_at > NOW() AND expires_at <= $2),
			(SELECT COUNT(*) FROM licenses WHERE account_id = $1 AND expires_at <= NOW()),
			(SELECT COALESCE(SUM(seats), 0) FROM licenses WHERE account_id = $1),
			(SELECT COUNT(*) FROM assets WHERE account_id = $1),
			(SELECT COUNT(*) FROM assets WHERE account_id = $1 AND status = 'assigned'),
			(SELECT COUNT(*) FROM accounts_memberships WHERE account_id = $1)`

	var m TeamMetrics
	err := r.pool.QueryRow(ctx, query, accountID, expiringBefore).Scan(
		&m.TotalLicenses, &m.ExpiringLicenses, &m.ExpiredLicenses, &m.TotalSeats,
		&m.TotalAssets, &m.AssignedAssets, &m.Members,
	)
	if err != nil {
		return TeamMetrics{}, fmt.Errorf("querying team metrics: %w", err)
	}
	return m, nil
}

// Trend counts rows created per day over the trailing window, oldest first.
// Days without rows are reported as zero.
func (r *PostgresRepository) Trend(ctx context.Context, accountID uuid.UUID, metricType string, days int) ([]TrendPoint, error) {
	table, ok := trendTables[metricType]
	if !ok {
		return nil, fmt.Errorf("unsupported metric type %q", metricType)
	}

	query := fmt.Sprintf(`
		SELECT to_char(d.day, 'YYYY-MM-DD'), COUNT(t.created_at)
		FROM generate_series(
			date_trunc('day', NOW()) - ($2::int - 1) * INTERVAL '1 day',
			date_trunc('day', NOW()),
			INTERVAL '1 day'
		) AS d(day)
		LEFT JOIN %s t
			ON t.account_id = $1
			AND t.created_at >= d.day
			AND t.created_at < d.day + INTERVAL '1 day'
		GROUP BY d.day
		ORDER BY d.day ASC`, table)

	rows, err := r.pool.Query(ctx, query, accountID, days)
	if err != nil {
		return nil, fmt.Errorf("querying %s trend: %w", metricType, err)
	}
	defer rows.Close()

	points := make([]TrendPoint, 0, days)
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning trend row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trend rows: %w", err)
	}

	return points, nil
}

// AssetStatus counts assets per status. Every status is present in the
// result, in display order.
func (r *PostgresRepository) AssetStatus(ctx context.Context, accountID uuid.UUID) ([]StatusCount, error) {
	query := `
		SELECT status, COUNT(*)
		FROM assets
		WHERE account_id = $1
		GROUP BY status`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying asset status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(asset.Statuses))
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning asset status row: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating asset status rows: %w", err)
	}

	out := make([]StatusCount, 0, len(asset.Statuses))
	for _, s := range asset.Statuses {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out, nil
}

// Widgets retrieves a user's widget layout ordered by position.
func (r *PostgresRepository) Widgets(ctx context.Context, accountID, userID uuid.UUID) ([]Widget, error) {
	query := `
		SELECT position, widget_type, config
		FROM dashboard_widgets
		WHERE account_id = $1 AND user_id = $2
		ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying widgets: %w", err)
	}
	defer rows.Close()

	widgets := []Widget{}
	for rows.Next() {
		var w Widget
		var config []byte
		if err := rows.Scan(&w.Position, &w.Type, &config); err != nil {
			return nil, fmt.Errorf("scanning widget row: %w", err)
		}
		w.Config = json.RawMessage(config)
		widgets = append(widgets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating widget rows: %w", err)
	}

	return widgets, nil
}

// ReplaceWidgets swaps a user's whole layout in one transaction.
func (r *PostgresRepository) ReplaceWidgets(ctx context.Context, accountID, userID uuid.UUID, widgets []Widget) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM dashboard_widgets WHERE account_id = $1 AND user_id = $2`, accountID, userID); err != nil {
		return fmt.Errorf("clearing widgets: %w", err)
	}

	for _, w := range widgets {
		config := []byte(w.Config)
		if len(config) == 0 {
			config = []byte("{}")
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO dashboard_widgets (account_id, user_id, position, widget_type, config)
			VALUES ($1, $2, $3, $4, $5::jsonb)`,
			accountID, userID, w.Position, w.Type, string(config))
		if err != nil {
			return fmt.Errorf("inserting widget: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing widgets: %w", err)
	}
	return nil
}
