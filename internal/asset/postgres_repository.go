package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const assetColumns = `id, account_id, name, category, status, assigned_to, created_at, updated_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new asset record.
func (r *PostgresRepository) Create(ctx context.Context, a *Asset) error {
	if a.Status == "" {
		a.Status = StatusAvailable
	}

	query := `
		INSERT INTO assets (account_id, name, category, status, assigned_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, a.AccountID, a.Name, a.Category, a.Status, a.AssignedTo).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting asset: %w", err)
	}

	return nil
}

// List retrieves an account's assets, optionally filtered by status.
func (r *PostgresRepository) List(ctx context.Context, accountID uuid.UUID, status *string) ([]Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE account_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID, status)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	assets := []Asset{}
	for rows.Next() {
		var a Asset
		err := rows.Scan(&a.ID, &a.AccountID, &a.Name, &a.Category, &a.Status, &a.AssignedTo, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning asset row: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating asset rows: %w", err)
	}

	return assets, nil
}

// UpdateStatus changes an asset's status and assignee.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, accountID, id uuid.UUID, upd StatusUpdate) (*Asset, error) {
	query := `
		UPDATE assets
		SET status = $3, assigned_to = $4, updated_at = NOW()
		WHERE account_id = $1 AND id = $2
		RETURNING ` + assetColumns

	var a Asset
	err := r.pool.QueryRow(ctx, query, accountID, id, upd.Status, upd.AssignedTo).Scan(
		&a.ID, &a.AccountID, &a.Name, &a.Category, &a.Status, &a.AssignedTo, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("updating asset status: %w", err)
	}

	return &a, nil
}

// Delete removes an asset within an account.
func (r *PostgresRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}
