package license

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const licenseColumns = `id, account_id, name, vendor, seats, expires_at, created_at, updated_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new license record.
func (r *PostgresRepository) Create(ctx context.Context, l *License) error {
	query := `
		INSERT INTO licenses (account_id, name, vendor, seats, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, l.AccountID, l.Name, l.Vendor, l.Seats, l.ExpiresAt).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateLicense
		}
		return fmt.Errorf("inserting license: %w", err)
	}

	return nil
}

// GetByID retrieves a single license within an account.
func (r *PostgresRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (*License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE account_id = $1 AND id = $2`

	var l License
	err := r.pool.QueryRow(ctx, query, accountID, id).Scan(
		&l.ID, &l.AccountID, &l.Name, &l.Vendor, &l.Seats, &l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("querying license: %w", err)
	}

	return &l, nil
}

// List retrieves an account's licenses, soonest expiry first.
func (r *PostgresRepository) List(ctx context.Context, accountID uuid.UUID) ([]License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE account_id = $1
		ORDER BY expires_at ASC NULLS LAST, name ASC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing licenses: %w", err)
	}
	defer rows.Close()

	licenses := []License{}
	for rows.Next() {
		var l License
		err := rows.Scan(&l.ID, &l.AccountID, &l.Name, &l.Vendor, &l.Seats, &l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning license row: %w", err)
		}
		licenses = append(licenses, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating license rows: %w", err)
	}

	return licenses, nil
}

// Delete removes a license within an account.
func (r *PostgresRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM licenses WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("deleting license: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}
