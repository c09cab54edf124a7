package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	userColumns = `u.id, u.name, u.email, u.is_superuser, u.api_key_prefix, u.api_key_hash, u.created_at, u.revoked_at`

	emailUniqueConstraint = "users_email_key"
)

// PostgresRepository implements UserRepository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new UserRepository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) UserRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts u and fills in its ID and creation time.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, is_superuser, api_key_prefix, api_key_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.Name, u.Email, u.IsSuperuser, u.ApiKeyPrefix, u.ApiKeyHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == emailUniqueConstraint {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a single user by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	rows, _ := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}

// FindActiveByKeyPrefix returns users whose key may match; the caller
// still has to compare the bcrypt hash.
func (r *PostgresRepository) FindActiveByKeyPrefix(ctx context.Context, prefix string) ([]User, error) {
	rows, _ := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.api_key_prefix = $1 AND u.revoked_at IS NULL`, prefix)

	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("finding users by key prefix: %w", err)
	}
	return users, nil
}

// List returns all users in creation order with the number of accounts
// each one belongs to.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, _ := r.pool.Query(ctx, `
		SELECT `+userColumns+`, COUNT(m.account_id)
		FROM users u
		LEFT JOIN accounts_memberships m ON m.user_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at ASC, u.id ASC`)

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(
			&u.ID, &u.Name, &u.Email, &u.IsSuperuser,
			&u.ApiKeyPrefix, &u.ApiKeyHash,
			&u.CreatedAt, &u.RevokedAt,
			&u.AccountCount,
		)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Revoke sets revoked_at on a user in a single statement. Returns
// ErrUserNotFound for an unknown id and ErrUserRevoked when it was already set.
func (r *PostgresRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	var found, revoked bool
	err := r.pool.QueryRow(ctx, `
		WITH target AS (
			SELECT id FROM users WHERE id = $1
		), updated AS (
			UPDATE users SET revoked_at = NOW()
			FROM target
			WHERE users.id = target.id AND users.revoked_at IS NULL
			RETURNING users.id
		)
		SELECT EXISTS (SELECT 1 FROM target), EXISTS (SELECT 1 FROM updated)`, id,
	).Scan(&found, &revoked)
	if err != nil {
		return fmt.Errorf("revoking user: %w", err)
	}

	switch {
	case !found:
		return ErrUserNotFound
	case !revoked:
		return ErrUserRevoked
	}
	return nil
}

// Exists reports whether any user, revoked or not, has been created.
func (r *PostgresRepository) Exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking for users: %w", err)
	}
	return exists, nil
}

func scanUser(row pgx.CollectableRow) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.IsSuperuser,
		&u.ApiKeyPrefix, &u.ApiKeyHash,
		&u.CreatedAt, &u.RevokedAt,
	)
	return u, err
}
