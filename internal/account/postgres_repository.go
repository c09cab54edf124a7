package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, slug, name, is_personal, primary_owner_user_id, created_at, updated_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new account and its owner membership in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, a *Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO accounts (slug, name, is_personal, primary_owner_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query, a.Slug, a.Name, a.IsPersonal, a.PrimaryOwnerID).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts_memberships (account_id, user_id, account_role)
		VALUES ($1, $2, $3)`, a.ID, a.PrimaryOwnerID, RoleOwner)
	if err != nil {
		return fmt.Errorf("inserting owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing account: %w", err)
	}
	return nil
}

// GetByID retrieves a single account by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetBySlug retrieves a single account by its slug.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE slug = $1`, slug)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Slug, &a.Name, &a.IsPersonal, &a.PrimaryOwnerID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return &a, nil
}

// ListForUser retrieves the accounts userID is a member of, ordered by name.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Account, error) {
	query := `
		SELECT a.id, a.slug, a.name, a.is_personal, a.primary_owner_user_id, a.created_at, a.updated_at
		FROM accounts a
		JOIN accounts_memberships m ON m.account_id = a.id
		WHERE m.user_id = $1
		ORDER BY a.name ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Slug, &a.Name, &a.IsPersonal, &a.PrimaryOwnerID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}

	return accounts, nil
}

// Delete removes an account by its UUID. Memberships and owned resources cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AddMember inserts a membership.
func (r *PostgresRepository) AddMember(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO accounts_memberships (account_id, user_id, account_role)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query, m.AccountID, m.UserID, m.Role).Scan(&m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrAlreadyMember
			case "23503":
				return ErrUnknownUserOrRole
			}
		}
		return fmt.Errorf("inserting membership: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership.
func (r *PostgresRepository) RemoveMember(ctx context.Context, accountID, userID uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM accounts_memberships WHERE account_id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		return fmt.Errorf("deleting membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ListMembers retrieves an account's members ordered by join time.
func (r *PostgresRepository) ListMembers(ctx context.Context, accountID uuid.UUID) ([]Membership, error) {
	query := `
		SELECT m.account_id, m.user_id, u.name, m.account_role, m.created_at
		FROM accounts_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.account_id = $1
		ORDER BY m.created_at ASC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []Membership{}
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.AccountID, &m.UserID, &m.UserName, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating membership rows: %w", err)
	}

	return members, nil
}
