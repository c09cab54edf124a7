// Package platform implements guard.Platform on top of the Postgres schema:
// the principal comes from the request context, membership from the
// accounts_memberships table, and permission grants from the has_permission
// stored procedure.
package platform

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fluxera/fluxera/internal/auth"
	"github.com/fluxera/fluxera/internal/guard"
	"github.com/fluxera/fluxera/internal/permission"
)

const (
	isMemberQuery = `
		SELECT EXISTS(
			SELECT 1 FROM accounts_memberships
			WHERE account_id = $1 AND user_id = $2
		)`

	hasPermissionQuery = `SELECT public.has_permission($1, $2::app_permissions, $3)`
)

// Querier is the subset of pgxpool.Pool used by Client.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client resolves principals, memberships and permission grants.
type Client struct {
	db Querier
}

var _ guard.Platform = (*Client)(nil)

// New creates a Client querying db.
func New(db Querier) *Client {
	return &Client{db: db}
}

// CurrentPrincipal returns the principal placed in ctx by the auth middleware.
func (c *Client) CurrentPrincipal(ctx context.Context) (*auth.Principal, error) {
	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		return nil, auth.ErrNoPrincipal
	}
	return p, nil
}

// IsMember reports whether userID belongs to accountID.
func (c *Client) IsMember(ctx context.Context, accountID, userID uuid.UUID) (bool, error) {
	var member bool
	if err := c.db.QueryRow(ctx, isMemberQuery, accountID, userID).Scan(&member); err != nil {
		return false, fmt.Errorf("querying membership: %w", err)
	}
	return member, nil
}

// CheckPermission calls has_permission(account_id, permission_name, user_id).
// A NULL result is treated as not granted.
func (c *Client) CheckPermission(ctx context.Context, accountID uuid.UUID, p permission.Permission, userID uuid.UUID) (bool, error) {
	var granted *bool
	if err := c.db.QueryRow(ctx, hasPermissionQuery, accountID, p.String(), userID).Scan(&granted); err != nil {
		return false, fmt.Errorf("calling has_permission: %w", err)
	}
	return granted != nil && *granted, nil
}
