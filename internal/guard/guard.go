// Package guard gates account-scoped work behind authentication, membership
// and permission checks.
//
// The checks always run in that order and stop at the first failure, so the
// kind of error returned tells the caller which check failed:
//
//   - no principal: apperr.ErrUnauthorized
//   - principal is not a member of the account: apperr.ErrUnauthorized
//   - member without the permission: apperr.ErrForbidden
//
// In WithAccountPermission, failures of the platform itself are returned as
// plain wrapped errors and are never reported as a denial or as a grant.
// VerifyPermission logs them and reports false. Decisions are not cached.
package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/auth"
	"github.com/fluxera/fluxera/internal/permission"
)

const (
	msgNotLoggedIn      = "You must be logged in to perform this action"
	msgNotMember        = "You are not a member of this account"
	defaultResourceName = "this resource"
)

// Platform resolves identities, memberships and permission grants.
type Platform interface {
	// CurrentPrincipal returns the authenticated principal for ctx.
	CurrentPrincipal(ctx context.Context) (*auth.Principal, error)
	// IsMember reports whether userID belongs to accountID.
	IsMember(ctx context.Context, accountID, userID uuid.UUID) (bool, error)
	// CheckPermission reports whether userID holds p on accountID.
	CheckPermission(ctx context.Context, accountID uuid.UUID, p permission.Permission, userID uuid.UUID) (bool, error)
}

// Options describes the access a guarded call requires.
type Options struct {
	AccountID  uuid.UUID
	Permission permission.Permission
	// ResourceName is used only in the forbidden message.
	ResourceName string
}

// WithAccountPermission runs fn only when the current principal is a member of
// opts.AccountID holding opts.Permission. fn's result and error are returned
// as is.
func WithAccountPermission[T any](ctx context.Context, client Platform, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := validate(opts.AccountID, opts.Permission); err != nil {
		return zero, err
	}

	principal, err := authenticate(ctx, client)
	if err != nil {
		return zero, err
	}

	if err := requireMembership(ctx, client, opts.AccountID, principal.UserID); err != nil {
		return zero, err
	}

	granted, err := client.CheckPermission(ctx, opts.AccountID, opts.Permission, principal.UserID)
	if err != nil {
		return zero, fmt.Errorf("checking permission %s: %w", opts.Permission, err)
	}
	if !granted {
		resource := opts.ResourceName
		if resource == "" {
			resource = defaultResourceName
		}
		return zero, apperr.Forbidden(
			fmt.Sprintf("You do not have permission to perform this action on %s", resource),
			apperr.Details{
				"accountId":  opts.AccountID.String(),
				"permission": opts.Permission.String(),
				"userId":     principal.UserID.String(),
			},
		)
	}

	return fn(ctx)
}

// Run is WithAccountPermission for work that produces no value.
func Run(ctx context.Context, client Platform, opts Options, fn func(ctx context.Context) error) error {
	_, err := WithAccountPermission(ctx, client, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// VerifyPermission reports whether the current principal is a member of
// accountID holding p. It is meant for UI affordances rather than protecting
// writes. Only an unauthenticated caller or invalid input produces an error;
// every other negative outcome, platform failures included, is false.
func VerifyPermission(ctx context.Context, client Platform, accountID uuid.UUID, p permission.Permission) (bool, error) {
	if err := validate(accountID, p); err != nil {
		return false, err
	}

	principal, err := authenticate(ctx, client)
	if err != nil {
		return false, err
	}

	member, err := client.IsMember(ctx, accountID, principal.UserID)
	if err != nil {
		slog.Warn("membership check failed; reporting permission as not granted",
			"error", err, "accountId", accountID, "userId", principal.UserID, "permission", p.String())
		return false, nil
	}
	if !member {
		return false, nil
	}

	granted, err := client.CheckPermission(ctx, accountID, p, principal.UserID)
	if err != nil {
		slog.Warn("permission check failed; reporting permission as not granted",
			"error", err, "accountId", accountID, "userId", principal.UserID, "permission", p.String())
		return false, nil
	}
	return granted, nil
}

// VerifyMembership reports whether the current principal belongs to accountID.
func VerifyMembership(ctx context.Context, client Platform, accountID uuid.UUID) (bool, error) {
	if accountID == uuid.Nil {
		return false, apperr.Validation("account id is required", nil)
	}

	principal, err := authenticate(ctx, client)
	if err != nil {
		return false, err
	}

	member, err := client.IsMember(ctx, accountID, principal.UserID)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return member, nil
}

func validate(accountID uuid.UUID, p permission.Permission) error {
	if accountID == uuid.Nil {
		return apperr.Validation("account id is required", nil)
	}
	if !p.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown permission %q", p), apperr.Details{"permission": p.String()})
	}
	return nil
}

func authenticate(ctx context.Context, client Platform) (*auth.Principal, error) {
	principal, err := client.CurrentPrincipal(ctx)
	if err != nil || principal == nil || principal.UserID == uuid.Nil {
		return nil, apperr.Unauthorized(msgNotLoggedIn, nil)
	}
	return principal, nil
}

func requireMembership(ctx context.Context, client Platform, accountID, userID uuid.UUID) error {
	member, err := client.IsMember(ctx, accountID, userID)
	if err != nil {
		return fmt.Errorf("checking membership: %w", err)
	}
	if !member {
		return apperr.Unauthorized(msgNotMember, apperr.Details{
			"accountId": accountID.String(),
			"userId":    userID.String(),
		})
	}
	return nil
}
