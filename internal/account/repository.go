package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned when an account record is not found.
var ErrAccountNotFound = errors.New("account not found")

// ErrDuplicateSlug is returned when an account with the same slug already exists.
var ErrDuplicateSlug = errors.New("account slug already exists")

// ErrAlreadyMember is returned when adding a user who is already a member.
var ErrAlreadyMember = errors.New("user is already a member")

// ErrMemberNotFound is returned when a membership does not exist.
var ErrMemberNotFound = errors.New("membership not found")

// ErrUnknownUserOrRole is returned when a membership references a missing user or role.
var ErrUnknownUserOrRole = errors.New("unknown user or role")

// Repository provides operations on accounts and their memberships.
type Repository interface {
	// Create inserts the account and makes its primary owner a member with the owner role.
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetBySlug(ctx context.Context, slug string) (*Account, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Account, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, m *Membership) error
	RemoveMember(ctx context.Context, accountID, userID uuid.UUID) error
	ListMembers(ctx context.Context, accountID uuid.UUID) ([]Membership, error)
}
