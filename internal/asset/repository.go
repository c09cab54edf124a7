package asset

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAssetNotFound is returned when an asset record is not found.
var ErrAssetNotFound = errors.New("asset not found")

// Repository provides CRUD operations on the assets table. All lookups are
// scoped to an account.
type Repository interface {
	Create(ctx context.Context, a *Asset) error
	List(ctx context.Context, accountID uuid.UUID, status *string) ([]Asset, error)
	UpdateStatus(ctx context.Context, accountID, id uuid.UUID, upd StatusUpdate) (*Asset, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
}
