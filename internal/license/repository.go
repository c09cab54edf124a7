package license

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrLicenseNotFound is returned when a license record is not found.
var ErrLicenseNotFound = errors.New("license not found")

// ErrDuplicateLicense is returned when the account already has a license with the same name and vendor.
var ErrDuplicateLicense = errors.New("license already exists")

// Repository provides CRUD operations on the licenses table. All lookups are
// scoped to an account.
type Repository interface {
	Create(ctx context.Context, l *License) error
	GetByID(ctx context.Context, accountID, id uuid.UUID) (*License, error)
	List(ctx context.Context, accountID uuid.UUID) ([]License, error)
	Delete(ctx context.Context, accountID, id uuid.UUID) error
}
