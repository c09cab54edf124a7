package license

import (
	"time"

	"github.com/google/uuid"
)

// License is a software license owned by an account.
type License struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string
	Vendor    string
	Seats     int
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the license has an expiry at or before now.
func (l *License) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}
