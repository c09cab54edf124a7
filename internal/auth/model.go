package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	IsSuperuser  bool
	ApiKeyPrefix string
	ApiKeyHash   string
	CreatedAt    time.Time
	RevokedAt    *time.Time

	// AccountCount is the number of accounts the user belongs to. Only List fills it.
	AccountCount int
}

// Principal returns the identity u authenticates as.
func (u *User) Principal() *Principal {
	return &Principal{
		UserID:      u.ID,
		Name:        u.Name,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
	}
}

// Principal is the authenticated identity making a request. It is stored in
// the request context after authentication.
type Principal struct {
	UserID      uuid.UUID
	Name        string
	Email       string
	IsSuperuser bool
}
