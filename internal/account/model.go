package account

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Account is a tenant (personal or team) owning licenses and assets.
type Account struct {
	ID             uuid.UUID
	Slug           string
	Name           string
	IsPersonal     bool
	PrimaryOwnerID uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Membership links a user to an account with a role.
type Membership struct {
	AccountID uuid.UUID
	UserID    uuid.UUID
	UserName  string
	Role      string
	CreatedAt time.Time
}
