package asset

import (
	"time"

	"github.com/google/uuid"
)

// Asset statuses.
const (
	StatusAvailable     = "available"
	StatusAssigned      = "assigned"
	StatusInMaintenance = "in_maintenance"
	StatusRetired       = "retired"
)

// Statuses lists every asset status in display order.
var Statuses = []string{StatusAvailable, StatusAssigned, StatusInMaintenance, StatusRetired}

// ValidStatus reports whether s is a known asset status.
func ValidStatus(s string) bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Asset is a piece of hardware or equipment owned by an account.
type Asset struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Name       string
	Category   string
	Status     string
	AssignedTo *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusUpdate holds a status transition. AssignedTo is required for the
// assigned status and cleared for every other status.
type StatusUpdate struct {
	Status     string
	AssignedTo *uuid.UUID
}
