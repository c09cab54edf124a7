package validation

import (
	"strings"

	"github.com/google/uuid"

	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/asset"
)

var statusList = strings.Join(asset.Statuses, ", ")

// CreateAssetRequest mirrors the fields needed for create asset validation.
type CreateAssetRequest struct {
	Name     string
	Category string
	Status   string
}

// ValidateCreateAssetRequest validates the fields of a create asset request.
// An empty status defaults to available and is accepted.
func ValidateCreateAssetRequest(req CreateAssetRequest) []FieldError {
	var errs []FieldError

	errs = appendIf(errs, requireName("name", req.Name))
	errs = appendIf(errs, requireName("category", req.Category))

	if req.Status != "" && req.Status != asset.StatusAvailable && req.Status != asset.StatusInMaintenance {
		errs = append(errs, FieldError{Field: "status", Message: "new assets must be \"available\" or \"in_maintenance\""})
	}

	return errs
}

// UpdateAssetStatusRequest mirrors the fields needed for status update validation.
type UpdateAssetStatusRequest struct {
	Status     string
	AssignedTo *string
}

// ValidateUpdateAssetStatusRequest validates the shape of a status update.
func ValidateUpdateAssetStatusRequest(req UpdateAssetStatusRequest) []FieldError {
	var errs []FieldError

	if req.Status == "" {
		errs = append(errs, FieldError{Field: "status", Message: "status is required"})
	} else if !asset.ValidStatus(req.Status) {
		errs = append(errs, FieldError{Field: "status", Message: "status must be one of: " + statusList})
	}

	if req.AssignedTo != nil {
		if _, err := uuid.Parse(*req.AssignedTo); err != nil {
			errs = append(errs, FieldError{Field: "assignedTo", Message: "assignedTo must be a valid UUID"})
		}
	}

	return errs
}

// CheckAssetAssignment enforces that an asset is assigned to someone exactly
// when its status is assigned.
func CheckAssetAssignment(status string, assignedTo *string) error {
	if status == asset.StatusAssigned && assignedTo == nil {
		return apperr.BusinessRule("An assigned asset must have an assignee", apperr.Details{"status": status})
	}
	if status != asset.StatusAssigned && assignedTo != nil {
		return apperr.BusinessRule("Only assigned assets can have an assignee", apperr.Details{"status": status})
	}
	return nil
}
