package validation

import (
	"github.com/google/uuid"

	"github.com/fluxera/fluxera/internal/account"
)

// CreateAccountRequest mirrors the fields needed for create account validation.
type CreateAccountRequest struct {
	Slug string
	Name string
}

// ValidateCreateAccountRequest validates the fields of a create account request.
func ValidateCreateAccountRequest(req CreateAccountRequest) []FieldError {
	var errs []FieldError

	if req.Slug == "" {
		errs = append(errs, FieldError{Field: "slug", Message: "slug is required"})
	} else if !slugRegex.MatchString(req.Slug) {
		errs = append(errs, FieldError{Field: "slug", Message: "slug must be lowercase alphanumeric with hyphens, 2-63 characters, starting with a letter or digit"})
	}

	return appendIf(errs, requireName("name", req.Name))
}

// AddMemberRequest mirrors the fields needed for add member validation.
type AddMemberRequest struct {
	UserID string
	Role   string
}

// ValidateAddMemberRequest validates the fields of an add member request.
func ValidateAddMemberRequest(req AddMemberRequest) []FieldError {
	var errs []FieldError

	if req.UserID == "" {
		errs = append(errs, FieldError{Field: "userId", Message: "userId is required"})
	} else if _, err := uuid.Parse(req.UserID); err != nil {
		errs = append(errs, FieldError{Field: "userId", Message: "userId must be a valid UUID"})
	}

	if req.Role == "" {
		errs = append(errs, FieldError{Field: "role", Message: "role is required"})
	} else if req.Role != account.RoleOwner && req.Role != account.RoleMember {
		errs = append(errs, FieldError{Field: "role", Message: "role must be \"owner\" or \"member\""})
	}

	return errs
}
