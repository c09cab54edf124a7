package validation

import "time"

// CreateLicenseRequest mirrors the fields needed for create license validation.
type CreateLicenseRequest struct {
	Name      string
	Vendor    string
	Seats     int
	ExpiresAt *string
}

// ValidateCreateLicenseRequest validates the fields of a create license request.
func ValidateCreateLicenseRequest(req CreateLicenseRequest) []FieldError {
	var errs []FieldError

	errs = appendIf(errs, requireName("name", req.Name))
	errs = appendIf(errs, requireName("vendor", req.Vendor))

	if req.Seats < 1 {
		errs = append(errs, FieldError{Field: "seats", Message: "seats must be at least 1"})
	}

	if req.ExpiresAt != nil {
		if _, err := time.Parse(time.RFC3339, *req.ExpiresAt); err != nil {
			errs = append(errs, FieldError{Field: "expiresAt", Message: "expiresAt must be an RFC 3339 timestamp"})
		}
	}

	return errs
}
