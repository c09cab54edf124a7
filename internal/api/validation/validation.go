// Package validation checks request payloads before they reach a repository.
package validation

import (
	"regexp"
	"strings"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

const maxNameLen = 255

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func requireName(field, value string) *FieldError {
	name := strings.TrimSpace(value)
	if name == "" {
		return &FieldError{Field: field, Message: field + " is required"}
	}
	if len(name) > maxNameLen {
		return &FieldError{Field: field, Message: field + " must be at most 255 characters"}
	}
	return nil
}

func appendIf(errs []FieldError, fe *FieldError) []FieldError {
	if fe != nil {
		return append(errs, *fe)
	}
	return errs
}
