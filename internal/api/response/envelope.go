// Package response writes the JSON envelope every Fluxera endpoint returns:
// {"data": ..., "error": {...}, "meta": {...}}.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fluxera/fluxera/internal/apperr"
)

// Codes produced by the HTTP layer itself. Domain failures use the apperr codes.
const (
	CodeInvalidJSON = "INVALID_JSON"
	CodeInvalidID   = "INVALID_ID"
	CodeInternal    = "INTERNAL_ERROR"
)

// Meta holds metadata for every API response.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// ListMeta extends Meta with pagination information.
type ListMeta struct {
	Meta
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ErrorBody is the error member of the envelope. Type is the apperr name
// (e.g. "ForbiddenError") and is empty for codes the HTTP layer produces.
type ErrorBody struct {
	Code    string `json:"code"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the standard API response wrapper. Meta is a Meta or ListMeta.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
	Meta  any        `json:"meta"`
}

// NewMeta stamps a response with requestID, or a fresh UUID when it is empty.
func NewMeta(requestID string) Meta {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return Meta{
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// JSON writes env with the given status code.
func JSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Success writes data under the envelope.
func Success(w http.ResponseWriter, status int, data any, requestID string) {
	JSON(w, status, Envelope{Data: data, Meta: NewMeta(requestID)})
}

// SuccessList writes one page of a list.
func SuccessList(w http.ResponseWriter, status int, data any, total, page, limit int, requestID string) {
	JSON(w, status, Envelope{
		Data: data,
		Meta: ListMeta{
			Meta:  NewMeta(requestID),
			Total: total,
			Page:  page,
			Limit: limit,
		},
	})
}

// List writes a complete, unpaginated collection as a single page.
func List[T any](w http.ResponseWriter, items []T, requestID string) {
	if items == nil {
		items = []T{}
	}
	SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, e ErrorBody, requestID string) {
	JSON(w, status, Envelope{Error: &e, Meta: NewMeta(requestID)})
}

// InvalidJSON reports a request body that could not be decoded.
func InvalidJSON(w http.ResponseWriter, requestID string) {
	Fail(w, http.StatusBadRequest, ErrorBody{
		Code:    CodeInvalidJSON,
		Message: "Request body must be valid JSON",
	}, requestID)
}

// InvalidID reports a path parameter that is not a UUID.
func InvalidID(w http.ResponseWriter, param, requestID string) {
	Fail(w, http.StatusBadRequest, ErrorBody{
		Code:    CodeInvalidID,
		Message: param + " must be a valid UUID",
	}, requestID)
}

// ValidationFailed reports per-field input errors.
func ValidationFailed(w http.ResponseWriter, fieldErrors any, requestID string) {
	Fail(w, http.StatusBadRequest, ErrorBody{
		Code:    string(apperr.CodeValidation),
		Type:    apperr.CodeValidation.Name(),
		Message: "Input validation failed",
		Details: fieldErrors,
	}, requestID)
}

// Internal reports a server-side failure. message must not leak internals.
func Internal(w http.ResponseWriter, message, requestID string) {
	Fail(w, http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: message}, requestID)
}

// Error writes err. Application errors keep their code, status, message and
// details, which for guard denials name the account and permission involved.
// Anything else is logged and reported as a generic 500.
func Error(w http.ResponseWriter, err error, requestID string) {
	appErr, ok := apperr.As(err)
	if !ok {
		slog.Error("unhandled error", "error", err, "requestId", requestID)
		Internal(w, "An unexpected error occurred", requestID)
		return
	}

	e := ErrorBody{
		Code:    string(appErr.Code),
		Type:    appErr.Name(),
		Message: appErr.Message,
	}
	if len(appErr.Details) > 0 {
		e.Details = appErr.Details
	}
	Fail(w, appErr.StatusCode, e, requestID)
}
