package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/api/validation"
	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/guard"
	"github.com/fluxera/fluxera/internal/license"
	"github.com/fluxera/fluxera/internal/permission"
)

type createLicenseRequest struct {
	Name      string  `json:"name"`
	Vendor    string  `json:"vendor"`
	Seats     int     `json:"seats"`
	ExpiresAt *string `json:"expiresAt"`
}

type licenseResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Vendor    string  `json:"vendor"`
	Seats     int     `json:"seats"`
	ExpiresAt *string `json:"expiresAt"`
	Expired   bool    `json:"expired"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

func toLicenseResponse(l *license.License, now time.Time) licenseResponse {
	resp := licenseResponse{
		ID:        l.ID.String(),
		Name:      l.Name,
		Vendor:    l.Vendor,
		Seats:     l.Seats,
		Expired:   l.Expired(now),
		CreatedAt: l.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: l.UpdatedAt.UTC().Format(timeFormat),
	}
	if l.ExpiresAt != nil {
		exp := l.ExpiresAt.UTC().Format(timeFormat)
		resp.ExpiresAt = &exp
	}
	return resp
}

// LicenseHandler handles account license endpoints.
type LicenseHandler struct {
	scope      AccountScope
	licenses   license.Repository
	invalidate CacheInvalidator
}

// NewLicenseHandler creates a new LicenseHandler.
func NewLicenseHandler(scope AccountScope, licenses license.Repository, invalidate CacheInvalidator) *LicenseHandler {
	return &LicenseHandler{scope: scope, licenses: licenses, invalidate: invalidate}
}

// List handles GET /accounts/{slug}/licenses.
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	licenses, err := guard.WithAccountPermission(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.LicensesView,
		ResourceName: "licenses",
	}, func(ctx context.Context) ([]license.License, error) {
		return h.licenses.List(ctx, acct.ID)
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	now := time.Now()
	items := make([]licenseResponse, 0, len(licenses))
	for i := range licenses {
		items = append(items, toLicenseResponse(&licenses[i], now))
	}

	response.List(w, items, requestID)
}

// Get handles GET /accounts/{slug}/licenses/{id}.
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	l, err := guard.WithAccountPermission(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.LicensesView,
		ResourceName: "licenses",
	}, func(ctx context.Context) (*license.License, error) {
		l, err := h.licenses.GetByID(ctx, acct.ID, id)
		if errors.Is(err, license.ErrLicenseNotFound) {
			return nil, apperr.NotFound("License not found", apperr.Details{"id": id.String()})
		}
		return l, err
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toLicenseResponse(l, time.Now()), requestID)
}

// Create handles POST /accounts/{slug}/licenses.
func (h *LicenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.InvalidJSON(w, requestID)
		return
	}

	fieldErrors := validation.ValidateCreateLicenseRequest(validation.CreateLicenseRequest{
		Name:      req.Name,
		Vendor:    req.Vendor,
		Seats:     req.Seats,
		ExpiresAt: req.ExpiresAt,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	l := &license.License{
		AccountID: acct.ID,
		Name:      strings.TrimSpace(req.Name),
		Vendor:    strings.TrimSpace(req.Vendor),
		Seats:     req.Seats,
	}
	if req.ExpiresAt != nil {
		exp, _ := time.Parse(time.RFC3339, *req.ExpiresAt) // already validated
		l.ExpiresAt = &exp
	}

	err := guard.Run(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.LicensesCreate,
		ResourceName: "licenses",
	}, func(ctx context.Context) error {
		if err := h.licenses.Create(ctx, l); err != nil {
			if errors.Is(err, license.ErrDuplicateLicense) {
				return apperr.Conflict("A license with this name and vendor already exists", apperr.Details{
					"name":   l.Name,
					"vendor": l.Vendor,
				})
			}
			return err
		}
		return nil
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	h.invalidate.Invalidate(acct.Slug)
	response.Success(w, http.StatusCreated, toLicenseResponse(l, time.Now()), requestID)
}

// Delete handles DELETE /accounts/{slug}/licenses/{id}.
func (h *LicenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	err := guard.Run(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.LicensesDelete,
		ResourceName: "licenses",
	}, func(ctx context.Context) error {
		if err := h.licenses.Delete(ctx, acct.ID, id); err != nil {
			if errors.Is(err, license.ErrLicenseNotFound) {
				return apperr.NotFound("License not found", apperr.Details{"id": id.String()})
			}
			return err
		}
		return nil
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	h.invalidate.Invalidate(acct.Slug)
	response.NoContent(w)
}
