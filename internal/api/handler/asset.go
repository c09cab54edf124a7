package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/api/validation"
	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/asset"
	"github.com/fluxera/fluxera/internal/guard"
	"github.com/fluxera/fluxera/internal/permission"
)

type createAssetRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

type updateAssetStatusRequest struct {
	Status     string  `json:"status"`
	AssignedTo *string `json:"assignedTo"`
}

type assetResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Status     string  `json:"status"`
	AssignedTo *string `json:"assignedTo"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

func toAssetResponse(a *asset.Asset) assetResponse {
	resp := assetResponse{
		ID:        a.ID.String(),
		Name:      a.Name,
		Category:  a.Category,
		Status:    a.Status,
		CreatedAt: a.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: a.UpdatedAt.UTC().Format(timeFormat),
	}
	if a.AssignedTo != nil {
		assignee := a.AssignedTo.String()
		resp.AssignedTo = &assignee
	}
	return resp
}

// AssetHandler handles account asset endpoints.
type AssetHandler struct {
	scope      AccountScope
	assets     asset.Repository
	invalidate CacheInvalidator
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(scope AccountScope, assets asset.Repository, invalidate CacheInvalidator) *AssetHandler {
	return &AssetHandler{scope: scope, assets: assets, invalidate: invalidate}
}

// List handles GET /accounts/{slug}/assets with an optional ?status= filter.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	var status *string
	if s := r.URL.Query().Get("status"); s != "" {
		if !asset.ValidStatus(s) {
			response.ValidationFailed(w, []validation.FieldError{
				{Field: "status", Message: "status must be one of: " + strings.Join(asset.Statuses, ", ")},
			}, requestID)
			return
		}
		status = &s
	}

	assets, err := guard.WithAccountPermission(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.AssetsView,
		ResourceName: "assets",
	}, func(ctx context.Context) ([]asset.Asset, error) {
		return h.assets.List(ctx, acct.ID, status)
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]assetResponse, 0, len(assets))
	for i := range assets {
		items = append(items, toAssetResponse(&assets[i]))
	}

	response.List(w, items, requestID)
}

// Create handles POST /accounts/{slug}/assets.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.InvalidJSON(w, requestID)
		return
	}

	fieldErrors := validation.ValidateCreateAssetRequest(validation.CreateAssetRequest{
		Name:     req.Name,
		Category: req.Category,
		Status:   req.Status,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	a := &asset.Asset{
		AccountID: acct.ID,
		Name:      strings.TrimSpace(req.Name),
		Category:  strings.TrimSpace(req.Category),
		Status:    req.Status,
	}
	if a.Status == "" {
		a.Status = asset.StatusAvailable
	}

	err := guard.Run(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.AssetsCreate,
		ResourceName: "assets",
	}, func(ctx context.Context) error {
		return h.assets.Create(ctx, a)
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	h.invalidate.Invalidate(acct.Slug)
	response.Success(w, http.StatusCreated, toAssetResponse(a), requestID)
}

// UpdateStatus handles PATCH /accounts/{slug}/assets/{id}/status.
func (h *AssetHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req updateAssetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.InvalidJSON(w, requestID)
		return
	}

	fieldErrors := validation.ValidateUpdateAssetStatusRequest(validation.UpdateAssetStatusRequest{
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	upd := asset.StatusUpdate{Status: req.Status}
	if req.AssignedTo != nil {
		assignee, _ := uuid.Parse(*req.AssignedTo) // already validated
		upd.AssignedTo = &assignee
	}

	a, err := guard.WithAccountPermission(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.AssetsUpdate,
		ResourceName: "assets",
	}, func(ctx context.Context) (*asset.Asset, error) {
		if err := validation.CheckAssetAssignment(req.Status, req.AssignedTo); err != nil {
			return nil, err
		}
		a, err := h.assets.UpdateStatus(ctx, acct.ID, id, upd)
		if errors.Is(err, asset.ErrAssetNotFound) {
			return nil, apperr.NotFound("Asset not found", apperr.Details{"id": id.String()})
		}
		return a, err
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	h.invalidate.Invalidate(acct.Slug)
	response.Success(w, http.StatusOK, toAssetResponse(a), requestID)
}

// Delete handles DELETE /accounts/{slug}/assets/{id}.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		Permission:   permission.AssetsDelete,
		ResourceName: "assets",
	}, func(ctx context.Context) error {
		if err := h.assets.Delete(ctx, acct.ID, id); err != nil {
			if errors.Is(err, asset.ErrAssetNotFound) {
				return apperr.NotFound("Asset not found", apperr.Details{"id": id.String()})
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
