package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fluxera/fluxera/internal/account"
	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/dashboard"
	"github.com/fluxera/fluxera/internal/guard"
	"github.com/fluxera/fluxera/internal/permission"
)

type saveWidgetsRequest struct {
	Widgets []dashboard.Widget `json:"widgets"`
}

// DashboardHandler serves the account dashboard. Figures come from the
// dashboard service and are cached per account.
type DashboardHandler struct {
	scope     AccountScope
	dashboard *dashboard.Service
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(scope AccountScope, svc *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{scope: scope, dashboard: svc}
}

// serveView resolves the account, checks dashboard.view and writes fetch's result.
func serveView[T any](h *DashboardHandler, w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, acct *account.Account) (T, error)) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	data, err := guard.WithAccountPermission(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.DashboardView,
		ResourceName: "the dashboard",
	}, func(ctx context.Context) (T, error) {
		return fetch(ctx, acct)
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, data, requestID)
}

// Metrics handles GET /accounts/{slug}/dashboard/metrics.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	serveView(h, w, r, h.dashboard.TeamMetrics)
}

// Trends handles GET /accounts/{slug}/dashboard/trends?metric=&range=.
// Defaults are the assets metric over 30 days.
func (h *DashboardHandler) Trends(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = dashboard.MetricAssets
	}
	timeRange := dashboard.TimeRange(r.URL.Query().Get("range"))
	if timeRange == "" {
		timeRange = dashboard.Range30d
	}

	serveView(h, w, r, func(ctx context.Context, acct *account.Account) ([]dashboard.TrendPoint, error) {
		return h.dashboard.Trends(ctx, acct, metric, timeRange)
	})
}

// AssetStatus handles GET /accounts/{slug}/dashboard/asset-status.
func (h *DashboardHandler) AssetStatus(w http.ResponseWriter, r *http.Request) {
	serveView(h, w, r, h.dashboard.AssetStatus)
}

// Overview handles GET /accounts/{slug}/dashboard/overview.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	serveView(h, w, r, h.dashboard.Overview)
}

// Widgets handles GET /accounts/{slug}/dashboard/widgets for the caller.
func (h *DashboardHandler) Widgets(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	serveView(h, w, r, func(ctx context.Context, acct *account.Account) ([]dashboard.Widget, error) {
		return h.dashboard.Widgets(ctx, acct, principal.UserID)
	})
}

// SaveWidgets handles PUT /accounts/{slug}/dashboard/widgets, replacing the
// caller's layout.
func (h *DashboardHandler) SaveWidgets(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req saveWidgetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.InvalidJSON(w, requestID)
		return
	}
	if req.Widgets == nil {
		req.Widgets = []dashboard.Widget{}
	}

	err := guard.Run(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.DashboardManage,
		ResourceName: "the dashboard",
	}, func(ctx context.Context) error {
		return h.dashboard.SaveWidgets(ctx, acct, principal.UserID, req.Widgets)
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, req.Widgets, requestID)
}
