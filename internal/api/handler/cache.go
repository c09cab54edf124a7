package handler

import (
	"net/http"

	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/dashcache"
)

type cacheStatsResponse struct {
	dashcache.Stats
	DefaultTTL string `json:"defaultTtl"`
}

type cacheClearResponse struct {
	Removed int `json:"removed"`
}

// CacheHandler exposes the dashboard cache to superusers.
type CacheHandler struct {
	cache *dashcache.Cache
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(cache *dashcache.Cache) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// Stats handles GET /admin/cache.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, cacheStatsResponse{
		Stats:      h.cache.Stats(),
		DefaultTTL: h.cache.DefaultTTL().String(),
	}, middleware.GetRequestID(r.Context()))
}

// Clear handles DELETE /admin/cache. With ?expired=true only expired entries
// are dropped.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if r.URL.Query().Get("expired") == "true" {
		response.Success(w, http.StatusOK, cacheClearResponse{Removed: h.cache.ClearExpired()}, requestID)
		return
	}

	response.Success(w, http.StatusOK, cacheClearResponse{Removed: h.cache.Clear()}, requestID)
}
