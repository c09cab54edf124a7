package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxera/fluxera/internal/api/handler"
	"github.com/fluxera/fluxera/internal/dashcache"
)

func TestCacheHandler_Stats(t *testing.T) {
	t.Parallel()

	cache := dashcache.New()
	cache.Set(dashcache.TeamMetrics("acme"), 1)
	cache.Set(dashcache.AssetStatus("acme"), 1)
	h := handler.NewCacheHandler(cache)

	req, w := makeChiRequest(http.MethodGet, "/admin/cache", nil, nil, nil)
	h.Stats(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["size"])
	assert.Equal(t, []interface{}{"asset-status:acme", "team-metrics:acme"}, data["keys"])
	assert.Equal(t, "30s", data["defaultTtl"])
}

func TestCacheHandler_Clear(t *testing.T) {
	t.Parallel()

	cache := dashcache.New()
	cache.Set("a", 1)
	cache.Set("b", 2)
	h := handler.NewCacheHandler(cache)

	req, w := makeChiRequest(http.MethodDelete, "/admin/cache", nil, nil, nil)
	h.Clear(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), parseEnvelope(t, w)["data"].(map[string]interface{})["removed"])
	assert.Zero(t, cache.Stats().Size)
}

func TestCacheHandler_ClearExpiredOnly(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := dashcache.New(dashcache.WithClock(func() time.Time { return now }))
	cache.Set("short", 1, time.Second)
	cache.Set("long", 2, time.Hour)
	now = now.Add(time.Minute)
	h := handler.NewCacheHandler(cache)

	req, w := makeChiRequest(http.MethodDelete, "/admin/cache?expired=true", nil, nil, nil)
	h.Clear(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), parseEnvelope(t, w)["data"].(map[string]interface{})["removed"])
	assert.Equal(t, []string{"long"}, cache.Stats().Keys)
}
