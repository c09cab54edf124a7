package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxera/fluxera/internal/api/handler"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error {
	return m.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name      string
		pinger    handler.DBPinger
		status    string
		connected bool
	}{
		{"healthy", &mockPinger{}, "healthy", true},
		{"database down", &mockPinger{err: errors.New("connection refused")}, "degraded", false},
		{"no database", nil, "degraded", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(tt.pinger, "0.1.0")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			data := parseEnvelope(t, w)["data"].(map[string]interface{})
			assert.Equal(t, tt.status, data["status"])
			assert.Equal(t, "0.1.0", data["version"])
			assert.Equal(t, tt.connected, data["database"].(map[string]interface{})["connected"])
		})
	}
}
