package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err)
	return env["error"].(map[string]interface{})
}

// --- RequestID ---

func TestRequestID_GeneratesNewID(t *testing.T) {
	var capturedID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = middleware.GetRequestID(r.Context())
	}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(capturedID)
	assert.NoError(t, err, "generated request ID should be a valid UUID")
	assert.Equal(t, capturedID, w.Header().Get("X-Request-ID"))
}

func TestRequestID_UsesExistingHeader(t *testing.T) {
	var capturedID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = middleware.GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "my-existing-request-id")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, "my-existing-request-id", capturedID)
	assert.Equal(t, "my-existing-request-id", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesOversizedHeader(t *testing.T) {
	handler := middleware.RequestID(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 500))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	assert.Equal(t, "", middleware.GetRequestID(context.Background()))
}

// --- Recovery ---

func TestRecovery_NoPanic(t *testing.T) {
	w := httptest.NewRecorder()

	middleware.Recovery(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_HandlesPanic(t *testing.T) {
	handler := middleware.RequestID(middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "panic-req")
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() { handler.ServeHTTP(w, req) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := parseErrorResponse(t, w)
	assert.Equal(t, "INTERNAL_ERROR", apiErr["code"])
	assert.Equal(t, "An unexpected error occurred", apiErr["message"])
}

// --- Auth ---

type stubAuthenticator struct {
	principal *auth.Principal
	err       error
	gotKey    string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, rawKey string) (*auth.Principal, error) {
	s.gotKey = rawKey
	return s.principal, s.err
}

func TestAuth_MissingKey(t *testing.T) {
	authn := &stubAuthenticator{}
	w := httptest.NewRecorder()

	middleware.Auth(authn)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	apiErr := parseErrorResponse(t, w)
	assert.Equal(t, "UNAUTHORIZED", apiErr["code"])
	assert.Equal(t, "API key is required", apiErr["message"])
	assert.Equal(t, "UnauthorizedError", apiErr["type"])
	assert.Empty(t, authn.gotKey)
}

func TestAuth_InvalidKey(t *testing.T) {
	authn := &stubAuthenticator{err: auth.ErrInvalidKey}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "flx_invalidkeyvalue")
	w := httptest.NewRecorder()

	middleware.Auth(authn)(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or revoked API key", parseErrorResponse(t, w)["message"])
	assert.Equal(t, "flx_invalidkeyvalue", authn.gotKey)
}

func TestAuth_BackendError(t *testing.T) {
	authn := &stubAuthenticator{err: errors.New("db down")}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "flx_whatever")
	w := httptest.NewRecorder()

	middleware.Auth(authn)(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", parseErrorResponse(t, w)["code"])
}

func TestAuth_ValidKey_PrincipalInContext(t *testing.T) {
	p := &auth.Principal{UserID: uuid.New(), Name: "alice"}
	authn := &stubAuthenticator{principal: p}

	var got *auth.Principal
	handler := middleware.Auth(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "flx_validkey")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, p, got)
	assert.Same(t, p, auth.PrincipalFromContext(auth.WithPrincipal(context.Background(), got)))
}

// --- RequireSuperuser ---

func serveWithPrincipal(p *auth.Principal, h http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRequireSuperuser(t *testing.T) {
	tests := []struct {
		name      string
		principal *auth.Principal
		status    int
		code      string
	}{
		{"no principal", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"regular user", &auth.Principal{UserID: uuid.New()}, http.StatusForbidden, "FORBIDDEN"},
		{"superuser", &auth.Principal{UserID: uuid.New(), IsSuperuser: true}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWithPrincipal(tt.principal, middleware.RequireSuperuser()(okHandler()))

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, parseErrorResponse(t, w)["code"])
			}
		})
	}
}

func TestRequireSuperuser_AccountOwnerIsForbidden(t *testing.T) {
	owner := &auth.Principal{UserID: uuid.New(), Name: "alice"}

	w := serveWithPrincipal(owner, middleware.RequireSuperuser()(okHandler()))

	require.Equal(t, http.StatusForbidden, w.Code)
	apiErr := parseErrorResponse(t, w)
	assert.Equal(t, "ForbiddenError", apiErr["type"])
	assert.Equal(t, owner.UserID.String(), apiErr["details"].(map[string]interface{})["userId"])
}

// --- Metrics ---

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveRequest(method, route string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{method, route, status})
}

func TestMetrics_RecordsRoutePatternAndStatus(t *testing.T) {
	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(middleware.Metrics(obs))
	r.Get("/accounts/{slug}/licenses", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/accounts/acme/licenses", "/health", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, obs.obs, 3)
	assert.Equal(t, observation{http.MethodGet, "/accounts/{slug}/licenses", http.StatusForbidden}, obs.obs[0])
	assert.Equal(t, observation{http.MethodGet, "/health", http.StatusOK}, obs.obs[1])
	assert.Equal(t, http.StatusNotFound, obs.obs[2].status)
}

// --- Logger ---

func TestLogger_PassesThrough(t *testing.T) {
	w := httptest.NewRecorder()

	middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}
