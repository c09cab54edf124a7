package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/auth"
)

var errMissingKey = apperr.Unauthorized("API key is required", nil)

// Authenticator resolves a raw API key to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*auth.Principal, error)
}

// Auth is middleware that extracts the X-API-Key header and resolves it
// to a Principal via the authenticator. Missing or invalid keys return 401.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				response.Error(w, errMissingKey, requestID)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), rawKey)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidKey) {
					response.Error(w, apperr.Unauthorized("Invalid or revoked API key", nil), requestID)
					return
				}
				slog.Error("authentication failed", "error", err, "requestId", requestID)
				response.Internal(w, "Authentication failed", requestID)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// GetPrincipal retrieves the authenticated Principal from the request context.
func GetPrincipal(ctx context.Context) *auth.Principal {
	return auth.PrincipalFromContext(ctx)
}
