package middleware

import (
	"log/slog"
	"net/http"

	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/auth"
)

// RequireSuperuser guards the platform administration routes (user keys and
// the dashboard cache). Account routes are authorized per permission by the
// guard package instead, so an account owner gets no access here.
func RequireSuperuser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if err := authorizeSuperuser(principal); err != nil {
				requestID := GetRequestID(r.Context())
				if principal != nil {
					slog.Warn("superuser route denied",
						"userId", principal.UserID,
						"method", r.Method,
						"path", r.URL.Path,
						"requestId", requestID,
					)
				}
				response.Error(w, err, requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func authorizeSuperuser(p *auth.Principal) error {
	switch {
	case p == nil:
		return errMissingKey
	case !p.IsSuperuser:
		return apperr.Forbidden("Superuser access required", apperr.Details{"userId": p.UserID.String()})
	}
	return nil
}
