package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fluxera/fluxera/internal/account"
	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/guard"
)

const timeFormat = "2006-01-02T15:04:05Z"

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// CacheInvalidator drops an account's cached dashboard figures after a write.
type CacheInvalidator interface {
	Invalidate(accountSlug string)
}

// AccountCache also drops everything cached for an account that no longer exists.
type AccountCache interface {
	CacheInvalidator
	Purge(accountSlug string)
}

// AccountScope resolves the {slug} route parameter and carries the platform
// used to guard work on that account.
type AccountScope struct {
	Accounts account.Repository
	Platform guard.Platform
}

// resolve loads the account named by {slug}, writing a 404 when it does not exist.
func (s AccountScope) resolve(w http.ResponseWriter, r *http.Request) (*account.Account, bool) {
	requestID := middleware.GetRequestID(r.Context())
	slug := chi.URLParam(r, "slug")

	acct, err := s.Accounts.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			response.Error(w, apperr.NotFound("Account not found", apperr.Details{"slug": slug}), requestID)
			return nil, false
		}
		response.Error(w, err, requestID)
		return nil, false
	}
	return acct, true
}

// parseUUIDParam reads a UUID route parameter, writing a 400 when malformed.
func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.InvalidID(w, name, middleware.GetRequestID(r.Context()))
		return uuid.Nil, false
	}
	return id, true
}
