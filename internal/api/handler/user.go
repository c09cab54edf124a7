package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/api/validation"
	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/auth"
)

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	ApiKeyPrefix string  `json:"apiKeyPrefix"`
	IsSuperuser  bool    `json:"isSuperuser"`
	AccountCount int     `json:"accountCount"`
	CreatedAt    string  `json:"createdAt"`
	RevokedAt    *string `json:"revokedAt,omitempty"`
}

type userWithKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	ApiKey    string `json:"apiKey"`
	CreatedAt string `json:"createdAt"`
}

// UserDirectory registers and revokes API key holders.
type UserDirectory interface {
	Register(ctx context.Context, name, email string) (*auth.User, string, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

// UserHandler handles user management endpoints. All routes are superuser only.
type UserHandler struct {
	directory UserDirectory
	userRepo  auth.UserRepository
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(directory UserDirectory, userRepo auth.UserRepository) *UserHandler {
	return &UserHandler{
		directory: directory,
		userRepo:  userRepo,
	}
}

// Create handles POST /users. The raw API key is returned only in this response.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.InvalidJSON(w, requestID)
		return
	}

	fieldErrors := validation.ValidateCreateUserRequest(validation.CreateUserRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	u, rawKey, err := h.directory.Register(r.Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			response.Error(w, apperr.Conflict("A user with this email already exists",
				apperr.Details{"email": auth.NormalizeEmail(req.Email)}), requestID)
			return
		}
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, userWithKeyResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		ApiKey:    rawKey,
		CreatedAt: u.CreatedAt.UTC().Format(timeFormat),
	}, requestID)
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	users, err := h.userRepo.List(r.Context())
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]userResponse, 0, len(users))
	for i := range users {
		u := &users[i]
		resp := userResponse{
			ID:           u.ID.String(),
			Name:         u.Name,
			Email:        u.Email,
			ApiKeyPrefix: u.ApiKeyPrefix,
			IsSuperuser:  u.IsSuperuser,
			AccountCount: u.AccountCount,
			CreatedAt:    u.CreatedAt.UTC().Format(timeFormat),
		}
		if u.RevokedAt != nil {
			revoked := u.RevokedAt.UTC().Format(timeFormat)
			resp.RevokedAt = &revoked
		}
		items = append(items, resp)
	}

	response.List(w, items, requestID)
}

// Delete handles DELETE /users/{id} (soft-revoke).
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.directory.Revoke(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			response.Error(w, apperr.NotFound("User not found", apperr.Details{"id": id.String()}), requestID)
		case errors.Is(err, auth.ErrSuperuserProtected):
			response.Error(w, apperr.Forbidden("Cannot revoke the superuser", nil), requestID)
		default:
			response.Error(w, err, requestID)
		}
		return
	}

	response.NoContent(w)
}
