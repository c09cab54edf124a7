package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fluxera/fluxera/internal/account"
	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/api/response"
	"github.com/fluxera/fluxera/internal/api/validation"
	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/guard"
	"github.com/fluxera/fluxera/internal/permission"
)

type createAccountRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type addMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type accountResponse struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	IsPersonal     bool   `json:"isPersonal"`
	PrimaryOwnerID string `json:"primaryOwnerId"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type memberResponse struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

type meResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	IsSuperuser bool              `json:"isSuperuser"`
	Accounts    []accountResponse `json:"accounts"`
}

func toAccountResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:             a.ID.String(),
		Slug:           a.Slug,
		Name:           a.Name,
		IsPersonal:     a.IsPersonal,
		PrimaryOwnerID: a.PrimaryOwnerID.String(),
		CreatedAt:      a.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:      a.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toMemberResponse(m *account.Membership) memberResponse {
	return memberResponse{
		UserID:    m.UserID.String(),
		UserName:  m.UserName,
		Role:      m.Role,
		CreatedAt: m.CreatedAt.UTC().Format(timeFormat),
	}
}

// AccountHandler handles account and membership endpoints.
type AccountHandler struct {
	scope AccountScope
	cache AccountCache
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(scope AccountScope, cache AccountCache) *AccountHandler {
	return &AccountHandler{scope: scope, cache: cache}
}

// Me handles GET /me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	accounts, err := h.scope.Accounts.ListForUser(r.Context(), principal.UserID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, toAccountResponse(&accounts[i]))
	}

	response.Success(w, http.StatusOK, meResponse{
		ID:          principal.UserID.String(),
		Name:        principal.Name,
		Email:       principal.Email,
		IsSuperuser: principal.IsSuperuser,
		Accounts:    items,
	}, requestID)
}

// Create handles POST /accounts. The caller becomes the primary owner.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.InvalidJSON(w, requestID)
		return
	}

	fieldErrors := validation.ValidateCreateAccountRequest(validation.CreateAccountRequest{
		Slug: req.Slug,
		Name: req.Name,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	a := &account.Account{
		Slug:           req.Slug,
		Name:           strings.TrimSpace(req.Name),
		PrimaryOwnerID: principal.UserID,
	}

	if err := h.scope.Accounts.Create(r.Context(), a); err != nil {
		if errors.Is(err, account.ErrDuplicateSlug) {
			response.Error(w, apperr.Conflict("An account with this slug already exists", apperr.Details{"slug": req.Slug}), requestID)
			return
		}
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toAccountResponse(a), requestID)
}

// List handles GET /accounts, returning the caller's accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	principal := middleware.GetPrincipal(r.Context())

	accounts, err := h.scope.Accounts.ListForUser(r.Context(), principal.UserID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, toAccountResponse(&accounts[i]))
	}

	response.List(w, items, requestID)
}

// Members handles GET /accounts/{slug}/members. Any member may list members.
func (h *AccountHandler) Members(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	member, err := guard.VerifyMembership(r.Context(), h.scope.Platform, acct.ID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	if !member {
		response.Error(w, apperr.Unauthorized("You are not a member of this account", apperr.Details{"accountId": acct.ID.String()}), requestID)
		return
	}

	members, err := h.scope.Accounts.ListMembers(r.Context(), acct.ID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for i := range members {
		items = append(items, toMemberResponse(&members[i]))
	}

	response.List(w, items, requestID)
}

// AddMember handles POST /accounts/{slug}/members.
func (h *AccountHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.InvalidJSON(w, requestID)
		return
	}

	fieldErrors := validation.ValidateAddMemberRequest(validation.AddMemberRequest{
		UserID: req.UserID,
		Role:   req.Role,
	})
	if len(fieldErrors) > 0 {
		response.ValidationFailed(w, fieldErrors, requestID)
		return
	}

	userID, _ := uuid.Parse(req.UserID) // already validated

	m, err := guard.WithAccountPermission(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.MembersManage,
		ResourceName: "members",
	}, func(ctx context.Context) (*account.Membership, error) {
		m := &account.Membership{AccountID: acct.ID, UserID: userID, Role: req.Role}
		if err := h.scope.Accounts.AddMember(ctx, m); err != nil {
			switch {
			case errors.Is(err, account.ErrAlreadyMember):
				return nil, apperr.Conflict("User is already a member of this account", apperr.Details{"userId": req.UserID})
			case errors.Is(err, account.ErrUnknownUserOrRole):
				return nil, apperr.NotFound("User not found", apperr.Details{"userId": req.UserID})
			}
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	h.cache.Invalidate(acct.Slug)
	response.Success(w, http.StatusCreated, toMemberResponse(m), requestID)
}

// Delete handles DELETE /accounts/{slug}. Memberships, licenses, assets and
// widget layouts go with the account.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	err := guard.Run(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.SettingsManage,
		ResourceName: "this account",
	}, func(ctx context.Context) error {
		if err := h.scope.Accounts.Delete(ctx, acct.ID); err != nil {
			if errors.Is(err, account.ErrAccountNotFound) {
				return apperr.NotFound("Account not found", apperr.Details{"slug": acct.Slug})
			}
			return err
		}
		return nil
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	h.cache.Purge(acct.Slug)
	response.NoContent(w)
}

// RemoveMember handles DELETE /accounts/{slug}/members/{userId}. The primary
// owner cannot be removed.
func (h *AccountHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	userID, ok := parseUUIDParam(w, r, "userId")
	if !ok {
		return
	}

	err := guard.Run(r.Context(), h.scope.Platform, guard.Options{
		AccountID:    acct.ID,
		Permission:   permission.MembersManage,
		ResourceName: "members",
	}, func(ctx context.Context) error {
		if userID == acct.PrimaryOwnerID {
			return apperr.BusinessRule("The primary owner cannot be removed from the account", apperr.Details{"userId": userID.String()})
		}
		if err := h.scope.Accounts.RemoveMember(ctx, acct.ID, userID); err != nil {
			if errors.Is(err, account.ErrMemberNotFound) {
				return apperr.NotFound("Member not found", apperr.Details{"userId": userID.String()})
			}
			return err
		}
		return nil
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	h.cache.Invalidate(acct.Slug)
	response.NoContent(w)
}

// Permissions handles GET /accounts/{slug}/permissions. It reports which
// permissions the caller holds so clients can hide actions they cannot take.
func (h *AccountHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct, ok := h.scope.resolve(w, r)
	if !ok {
		return
	}

	member, err := guard.VerifyMembership(r.Context(), h.scope.Platform, acct.ID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	if !member {
		response.Error(w, apperr.Unauthorized("You are not a member of this account", apperr.Details{"accountId": acct.ID.String()}), requestID)
		return
	}

	// Each permission is verified on its own against the platform. Decisions
	// are never cached or derived from one another.
	all := permission.All()
	granted := make(map[string]bool, len(all))
	for _, p := range all {
		ok, err := guard.VerifyPermission(r.Context(), h.scope.Platform, acct.ID, p)
		if err != nil {
			response.Error(w, err, requestID)
			return
		}
		granted[p.String()] = ok
	}

	response.Success(w, http.StatusOK, granted, requestID)
}
