package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fluxera/fluxera/internal/account"
	"github.com/fluxera/fluxera/internal/api/handler"
	"github.com/fluxera/fluxera/internal/auth"
	"github.com/fluxera/fluxera/internal/permission"
)

// --- Mock Account Repository ---

type mockAccountRepo struct {
	createFn       func(ctx context.Context, a *account.Account) error
	getBySlugFn    func(ctx context.Context, slug string) (*account.Account, error)
	listForUserFn  func(ctx context.Context, userID uuid.UUID) ([]account.Account, error)
	addMemberFn    func(ctx context.Context, m *account.Membership) error
	removeMemberFn func(ctx context.Context, accountID, userID uuid.UUID) error
	listMembersFn  func(ctx context.Context, accountID uuid.UUID) ([]account.Membership, error)
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	deleteCalls    int
}

func (m *mockAccountRepo) Create(ctx context.Context, a *account.Account) error {
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, _ uuid.UUID) (*account.Account, error) {
	return nil, account.ErrAccountNotFound
}

func (m *mockAccountRepo) GetBySlug(ctx context.Context, slug string) (*account.Account, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, account.ErrAccountNotFound
}

func (m *mockAccountRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]account.Account, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return []account.Account{}, nil
}

func (m *mockAccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAccountRepo) AddMember(ctx context.Context, mem *account.Membership) error {
	if m.addMemberFn != nil {
		return m.addMemberFn(ctx, mem)
	}
	mem.CreatedAt = time.Now().UTC()
	return nil
}

func (m *mockAccountRepo) RemoveMember(ctx context.Context, accountID, userID uuid.UUID) error {
	if m.removeMemberFn != nil {
		return m.removeMemberFn(ctx, accountID, userID)
	}
	return nil
}

func (m *mockAccountRepo) ListMembers(ctx context.Context, accountID uuid.UUID) ([]account.Membership, error) {
	if m.listMembersFn != nil {
		return m.listMembersFn(ctx, accountID)
	}
	return []account.Membership{}, nil
}

// --- Fake platform ---

// fakePlatform reads the principal from the request context like the real
// client and answers membership and permission checks from its fields.
type fakePlatform struct {
	mu        sync.Mutex
	member    bool
	granted   map[permission.Permission]bool
	memberErr error
	permErr   error
	failOn    map[permission.Permission]error
	permCalls []permission.Permission
}

func (f *fakePlatform) CurrentPrincipal(ctx context.Context) (*auth.Principal, error) {
	if p := auth.PrincipalFromContext(ctx); p != nil {
		return p, nil
	}
	return nil, auth.ErrNoPrincipal
}

func (f *fakePlatform) IsMember(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return f.member, f.memberErr
}

func (f *fakePlatform) CheckPermission(_ context.Context, _ uuid.UUID, p permission.Permission, _ uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permCalls = append(f.permCalls, p)
	if err := f.failOn[p]; err != nil {
		return false, err
	}
	return f.granted[p], f.permErr
}

func grantAll() *fakePlatform {
	granted := make(map[permission.Permission]bool)
	for _, p := range permission.All() {
		granted[p] = true
	}
	return &fakePlatform{member: true, granted: granted}
}

func grant(perms ...permission.Permission) *fakePlatform {
	granted := make(map[permission.Permission]bool)
	for _, p := range perms {
		granted[p] = true
	}
	return &fakePlatform{member: true, granted: granted}
}

// --- Invalidation recorder ---

type recordingInvalidator struct {
	slugs  []string
	purged []string
}

func (r *recordingInvalidator) Invalidate(slug string) {
	r.slugs = append(r.slugs, slug)
}

func (r *recordingInvalidator) Purge(slug string) {
	r.purged = append(r.purged, slug)
}

// --- Helpers ---

var alice = &auth.Principal{UserID: uuid.New(), Name: "alice", Email: "alice@example.com"}

func acmeAccount() *account.Account {
	now := time.Now().UTC()
	return &account.Account{
		ID:             uuid.New(),
		Slug:           "acme",
		Name:           "Acme",
		PrimaryOwnerID: uuid.New(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func reposFor(acct *account.Account) *mockAccountRepo {
	return &mockAccountRepo{
		getBySlugFn: func(_ context.Context, slug string) (*account.Account, error) {
			if slug == acct.Slug {
				return acct, nil
			}
			return nil, account.ErrAccountNotFound
		},
	}
}

func scopeFor(accounts account.Repository, p *fakePlatform) handler.AccountScope {
	return handler.AccountScope{Accounts: accounts, Platform: p}
}

// makeChiRequest builds a request carrying chi URL params and, when given, an
// authenticated principal.
func makeChiRequest(method, path string, body []byte, principal *auth.Principal, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if principal != nil {
		ctx = auth.WithPrincipal(ctx, principal)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx), httptest.NewRecorder()
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseEnvelope(t, w)["error"].(map[string]interface{})
	require.True(t, ok, "expected an error envelope, got %s", w.Body.String())
	return errObj["code"].(string)
}
