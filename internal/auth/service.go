package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidKey is returned when a key is malformed, unknown or revoked.
	ErrInvalidKey = errors.New("invalid or revoked API key")

	// ErrSuperuserProtected is returned when revoking the bootstrap superuser.
	ErrSuperuserProtected = errors.New("the superuser cannot be revoked")
)

// Keys look like "flx_<43 base64url chars>". The first keyLookupLen
// characters are stored in clear and indexed, the rest only as a bcrypt hash.
const (
	keyScheme       = "flx_"
	keyEntropyBytes = 32
	keyLookupLen    = 8

	superuserName  = "superuser"
	superuserEmail = "superuser@fluxera.local"
)

// Service issues API keys and resolves them to principals.
type Service struct {
	users      UserRepository
	bcryptCost int
}

// NewService creates a new auth Service.
func NewService(users UserRepository, bcryptCost int) *Service {
	return &Service{
		users:      users,
		bcryptCost: bcryptCost,
	}
}

// GenerateKey returns a fresh raw key with its lookup prefix and bcrypt hash.
func (s *Service) GenerateKey() (rawKey, prefix, hash string, err error) {
	b := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawKey = keyScheme + base64.RawURLEncoding.EncodeToString(b)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}

	return rawKey, rawKey[:keyLookupLen], string(hashBytes), nil
}

// Register creates a regular user and returns it along with its raw key.
// The key is not stored and cannot be recovered later.
func (s *Service) Register(ctx context.Context, name, email string) (*User, string, error) {
	u := &User{
		Name:  strings.TrimSpace(name),
		Email: NormalizeEmail(email),
	}

	rawKey, err := s.issue(ctx, u)
	if err != nil {
		return nil, "", err
	}
	return u, rawKey, nil
}

// Authenticate resolves a raw API key to the Principal that owns it.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*Principal, error) {
	prefix, ok := lookupPrefix(rawKey)
	if !ok {
		return nil, ErrInvalidKey
	}

	candidates, err := s.users.FindActiveByKeyPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding users by key prefix: %w", err)
	}

	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].ApiKeyHash), []byte(rawKey)) == nil {
			return candidates[i].Principal(), nil
		}
	}

	return nil, ErrInvalidKey
}

// Revoke disables a user's key. Revoking an already revoked user is a no-op.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.IsSuperuser {
		return ErrSuperuserProtected
	}

	if err := s.users.Revoke(ctx, id); err != nil && !errors.Is(err, ErrUserRevoked) {
		return err
	}
	return nil
}

// BootstrapSuperuser creates the superuser when no user exists yet and returns
// its raw key. On later starts it returns an empty string.
func (s *Service) BootstrapSuperuser(ctx context.Context) (string, error) {
	exists, err := s.users.Exists(ctx)
	if err != nil {
		return "", fmt.Errorf("checking for existing users: %w", err)
	}
	if exists {
		return "", nil
	}

	u := &User{
		Name:        superuserName,
		Email:       superuserEmail,
		IsSuperuser: true,
	}
	rawKey, err := s.issue(ctx, u)
	if err != nil {
		return "", fmt.Errorf("bootstrapping superuser: %w", err)
	}

	slog.Info("Superuser API key created", "userId", u.ID, "key", rawKey)

	return rawKey, nil
}

// issue attaches a new key to u and persists it.
func (s *Service) issue(ctx context.Context, u *User) (string, error) {
	rawKey, prefix, hash, err := s.GenerateKey()
	if err != nil {
		return "", err
	}
	u.ApiKeyPrefix = prefix
	u.ApiKeyHash = hash

	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	return rawKey, nil
}

// NormalizeEmail lowercases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lookupPrefix returns the indexed part of a key. Keys of any other scheme
// are rejected without a database round trip.
func lookupPrefix(rawKey string) (string, bool) {
	if !strings.HasPrefix(rawKey, keyScheme) || len(rawKey) < keyLookupLen {
		return "", false
	}
	return rawKey[:keyLookupLen], true
}
