package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-signup-nosql/internal/domain"
	pkgtoken "github.com/go-signup-nosql/internal/pkg/token"
)

const keyPrefix = "email_verified:"

type credentialStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Manager holds the short-lived proof that an email passed code
// verification. Registration requires it to be live and consumes it.
type Manager struct {
	store    credentialStore
	ttl      time.Duration
	now      func() time.Time
	newToken func() (string, error)
}

func NewManager(store credentialStore) *Manager {
	return &Manager{
		store:    store,
		ttl:      domain.VerificationCredentialTTL,
		now:      time.Now,
		newToken: pkgtoken.NewVerificationToken,
	}
}

// Issue replaces any live credential for email.
func (m *Manager) Issue(ctx context.Context, email string) (domain.VerificationCredential, error) {
	tok, err := m.newToken()
	if err != nil {
		return domain.VerificationCredential{}, err
	}
	if err := m.store.Set(ctx, keyPrefix+email, tok, m.ttl); err != nil {
		return domain.VerificationCredential{}, fmt.Errorf("store verification credential: %w", err)
	}
	return domain.VerificationCredential{
		Email:     email,
		Token:     tok,
		ExpiresAt: m.now().UTC().Add(m.ttl),
	}, nil
}

// IsLive reports whether email holds an unexpired credential. The token value
// itself is not compared.
func (m *Manager) IsLive(ctx context.Context, email string) (bool, error) {
	ok, err := m.store.Exists(ctx, keyPrefix+email)
	if err != nil {
		return false, fmt.Errorf("check verification credential: %w", err)
	}
	return ok, nil
}

func (m *Manager) Consume(ctx context.Context, email string) error {
	if err := m.store.Delete(ctx, keyPrefix+email); err != nil {
		return fmt.Errorf("consume verification credential: %w", err)
	}
	return nil
}
