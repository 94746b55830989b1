package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-signup-nosql/internal/domain"
	"github.com/go-signup-nosql/internal/observability/metrics"
	"go.uber.org/zap"
)

const keyPrefix = "otp:"

const (
	MessageVerified = "OTP verified successfully"
	MessageMismatch = "Invalid OTP"
	MessageMissing  = "OTP expired or not found"
)

// codeFloor and codeSpan give a uniform draw over 100000..999999.
var (
	codeFloor = big.NewInt(100000)
	codeSpan  = big.NewInt(900000)
)

type codeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// VerifyResult is the outcome of a code check. An invalid code is not an
// error; Message says why.
type VerifyResult struct {
	Valid   bool
	Message string
}

type Manager struct {
	store codeStore
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

func NewManager(store codeStore, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store: store,
		ttl:   domain.OneTimeCodeTTL,
		now:   time.Now,
		log:   log.Named("otp"),
	}
}

// Issue draws a fresh code for email and stores it, replacing any live one.
func (m *Manager) Issue(ctx context.Context, email string) (domain.OneTimeCode, error) {
	code, err := generate()
	if err != nil {
		metrics.OneTimeCodesTotal.WithLabelValues("issue", "error").Inc()
		return domain.OneTimeCode{}, err
	}
	if err := m.store.Set(ctx, keyPrefix+email, code, m.ttl); err != nil {
		metrics.OneTimeCodesTotal.WithLabelValues("issue", "error").Inc()
		m.log.Error("could not store code", zap.String("email", email), zap.Error(err))
		return domain.OneTimeCode{}, fmt.Errorf("store one-time code: %w", err)
	}
	metrics.OneTimeCodesTotal.WithLabelValues("issue", "ok").Inc()
	return domain.OneTimeCode{Email: email, Code: code, IssuedAt: m.now().UTC(), TTL: m.ttl}, nil
}

// Verify consumes the live code for email when candidate matches it. The
// comparison and deletion run as one cache operation, so two concurrent
// callers presenting the right code cannot both succeed.
func (m *Manager) Verify(ctx context.Context, email, candidate string) (VerifyResult, error) {
	ok, err := m.store.CompareAndDelete(ctx, keyPrefix+email, candidate)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		metrics.OneTimeCodesTotal.WithLabelValues("verify", "missing").Inc()
		return VerifyResult{Message: MessageMissing}, nil
	case err != nil:
		metrics.OneTimeCodesTotal.WithLabelValues("verify", "error").Inc()
		m.log.Error("could not check code", zap.String("email", email), zap.Error(err))
		return VerifyResult{}, fmt.Errorf("verify one-time code: %w", err)
	case !ok:
		metrics.OneTimeCodesTotal.WithLabelValues("verify", "mismatch").Inc()
		return VerifyResult{Message: MessageMismatch}, nil
	}
	metrics.OneTimeCodesTotal.WithLabelValues("verify", "ok").Inc()
	return VerifyResult{Valid: true, Message: MessageVerified}, nil
}

// Revoke drops the live code for email, if any.
func (m *Manager) Revoke(ctx context.Context, email string) error {
	if err := m.store.Delete(ctx, keyPrefix+email); err != nil {
		return fmt.Errorf("revoke one-time code: %w", err)
	}
	metrics.OneTimeCodesTotal.WithLabelValues("revoke", "ok").Inc()
	return nil
}

func generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}
	return n.Add(n, codeFloor).String(), nil
}
