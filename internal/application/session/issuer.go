package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-signup-nosql/internal/domain"
	jwtinfra "github.com/go-signup-nosql/internal/infrastructure/jwt"
	"github.com/go-signup-nosql/internal/observability/metrics"
	"go.uber.org/zap"
)

const keyPrefix = "session:"

type signer interface {
	Sign(userID, email, username string) (string, time.Time, error)
	Verify(token string) (*jwtinfra.Claims, error)
	Expiry() time.Duration
}

type mirrorStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Issuer signs session credentials and mirrors the latest one per user in the
// cache, so a session can be revoked before the credential itself expires.
type Issuer struct {
	signer signer
	mirror mirrorStore
	log    *zap.Logger
}

func NewIssuer(signer signer, mirror mirrorStore, log *zap.Logger) *Issuer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Issuer{signer: signer, mirror: mirror, log: log.Named("session")}
}

// Issue signs a credential for u. A failed mirror write is logged and the
// credential is still returned; such a session cannot pass Validate.
func (i *Issuer) Issue(ctx context.Context, u *domain.User) (*domain.Session, error) {
	tok, exp, err := i.signer.Sign(u.UserID, u.Email, u.Username)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	mirrored := true
	if err := i.mirror.Set(ctx, keyPrefix+u.UserID, tok, i.signer.Expiry()); err != nil {
		mirrored = false
		i.log.Warn("session not recorded", zap.String("user_id", u.UserID), zap.Error(err))
	}
	metrics.SessionsIssuedTotal.WithLabelValues(strconv.FormatBool(mirrored)).Inc()
	return &domain.Session{UserID: u.UserID, Token: tok, ExpiresAt: exp}, nil
}

// Validate accepts tok only if it verifies and is still the user's recorded
// session.
func (i *Issuer) Validate(ctx context.Context, tok string) (*jwtinfra.Claims, error) {
	claims, err := i.signer.Verify(tok)
	if err != nil {
		return nil, domain.Unauthorized("Invalid or expired token")
	}
	current, err := i.mirror.Get(ctx, keyPrefix+claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthorized("Session expired or revoked")
	}
	if err != nil {
		i.log.Error("session lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, domain.Transient("Could not validate session", err)
	}
	if current != tok {
		return nil, domain.Unauthorized("Session expired or revoked")
	}
	return claims, nil
}

func (i *Issuer) Revoke(ctx context.Context, userID string) error {
	if err := i.mirror.Delete(ctx, keyPrefix+userID); err != nil {
		return domain.Transient("Could not revoke session", err)
	}
	return nil
}
