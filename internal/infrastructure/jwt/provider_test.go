package jwtinfra

import (
	"testing"
	"time"

	"github.com/go-signup-nosql/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, expiry time.Duration) *Provider {
	t.Helper()
	priv, pub, err := WriteKeyPair(t.TempDir(), 2048)
	require.NoError(t, err)
	p, err := NewProvider(&config.Config{
		JWTPrivateKeyPath: priv,
		JWTPublicKeyPath:  pub,
		JWTExpiry:         expiry,
	})
	require.NoError(t, err)
	return p
}

func TestSignVerify_RoundTripsIdentity(t *testing.T) {
	p := newTestProvider(t, 7*24*time.Hour)

	tok, exp, err := p.Sign("u1", "a@b.com", "newuser1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 5*time.Second)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "newuser1", claims.Username)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestVerify_Expired(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, _, err := p.Sign("u1", "a@b.com", "newuser1")
	require.NoError(t, err)

	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_ForeignKeyRejected(t *testing.T) {
	signer := newTestProvider(t, time.Hour)
	verifier := newTestProvider(t, time.Hour)

	tok, _, err := signer.Sign("u1", "a@b.com", "newuser1")
	require.NoError(t, err)
	_, err = verifier.Verify(tok)
	assert.Error(t, err)
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: "/does/not/exist.pem"})
	assert.ErrorContains(t, err, "read private key")
}

func TestSign_TokensAreDistinct(t *testing.T) {
	p := newTestProvider(t, time.Hour)

	a, _, err := p.Sign("u1", "a@b.com", "newuser1")
	require.NoError(t, err)
	b, _, err := p.Sign("u1", "a@b.com", "newuser1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
