package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/starford/itemdesk/internal/models"
)

// StaticToken presents the same opaque credential for every identity.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context, models.Identity) (string, error) {
	return string(t), nil
}

// refreshMargin re-issues a cached token this long before it expires.
const refreshMargin = 30 * time.Second

type issuedToken struct {
	raw       string
	expiresAt time.Time
}

// JWTSigner issues short-lived HS256 access tokens with sub set to the
// username. Tokens are cached per user and re-issued near expiry.
type JWTSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	issued map[string]issuedToken
}

// NewJWTSigner creates a signer. ttl must exceed refreshMargin.
func NewJWTSigner(secret string, ttl time.Duration) *JWTSigner {
	return &JWTSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		issued: make(map[string]issuedToken),
	}
}

// Token implements TokenSource.
func (s *JWTSigner) Token(_ context.Context, id models.Identity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if tok, ok := s.issued[id.Username]; ok && now.Before(tok.expiresAt.Add(-refreshMargin)) {
		return tok.raw, nil
	}

	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id.Username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	raw, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	s.issued[id.Username] = issuedToken{raw: raw, expiresAt: expiresAt}
	return raw, nil
}
