package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and validates the HS256 session tokens given to
// browsers. Logged-out tokens stay revoked until they would have expired.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

// NewTokenManager creates a token manager. secret must be at least 32
// characters; config validation enforces that.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Claims is what a valid token carries.
type Claims struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Issue signs a token for user.
func (m *TokenManager) Issue(user User) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: user.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate parses a token and checks signature, issuer, expiry and
// revocation.
func (m *TokenManager) Validate(token string) (Claims, error) {
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	var sc sessionClaims
	_, err := jwt.ParseWithClaims(token, &sc, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if sc.Subject == "" || sc.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing subject or id", ErrInvalidToken)
	}

	m.mu.Lock()
	_, gone := m.revoked[sc.ID]
	m.mu.Unlock()
	if gone {
		return Claims{}, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	return Claims{
		UserID:    sc.Subject,
		Email:     sc.Email,
		TokenID:   sc.ID,
		ExpiresAt: sc.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates a still-valid token. Expired revocations are purged on
// the way.
func (m *TokenManager) Revoke(token string) error {
	c, err := m.Validate(token)
	if err != nil {
		return err
	}

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
		}
	}
	m.revoked[c.TokenID] = c.ExpiresAt
	return nil
}
