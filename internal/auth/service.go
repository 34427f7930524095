package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails signature, algorithm
// or expiry checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carried by a session token.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and parses HS256 session tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a token service signing with secret.
func NewService(secret string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL reports how long issued tokens stay valid.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for the account.
func (s *Service) Issue(accountID, email string) (string, error) {
	now := s.now()
	claims := Claims{
		ID:    accountID,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its claims.
func (s *Service) Parse(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
