// Package token issues and verifies the signed bearer tokens that carry
// identity and permission claims between requests.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers malformed, tampered, and expired tokens alike so the
// caller cannot distinguish why verification failed.
var ErrInvalidToken = errors.New("token: invalid token")

// ErrMissingSecret indicates the signing secret was not configured. This is a
// startup failure, not a per-request condition.
var ErrMissingSecret = errors.New("token: signing secret is not configured")

// Claims carries the facts minted into a token at issue time. Permissions are
// a snapshot; live account state is re-checked by callers that need it.
type Claims struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens with a fixed validity window.
type Service struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// Config collects token issuance parameters.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// NewService constructs a Service. An empty secret is rejected here so the
// process fails at startup rather than on the first login.
func NewService(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Service{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// WithClock overrides the time source. Tests only.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// TTL exposes the configured validity window.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue mints a signed token for subject carrying the resolved roles and
// permissions.
func (s *Service) Issue(subject string, roles, permissions []string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks signature integrity and expiry, returning the decoded claims
// only when both hold.
func (s *Service) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsExpired reports whether the token's expiry has elapsed. Tokens that fail
// to decode count as expired.
func (s *Service) IsExpired(token string) bool {
	_, err := s.Verify(token)
	return err != nil
}

// Subject extracts the subject claim from a valid token.
func (s *Service) Subject(token string) (string, bool) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}
