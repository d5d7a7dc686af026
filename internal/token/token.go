// Package token issues and verifies the bearer tokens used for auth.
// Tokens are HS256-signed with a process-lifetime symmetric secret and
// carry the username as both a custom claim and the registered subject.
// There is no revocation: a token is good until it expires.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSubject = errors.New("token has no username claim")

// Config holds the signing secret and how long issued tokens live.
type Config struct {
	Secret []byte
	Expiry time.Duration
}

// Claims is the token payload. Username duplicates the registered
// subject; both are set to the same value on issue.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service issues, verifies, and refreshes tokens.
type Service struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Service {
	return &Service{cfg: cfg, now: time.Now}
}

// NewAt is like New but with an injectable clock, for tests.
func NewAt(cfg Config, now func() time.Time) *Service {
	return &Service{cfg: cfg, now: now}
}

// Issue signs a token for username expiring cfg.Expiry from now.
func (s *Service) Issue(username string) (string, error) {
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiry)),
		},
	})
	return t.SignedString(s.cfg.Secret)
}

// Verify checks signature, algorithm, and expiry, and returns the
// username the token was issued for. Every failure mode comes back as
// an ordinary error; callers treat any error as unauthenticated.
func (s *Service) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if !t.Valid {
		return "", jwt.ErrTokenUnverifiable
	}
	if claims.Username == "" {
		return "", ErrNoSubject
	}
	return claims.Username, nil
}

// Refresh re-validates tokenStr and, on success, issues a fresh token
// for the same subject. An invalid or expired input returns the
// underlying verification error, never a new token.
func (s *Service) Refresh(tokenStr string) (string, error) {
	username, err := s.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return s.Issue(username)
}
