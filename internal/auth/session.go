package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
)

const SessionCookie = "vantro_session"

// Identity is what the identity provider told us about the caller.
type Identity struct {
	Email string
	Name  string
}

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies the HS256 session token carried in the
// session cookie or an Authorization: Bearer header.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

func (s *Sessions) Sign(id Identity) (string, error) {
	if strings.TrimSpace(id.Email) == "" {
		return "", fmt.Errorf("session email: %w", domain.ErrInvalidArgument)
	}
	now := s.now()
	claims := sessionClaims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Sessions) Parse(raw string) (Identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("session: %w", domain.ErrUnauthenticated)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return Identity{}, fmt.Errorf("session email missing: %w", domain.ErrUnauthenticated)
	}
	return Identity{Email: claims.Email, Name: claims.Name}, nil
}
