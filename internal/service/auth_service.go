package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sistec/enquiry-backend/internal/config"
	"github.com/sistec/enquiry-backend/internal/model"
)

// Common session errors.
var (
	ErrInvalidToken   = errors.New("invalid or expired session token")
	ErrSessionRevoked = errors.New("session has been logged out")
)

// Claims extends JWT standard claims with the session's user.
type Claims struct {
	jwt.RegisteredClaims
	UserID int        `json:"user_id"`
	Role   model.Role `json:"role"`
	Name   string     `json:"name"`
}

// AuthService issues and checks signed session tokens.
type AuthService struct {
	secret   []byte
	ttl      time.Duration
	sessions SessionStore
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, sessions SessionStore) *AuthService {
	return &AuthService{
		secret:   []byte(cfg.SessionSecret),
		ttl:      cfg.SessionTTL,
		sessions: sessions,
		now:      time.Now,
	}
}

// TTL is how long an issued session stays valid.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// IssueSession signs a token for u and registers its ID in the session store.
func (s *AuthService) IssueSession(ctx context.Context, u *model.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: u.ID,
		Role:   u.Role,
		Name:   u.Name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.sessions.Save(ctx, claims.ID, u.ID, s.ttl); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken checks signature and expiry only.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateSession checks the token and that its session has not been logged out.
func (s *AuthService) ValidateSession(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		return nil, err
	}

	owner, ok, err := s.sessions.Owner(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !ok || owner != claims.UserID {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

// Revoke ends a session.
func (s *AuthService) Revoke(ctx context.Context, claims *Claims) error {
	return s.sessions.Delete(ctx, claims.ID)
}
