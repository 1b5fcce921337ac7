package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/edu_shop/pkg/hash"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
	"github.com/Skotchmaster/edu_shop/pkg/tokens"
)

type AdminSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminService is the admin authorization gate. The admin identity is
// configured at startup and is not an account in the registry.
type AdminService struct {
	email        string
	passwordHash string
	secret       []byte
	ttl          time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time

	now func() time.Time
}

func NewAdminService(email, password string, secret []byte, ttl time.Duration) (*AdminService, error) {
	if email == "" || password == "" {
		return nil, errors.New("admin email and password are required")
	}
	if len(secret) == 0 {
		return nil, errors.New("admin token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("admin token ttl must be positive")
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	return &AdminService{
		email:        email,
		passwordHash: pwHash,
		secret:       secret,
		ttl:          ttl,
		revoked:      make(map[string]time.Time),
		now:          time.Now,
	}, nil
}

func (s *AdminService) Login(ctx context.Context, email, password string) (*AdminSession, error) {
	l := logging.FromContext(ctx).With("svc", "admin.login")

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	passOK := hash.CheckPassword(s.passwordHash, password)
	if !emailOK || !passOK {
		l.Warn("admin_login_failed", "status", 401)
		return nil, ErrInvalidCredentials
	}

	token, claims, err := tokens.NewAccessToken(s.secret, tokens.RoleAdmin, s.email, s.now(), s.ttl)
	if err != nil {
		l.Error("admin_login_error", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}

	l.Info("admin_login_success", "jti", claims.ID)
	return &AdminSession{Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Authorize accepts only unexpired, unrevoked admin tokens signed by this gate.
func (s *AdminService) Authorize(_ context.Context, token string) (*tokens.AccessClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	claims, err := tokens.AccessClaimsFromToken(token, s.secret, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Role != tokens.RoleAdmin || claims.ID == "" {
		return nil, fmt.Errorf("%w: not an admin token", ErrUnauthorized)
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}

	return claims, nil
}

// Logout revokes the session behind token until the token would have expired.
func (s *AdminService) Logout(ctx context.Context, token string) error {
	claims, err := s.Authorize(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for jti, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, jti)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time

	logging.FromContext(ctx).With("svc", "admin.logout").Info("admin_logout_success", "jti", claims.ID)
	return nil
}
