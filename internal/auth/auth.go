// Package auth registers and logs in users and issues HS256 bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"stocktracker/internal/user"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

var (
	ErrMissingFields          = errors.New("all fields are required")
	ErrEmailAlreadyRegistered = errors.New("user already exists")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUnauthorized           = errors.New("not authorized")
)

// Service handles credentials. Secret must not be empty.
type Service struct {
	Users  user.Store
	Secret []byte
	// TokenTTL defaults to DefaultTokenTTL.
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Now is the clock used for iat/exp and validation. Defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, user.User, error) {
	name = strings.TrimSpace(name)
	email = user.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return "", user.User{}, ErrMissingFields
	}

	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return "", user.User{}, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, user.ErrNotFound) {
		return "", user.User{}, fmt.Errorf("lookup email: %w", err)
	}

	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.Users.Create(ctx, user.User{Name: name, Email: email, PasswordHash: string(hash)})
	if errors.Is(err, user.ErrEmailTaken) {
		// lost a race with a concurrent register
		return "", user.User{}, ErrEmailAlreadyRegistered
	}
	if err != nil {
		return "", user.User{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issue(u.ID)
	if err != nil {
		return "", user.User{}, err
	}
	return token, u, nil
}

// Login checks the password and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (string, user.User, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", user.User{}, ErrMissingFields
	}

	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return "", user.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", user.User{}, fmt.Errorf("lookup email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", user.User{}, ErrInvalidCredentials
	}

	token, err := s.issue(u.ID)
	if err != nil {
		return "", user.User{}, err
	}
	return token, u, nil
}

// Authenticate validates token and returns the user id in its subject.
func (s *Service) Authenticate(_ context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}
	return claims.Subject, nil
}

func (s *Service) issue(userID string) (string, error) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
