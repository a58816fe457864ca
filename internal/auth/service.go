package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sharedauth "pdfchat-backend/internal/shared/auth"
	"pdfchat-backend/internal/users"
)

// Token is a signed access token handed to clients.
type Token struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// RegisterInput carries the fields accepted at registration. RePassword is
// optional; when set it must match Password.
type RegisterInput struct {
	Email      string
	FirstName  string
	LastName   string
	Password   string
	RePassword string
}

// Service verifies credentials and issues bearer tokens whose subject is the
// user's email.
type Service struct {
	Users  *users.Service
	Tokens *sharedauth.TokenManager
}

func NewService(usersSvc *users.Service, tokens *sharedauth.TokenManager) *Service {
	return &Service{Users: usersSvc, Tokens: tokens}
}

// Authenticate returns the user owning email when password matches. A missing
// user and a wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrInvalidCredentials
		}
		return users.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !sharedauth.CheckPassword(user.PasswordHash, password) {
		return users.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs a token for user. A non-positive ttl uses the configured
// default.
func (s *Service) IssueToken(user users.User, ttl time.Duration) (Token, error) {
	signed, expiresAt, err := s.Tokens.Sign(user.Email, ttl)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expiresAt}, nil
}

// ResolveToken verifies token and loads the user named by its subject.
func (s *Service) ResolveToken(ctx context.Context, token string) (users.User, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return users.User{}, ErrInvalidToken
	}
	user, err := s.Users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrInvalidToken
		}
		return users.User{}, fmt.Errorf("resolve token subject: %w", err)
	}
	return user, nil
}

// Register creates a password account and returns a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Token, error) {
	email := users.NormalizeEmail(in.Email)
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if email == "" || !strings.Contains(email, "@") {
		return Token{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if first == "" || last == "" {
		return Token{}, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if in.Password == "" {
		return Token{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if in.RePassword != "" && in.RePassword != in.Password {
		return Token{}, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}

	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return Token{}, ErrConflict
	} else if !errors.Is(err, users.ErrNotFound) {
		return Token{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := sharedauth.HashPassword(in.Password)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	user, err := s.Users.Create(ctx, email, first, last, hash)
	if err != nil {
		if errors.Is(err, users.ErrConflict) {
			return Token{}, ErrConflict
		}
		return Token{}, fmt.Errorf("create user: %w", err)
	}
	return s.IssueToken(user, 0)
}

// FindOrCreate returns the user registered under email, creating a
// passwordless account when none exists. Used by external sign-in.
func (s *Service) FindOrCreate(ctx context.Context, email, firstName, lastName string) (users.User, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return users.User{}, fmt.Errorf("lookup user: %w", err)
	}
	user, err = s.Users.Create(ctx, email, firstName, lastName, "")
	if errors.Is(err, users.ErrConflict) {
		// Lost a race with a concurrent sign-in for the same email.
		return s.Users.GetByEmail(ctx, email)
	}
	return user, err
}
