package service

import (
	"context"
	"errors"
	"strings"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// CredentialRepository defines the persistence operations
// required by the authentication service.
type CredentialRepository interface {
	// GetUserByEmail returns the user registered with email, or
	// apperr.ErrRecordNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer signs a session token for an identity.
type TokenIssuer interface {
	Issue(id models.Identity) (string, error)
}

// AuthService implements login by delegating lookups to a
// CredentialRepository and token signing to a TokenIssuer.
type AuthService struct {
	repo   CredentialRepository
	issuer TokenIssuer
}

// NewAuthService constructs a new AuthService.
func NewAuthService(repo CredentialRepository, issuer TokenIssuer) *AuthService {
	return &AuthService{repo: repo, issuer: issuer}
}

// Login verifies the credentials and returns a signed token together with
// the authenticated user. Unknown email and wrong password are reported
// identically.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (string, *models.User, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return "", nil, apperr.Validation(`"email" and "password" are required`)
	}
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return "", nil, apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return "", nil, apperr.Internal("failed to load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)) != nil {
		return "", nil, apperr.Unauthenticated("invalid email or password")
	}
	token, err := s.issuer.Issue(u.Identity())
	if err != nil {
		return "", nil, apperr.Internal("failed to issue token", err)
	}
	return token, u, nil
}
