package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medflow/medstock/pkg/config"
	apperrors "github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// CredentialStore holds the single admin password hash
type CredentialStore interface {
	GetPasswordHash(ctx context.Context) (string, error)
	SetPasswordHash(ctx context.Context, hash string) error
}

// AuthService handles authentication logic
type AuthService struct {
	credentials CredentialStore
	sessions    *SessionManager
	bcryptCost  int
	logger      *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(credentials CredentialStore, sessions *SessionManager, cfg *config.AuthConfig, log *logger.Logger) *AuthService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &AuthService{
		credentials: credentials,
		sessions:    sessions,
		bcryptCost:  cost,
		logger:      log.WithComponent("auth"),
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResult carries the new session's cookie value
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// ChangePasswordRequest represents a change-password request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,max=72"`
}

// Login checks the password and, on success, replaces any prior session with a new one
func (s *AuthService) Login(ctx context.Context, password, priorToken string) (*LoginResult, error) {
	if err := s.checkPassword(ctx, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Info().Msg("login rejected")
			return nil, apperrors.InvalidCredentials()
		}
		return nil, err
	}

	if err := s.sessions.Destroy(ctx, priorToken); err != nil {
		s.logger.Warn().Err(err).Msg("failed to destroy prior session")
	}

	issued, err := s.sessions.Issue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info().Msg("login succeeded")
	return &LoginResult{Token: issued.Token, ExpiresAt: issued.ExpiresAt}, nil
}

// Logout destroys the session behind the token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// ChangePassword replaces the admin password after verifying the current one.
// Existing sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	if err := s.checkPassword(ctx, req.CurrentPassword); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return apperrors.BadRequest("Incorrect current password.")
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.credentials.SetPasswordHash(ctx, string(hash)); err != nil {
		return err
	}

	s.logger.Info().Msg("admin password changed")
	return nil
}

// checkPassword returns bcrypt.ErrMismatchedHashAndPassword on a wrong password
func (s *AuthService) checkPassword(ctx context.Context, password string) error {
	hash, err := s.credentials.GetPasswordHash(ctx)
	if err != nil {
		return err
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	return err
}
