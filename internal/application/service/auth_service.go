package service

import (
	"context"
	"errors"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// AuthService wraps the identity backend for the HTTP layer
type AuthService interface {
	SignUp(ctx context.Context, in port.SignUpInput) (*entity.User, error)
	SignIn(ctx context.Context, email, password string) (*port.AuthSession, error)
	SignOut(ctx context.Context, token string) error
	// CurrentUser returns nil when the token does not resolve to a user
	CurrentUser(ctx context.Context, token string) *entity.User
	AcceptInvite(ctx context.Context, in port.AcceptInviteInput) (*entity.User, error)
	Subscribe(listener func(ctx context.Context, change port.AuthChange)) (unsubscribe func())
}

type authServiceImpl struct {
	provider port.AuthProvider
	logger   Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(provider port.AuthProvider, logger Logger) AuthService {
	return &authServiceImpl{provider: provider, logger: logger}
}

func (s *authServiceImpl) SignUp(ctx context.Context, in port.SignUpInput) (*entity.User, error) {
	user, err := s.provider.SignUp(ctx, in)
	if err != nil {
		s.logger.Error("Sign up failed", "error", err)
		return nil, err
	}
	return user, nil
}

func (s *authServiceImpl) SignIn(ctx context.Context, email, password string) (*port.AuthSession, error) {
	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.logger.Error("Sign in failed", "error", err)
		return nil, err
	}
	s.logger.Info("User signed in", "user_id", session.User.ID)
	return session, nil
}

func (s *authServiceImpl) SignOut(ctx context.Context, token string) error {
	if err := s.provider.SignOut(ctx, token); err != nil {
		s.logger.Error("Sign out failed", "error", err)
		return err
	}
	return nil
}

// CurrentUser returns nil when the token does not resolve to a user.
// Backend failures are logged, not returned.
func (s *authServiceImpl) CurrentUser(ctx context.Context, token string) *entity.User {
	user, err := s.provider.CurrentUser(ctx, token)
	if err != nil {
		if !errors.Is(err, apperr.ErrUnauthenticated) {
			s.logger.Error("Failed to resolve current user", "error", err)
		}
		return nil
	}
	return user
}

func (s *authServiceImpl) AcceptInvite(ctx context.Context, in port.AcceptInviteInput) (*entity.User, error) {
	if in.Token == "" {
		return nil, apperr.Validation("invite token is required")
	}
	user, err := s.provider.AcceptInvite(ctx, in)
	if err != nil {
		s.logger.Error("Accept invite failed", "error", err)
		return nil, err
	}
	s.logger.Info("Invite accepted", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *authServiceImpl) Subscribe(listener func(ctx context.Context, change port.AuthChange)) func() {
	return s.provider.Subscribe(listener)
}
