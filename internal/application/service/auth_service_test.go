package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/event"
)

func TestAuthService_CurrentUser(t *testing.T) {
	tests := []struct {
		name       string
		provider   func(ctx context.Context, token string) (*entity.User, error)
		wantUser   bool
		wantLogged bool
	}{
		{
			name: "resolved",
			provider: func(ctx context.Context, token string) (*entity.User, error) {
				return &entity.User{ID: "u1"}, nil
			},
			wantUser: true,
		},
		{
			name: "no session is silent",
			provider: func(ctx context.Context, token string) (*entity.User, error) {
				return nil, apperr.ErrUnauthenticated
			},
		},
		{
			name: "backend error is logged",
			provider: func(ctx context.Context, token string) (*entity.User, error) {
				return nil, errors.New("connection reset")
			},
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &mockLogger{}
			svc := NewAuthService(&mockAuthProvider{currentUserFunc: tt.provider}, logger)

			user := svc.CurrentUser(context.Background(), "tok")
			assert.Equal(t, tt.wantUser, user != nil)
			assert.Equal(t, tt.wantLogged, len(logger.errors) > 0)
		})
	}
}

func TestAuthService_SignIn(t *testing.T) {
	provider := &mockAuthProvider{}
	svc := NewAuthService(provider, &mockLogger{})

	session, err := svc.SignIn(context.Background(), "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Token)

	provider.signInFunc = func(ctx context.Context, email, password string) (*port.AuthSession, error) {
		return nil, apperr.ErrUnauthenticated
	}
	_, err = svc.SignIn(context.Background(), "a@example.com", "bad")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthService_AcceptInvite(t *testing.T) {
	svc := NewAuthService(&mockAuthProvider{}, &mockLogger{})

	_, err := svc.AcceptInvite(context.Background(), port.AcceptInviteInput{Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	user, err := svc.AcceptInvite(context.Background(), port.AcceptInviteInput{Token: "t", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleManager, user.Role)
}

func TestAuthService_Subscribe(t *testing.T) {
	provider := &mockAuthProvider{}
	svc := NewAuthService(provider, &mockLogger{})

	var got []event.Type
	unsubscribe := svc.Subscribe(func(ctx context.Context, change port.AuthChange) {
		got = append(got, change.Event)
	})
	require.Len(t, provider.listeners, 1)
	provider.listeners[0](context.Background(), port.AuthChange{Event: event.TypeSignedIn})
	assert.Equal(t, []event.Type{event.TypeSignedIn}, got)

	unsubscribe()
	assert.Empty(t, provider.listeners)
}
