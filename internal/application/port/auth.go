package port

import (
	"context"
	"time"

	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/event"
)

// SignUpInput carries a self-service registration
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AcceptInviteInput completes an invited account
type AcceptInviteInput struct {
	Token     string
	Password  string
	FirstName string
	LastName  string
}

// AuthSession is returned by a successful sign-in
type AuthSession struct {
	User      *entity.User `json:"user"`
	Token     string       `json:"access_token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AuthChange is delivered to auth subscribers
type AuthChange struct {
	Event event.Type
	User  *entity.User
}

// Inviter creates invitations for new accounts
type Inviter interface {
	InviteUser(ctx context.Context, email, role, invitedBy string) (*entity.Invite, error)
}

// AuthProvider is the identity backend: accounts, sessions and invitations
type AuthProvider interface {
	Inviter
	SignUp(ctx context.Context, in SignUpInput) (*entity.User, error)
	SignIn(ctx context.Context, email, password string) (*AuthSession, error)
	SignOut(ctx context.Context, token string) error
	// CurrentUser resolves a session token; apperr.ErrUnauthenticated when absent or invalid
	CurrentUser(ctx context.Context, token string) (*entity.User, error)
	AcceptInvite(ctx context.Context, in AcceptInviteInput) (*entity.User, error)
	// Subscribe registers a listener for auth-state changes and returns its cancel func
	Subscribe(listener func(ctx context.Context, change AuthChange)) (unsubscribe func())
}
