// Package auth is the local identity backend: bcrypt passwords, JWT sessions
// tracked in the sessions table, and invitation tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/event"
	"github.com/garyjia/claimdesk/pkg/utils"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

var errInvalidCredentials = fmt.Errorf("%w: invalid login credentials", apperr.ErrUnauthenticated)

// Repositories bundles the stores the provider writes to
type Repositories struct {
	Users    port.UserRepository
	Roles    port.RoleRepository
	Invites  port.InviteRepository
	Sessions port.SessionRepository
}

// Options tunes the provider
type Options struct {
	InviteTTL  time.Duration
	BcryptCost int
	Now        func() time.Time
}

// LocalProvider implements port.AuthProvider
type LocalProvider struct {
	repos  Repositories
	tx     port.TransactionManager
	tokens *TokenIssuer
	bus    port.EventBus
	opts   Options
	logger *zap.Logger
}

// NewLocalProvider creates the provider
func NewLocalProvider(repos Repositories, tx port.TransactionManager, tokens *TokenIssuer, bus port.EventBus, opts Options, logger *zap.Logger) *LocalProvider {
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LocalProvider{
		repos:  repos,
		tx:     tx,
		tokens: tokens,
		bus:    bus,
		opts:   opts,
		logger: logger,
	}
}

// SignUp registers a new account. A pending invited account can only be
// completed here once its invitation is no longer usable, and then gets the
// default role.
func (p *LocalProvider) SignUp(ctx context.Context, in port.SignUpInput) (*entity.User, error) {
	email := utils.NormalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, err
	}

	hash, err := p.hash(in.Password)
	if err != nil {
		return nil, err
	}

	var user *entity.User
	err = p.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := p.repos.Users.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			user = &entity.User{
				ID:           uuid.NewString(),
				Email:        email,
				FirstName:    strings.TrimSpace(in.FirstName),
				LastName:     strings.TrimSpace(in.LastName),
				PasswordHash: hash,
				CreatedAt:    p.opts.Now().UTC(),
				Role:         entity.RoleUser,
			}
			return p.repos.Users.Create(ctx, user)
		case err != nil:
			return err
		case existing.Registered():
			return fmt.Errorf("%w: user already registered", apperr.ErrConflict)
		}

		invite, err := p.repos.Invites.GetUnusedByEmail(ctx, email)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return err
		case invite.Usable(p.opts.Now()):
			return fmt.Errorf("%w: an invitation is pending for this email, accept the invitation instead", apperr.ErrConflict)
		}

		user = existing
		if err := p.completeRegistration(ctx, user, hash, in.FirstName, in.LastName); err != nil {
			return err
		}
		user.Role = entity.RoleUser
		return nil
	})
	if err != nil {
		p.logger.Error("Sign up failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	user.PasswordHash = ""
	p.publish(ctx, event.TypeSignedUp, user)
	p.logger.Info("User signed up", zap.String("user_id", user.ID))
	return user, nil
}

// SignIn verifies credentials and opens a session
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*port.AuthSession, error) {
	email = utils.NormalizeEmail(email)
	user, err := p.repos.Users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.Registered() || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errInvalidCredentials
	}

	now := p.opts.Now().UTC()
	token, sessionID, expiresAt, err := p.tokens.Issue(user, now)
	if err != nil {
		return nil, err
	}
	if err := p.repos.Sessions.Create(ctx, &entity.Session{
		ID:        sessionID,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, err
	}
	if err := p.repos.Users.TouchLastSignIn(ctx, user.ID, now); err != nil {
		p.logger.Error("Failed to record sign-in time", zap.String("user_id", user.ID), zap.Error(err))
	}

	user.PasswordHash = ""
	user.LastSignInAt = &now
	user.Role = p.roleOf(ctx, user.ID)
	p.publish(ctx, event.TypeSignedIn, user)

	return &port.AuthSession{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// SignOut revokes the token's session
func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	claims, err := p.tokens.Parse(token)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	if err := p.repos.Sessions.Revoke(ctx, claims.ID, p.opts.Now()); err != nil {
		return err
	}

	p.publish(ctx, event.TypeSignedOut, &entity.User{ID: claims.Subject, Email: claims.Email})
	return nil
}

// CurrentUser resolves a token to its user when the session is still active
func (p *LocalProvider) CurrentUser(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, apperr.ErrUnauthenticated
	}
	claims, err := p.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}

	session, err := p.repos.Sessions.GetByID(ctx, claims.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown session", apperr.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	if !session.Active(p.opts.Now()) || session.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: session ended", apperr.ErrUnauthenticated)
	}

	user, err := p.repos.Users.GetByID(ctx, claims.Subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", apperr.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	user.Role = p.roleOf(ctx, user.ID)
	return user, nil
}

// AcceptInvite sets the password of an invited account and applies the invited role
func (p *LocalProvider) AcceptInvite(ctx context.Context, in port.AcceptInviteInput) (*entity.User, error) {
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := p.hash(in.Password)
	if err != nil {
		return nil, err
	}

	var user *entity.User
	err = p.tx.WithTransaction(ctx, func(ctx context.Context) error {
		invite, err := p.repos.Invites.GetByID(ctx, in.Token)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validation("invite is invalid or has expired")
		}
		if err != nil {
			return err
		}
		if !invite.Usable(p.opts.Now()) {
			return apperr.Validation("invite is invalid or has expired")
		}

		user, err = p.repos.Users.GetByEmail(ctx, invite.Email)
		if err != nil {
			return err
		}
		if user.Registered() {
			return fmt.Errorf("%w: user already registered", apperr.ErrConflict)
		}

		if err := p.completeRegistration(ctx, user, hash, in.FirstName, in.LastName); err != nil {
			return err
		}
		if err := p.repos.Roles.Upsert(ctx, user.ID, invite.Role); err != nil {
			return err
		}
		if err := p.repos.Invites.MarkUsed(ctx, invite.ID); err != nil {
			return err
		}
		user.Role = invite.Role
		return nil
	})
	if err != nil {
		p.logger.Error("Accept invite failed", zap.Error(err))
		return nil, err
	}

	user.PasswordHash = ""
	p.publish(ctx, event.TypeSignedUp, user)
	return user, nil
}

// InviteUser creates a pending account and an invitation token for it
func (p *LocalProvider) InviteUser(ctx context.Context, email, role, invitedBy string) (*entity.Invite, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if !entity.IsRole(role) {
		return nil, apperr.Validation("invalid role: %s", role)
	}

	now := p.opts.Now().UTC()
	invite := &entity.Invite{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		Status:    entity.InviteStatusUnused,
		InvitedBy: invitedBy,
		ExpiresAt: now.Add(p.opts.InviteTTL),
		CreatedAt: now,
	}

	err := p.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := p.repos.Users.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			if err := p.repos.Users.Create(ctx, &entity.User{
				ID:        uuid.NewString(),
				Email:     email,
				InvitedAt: &now,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.Registered():
			return fmt.Errorf("%w: user already registered", apperr.ErrConflict)
		}
		return p.repos.Invites.Create(ctx, invite)
	})
	if err != nil {
		p.logger.Error("Invite failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	evt := event.NewEvent(event.TypeUserInvited, invite.ID, invitedBy, map[string]interface{}{
		"email": email,
		"role":  role,
	})
	if async, ok := p.bus.(port.AsyncEventPublisher); ok {
		async.DispatchAsync(context.WithoutCancel(ctx), evt)
	} else {
		p.bus.Publish(ctx, evt)
	}
	return invite, nil
}

// Subscribe delivers auth-state changes to listener until the returned func is called
func (p *LocalProvider) Subscribe(listener func(ctx context.Context, change port.AuthChange)) func() {
	types := []event.Type{event.TypeSignedUp, event.TypeSignedIn, event.TypeSignedOut, event.TypeUserUpdated}
	cancels := make([]func(), 0, len(types))
	for _, t := range types {
		cancels = append(cancels, p.bus.Subscribe(t, func(ctx context.Context, evt *event.Event) error {
			user, _ := evt.Payload["user"].(*entity.User)
			listener(ctx, port.AuthChange{Event: evt.Type, User: user})
			return nil
		}))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// PurgeExpired deletes expired sessions and expires stale invites
func (p *LocalProvider) PurgeExpired(ctx context.Context) (sessions, invites int64, err error) {
	now := p.opts.Now()
	if sessions, err = p.repos.Sessions.DeleteExpired(ctx, now); err != nil {
		return 0, 0, err
	}
	if invites, err = p.repos.Invites.ExpireStale(ctx, now); err != nil {
		return sessions, 0, err
	}
	return sessions, invites, nil
}

func (p *LocalProvider) completeRegistration(ctx context.Context, user *entity.User, hash, first, last string) error {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if err := p.repos.Users.CompleteRegistration(ctx, user.ID, hash, first, last); err != nil {
		return err
	}
	user.FirstName = first
	user.LastName = last
	return nil
}

func (p *LocalProvider) roleOf(ctx context.Context, userID string) string {
	role, err := p.repos.Roles.GetLatest(ctx, userID)
	if err != nil {
		return entity.RoleUser
	}
	return role.Role
}

func (p *LocalProvider) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.opts.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (p *LocalProvider) publish(ctx context.Context, t event.Type, user *entity.User) {
	evt := event.NewEvent(t, user.ID, user.ID, map[string]interface{}{"user": user})
	p.bus.Publish(ctx, evt)
}

func validateCredentials(email, password string) error {
	if err := utils.ValidateEmail(email); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	// bcrypt ignores input past 72 bytes
	if len(password) > 72 {
		return apperr.Validation("password must be at most 72 bytes")
	}
	return nil
}

var _ port.AuthProvider = (*LocalProvider)(nil)
