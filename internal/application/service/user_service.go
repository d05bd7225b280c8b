package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/event"
	"github.com/garyjia/claimdesk/pkg/utils"
)

// InviteResult is handed back to the inviting admin
type InviteResult struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserService manages platform users and their roles
type UserService interface {
	ListUsers(ctx context.Context) ([]*entity.User, error)
	InviteUser(ctx context.Context, inviter *entity.User, email, role string) (*InviteResult, error)
	// UpdateRole rewrites the user's role row, even when the role is unchanged
	UpdateRole(ctx context.Context, actor *entity.User, userID, role string) error
	// GetRole returns the most recent role, or "user" when none is recorded
	GetRole(ctx context.Context, userID string) (string, error)
	// IsAdmin reports false on any lookup error
	IsAdmin(ctx context.Context, user *entity.User) bool
}

type userServiceImpl struct {
	directory   port.UserDirectory
	roles       port.RoleRepository
	inviter     port.Inviter
	cache       port.RoleCache
	events      port.EventPublisher
	redirectURL string
	logger      Logger
}

// NewUserService creates a new UserService. redirectURL is the page that
// accepts invitations; the token is appended as ?token=.
func NewUserService(
	directory port.UserDirectory,
	roles port.RoleRepository,
	inviter port.Inviter,
	cache port.RoleCache,
	events port.EventPublisher,
	redirectURL string,
	logger Logger,
) UserService {
	return &userServiceImpl{
		directory:   directory,
		roles:       roles,
		inviter:     inviter,
		cache:       cache,
		events:      events,
		redirectURL: redirectURL,
		logger:      logger,
	}
}

// ListUsers returns every user joined with the current role
func (s *userServiceImpl) ListUsers(ctx context.Context) ([]*entity.User, error) {
	users, err := s.directory.ListWithRoles(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", "error", err)
		return nil, err
	}
	return users, nil
}

// InviteUser creates an invitation and returns its accept link
func (s *userServiceImpl) InviteUser(ctx context.Context, inviter *entity.User, email, role string) (*InviteResult, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if role == "" {
		role = entity.RoleUser
	}
	if !entity.IsRole(role) {
		return nil, apperr.Validation("invalid role: %s", role)
	}

	invitedBy := ""
	if inviter != nil {
		invitedBy = inviter.ID
	}

	invite, err := s.inviter.InviteUser(ctx, email, role, invitedBy)
	if err != nil {
		s.logger.Error("Failed to invite user", "error", err, "email", email)
		return nil, err
	}

	s.logger.Info("User invited", "email", email, "role", role, "invited_by", invitedBy)
	return &InviteResult{
		Email:     invite.Email,
		Role:      invite.Role,
		Link:      InviteLink(s.redirectURL, invite.ID),
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

// UpdateRole upserts the role keyed by user id
func (s *userServiceImpl) UpdateRole(ctx context.Context, actor *entity.User, userID, role string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Validation("user id is required")
	}
	if !entity.IsRole(role) {
		return apperr.Validation("invalid role: %s", role)
	}

	if err := s.roles.Upsert(ctx, userID, role); err != nil {
		s.logger.Error("Failed to update role", "error", err, "user_id", userID, "role", role)
		return err
	}
	s.cache.Invalidate(userID)

	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	publish(ctx, s.events, event.NewEvent(event.TypeRoleUpdated, userID, actorID, map[string]interface{}{
		"role": role,
	}))
	s.logger.Info("Role updated", "user_id", userID, "role", role, "actor", actorID)
	return nil
}

// GetRole returns the most recent role, or "user" when none is recorded
func (s *userServiceImpl) GetRole(ctx context.Context, userID string) (string, error) {
	if role, ok := s.cache.Get(userID); ok {
		return role, nil
	}

	record, err := s.roles.GetLatest(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		s.cache.Set(userID, entity.RoleUser)
		return entity.RoleUser, nil
	}
	if err != nil {
		s.logger.Error("Failed to get role", "error", err, "user_id", userID)
		return entity.RoleUser, err
	}

	s.cache.Set(userID, record.Role)
	return record.Role, nil
}

// IsAdmin reports false on any lookup error
func (s *userServiceImpl) IsAdmin(ctx context.Context, user *entity.User) bool {
	if user == nil {
		return false
	}
	role, err := s.GetRole(ctx, user.ID)
	if err != nil {
		return false
	}
	return role == entity.RoleAdmin
}

// InviteLink appends the invite token to the accept page URL
func InviteLink(redirectURL, token string) string {
	sep := "?"
	if strings.Contains(redirectURL, "?") {
		sep = "&"
	}
	return redirectURL + sep + "token=" + url.QueryEscape(token)
}

// InvalidateRolesOn drops cached roles when a role changes or its owner signs out
func InvalidateRolesOn(bus port.EventBus, cache port.RoleCache) (unsubscribe func()) {
	drop := func(ctx context.Context, evt *event.Event) error {
		cache.Invalidate(evt.SubjectID)
		return nil
	}
	cancels := []func(){
		bus.Subscribe(event.TypeRoleUpdated, drop),
		bus.Subscribe(event.TypeSignedOut, drop),
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}
