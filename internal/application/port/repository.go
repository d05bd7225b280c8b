package port

import (
	"context"
	"time"

	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
)

// ClaimRepository defines persistence operations for Claim
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id string) (*entity.Claim, error)
	// ListByOwner returns the user's claims, newest first
	ListByOwner(ctx context.Context, userID string) ([]*entity.Claim, error)
	// ListByCorporateExact matches corporate_name exactly
	ListByCorporateExact(ctx context.Context, name string) ([]*entity.Claim, error)
	// ListByCorporateLike matches corporate_name as a case-insensitive substring
	ListByCorporateLike(ctx context.Context, fragment string) ([]*entity.Claim, error)
	ListByDocumentsStatus(ctx context.Context, status string, limit int) ([]*entity.Claim, error)
	AttachDocuments(ctx context.Context, id string, urls []string, documentsStatus string) error
	SetDocumentsStatus(ctx context.Context, id string, documentsStatus string) error
	// RecordDocumentsAttempt counts a failed upload attempt, moves the claim to
	// the back of the retry queue and returns the attempts so far
	RecordDocumentsAttempt(ctx context.Context, id string) (int, error)
	UpdateStatus(ctx context.Context, id string, status lifecycle.Status) error
}

// RoleRepository defines persistence operations for UserRole
type RoleRepository interface {
	// Upsert writes the role keyed by user id, replacing any previous value
	Upsert(ctx context.Context, userID, role string) error
	// GetLatest returns the most recent role record, or apperr.ErrNotFound
	GetLatest(ctx context.Context, userID string) (*entity.UserRole, error)
}

// UserDirectory lists users joined with their current role
type UserDirectory interface {
	ListWithRoles(ctx context.Context) ([]*entity.User, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	UserDirectory
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	CompleteRegistration(ctx context.Context, id, passwordHash, firstName, lastName string) error
	TouchLastSignIn(ctx context.Context, id string, at time.Time) error
}

// InviteRepository defines persistence operations for Invite
type InviteRepository interface {
	Create(ctx context.Context, invite *entity.Invite) error
	GetByID(ctx context.Context, id string) (*entity.Invite, error)
	GetUnusedByEmail(ctx context.Context, email string) (*entity.Invite, error)
	MarkUsed(ctx context.Context, id string) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// SessionRepository defines persistence operations for Session
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// TransactionManager runs fn inside a single database transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
