package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

const inviteColumns = `id, email, role, status, invited_by, expires_at, created_at`

// InviteRepository implements port.InviteRepository
type InviteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(db *sql.DB, logger *zap.Logger) port.InviteRepository {
	return &InviteRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new invite
func (r *InviteRepository) Create(ctx context.Context, invite *entity.Invite) error {
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now().UTC()
	}
	if invite.Status == "" {
		invite.Status = entity.InviteStatusUnused
	}

	query := `INSERT INTO invites (` + inviteColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		invite.ID,
		invite.Email,
		invite.Role,
		invite.Status,
		invite.InvitedBy,
		invite.ExpiresAt.UTC(),
		invite.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invite", zap.String("email", invite.Email), zap.Error(err))
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetByID retrieves an invite by its token
func (r *InviteRepository) GetByID(ctx context.Context, id string) (*entity.Invite, error) {
	return r.getOne(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = ?`, id)
}

// GetUnusedByEmail returns the newest unused invite for an email
func (r *InviteRepository) GetUnusedByEmail(ctx context.Context, email string) (*entity.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE email = ? AND status = ? ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, email, entity.InviteStatusUnused)
}

// MarkUsed flips an unused invite to USED
func (r *InviteRepository) MarkUsed(ctx context.Context, id string) error {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE invites SET status = ? WHERE id = ? AND status = ?`,
		entity.InviteStatusUsed, id, entity.InviteStatusUnused)
	if err != nil {
		return fmt.Errorf("failed to mark invite used: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("unused invite %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ExpireStale marks every unused invite past its expiry as EXPIRED
func (r *InviteRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE invites SET status = ? WHERE status = ? AND expires_at <= ?`,
		entity.InviteStatusExpired, entity.InviteStatusUnused, now.UTC())
	if err != nil {
		r.logger.Error("Failed to expire invites", zap.Error(err))
		return 0, fmt.Errorf("failed to expire invites: %w", err)
	}
	return result.RowsAffected()
}

func (r *InviteRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.Invite, error) {
	var inv entity.Invite
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(
		&inv.ID, &inv.Email, &inv.Role, &inv.Status, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invite: %w", apperr.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get invite", zap.Error(err))
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return &inv, nil
}
