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

// SessionRepository implements port.SessionRepository
type SessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB, logger *zap.Logger) port.SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an issued session
func (r *SessionRepository) Create(ctx context.Context, s *entity.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, revoked_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.CreatedAt, s.ExpiresAt.UTC(), nullTime(s.RevokedAt))
	if err != nil {
		r.logger.Error("Failed to create session", zap.String("user_id", s.UserID), zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its token id
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	var s entity.Session
	var revokedAt sql.NullTime

	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.RevokedAt = timePtr(revokedAt)
	return &s, nil
}

// Revoke marks a session revoked; revoking twice is not an error
func (r *SessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE sessions SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`, at.UTC(), id)
	if err != nil {
		r.logger.Error("Failed to revoke session", zap.String("session_id", id), zap.Error(err))
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before the cutoff
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
