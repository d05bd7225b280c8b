package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// RoleRepository implements port.RoleRepository
type RoleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *sql.DB, logger *zap.Logger) port.RoleRepository {
	return &RoleRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the user's role. Writing the same role again still bumps updated_at.
func (r *RoleRepository) Upsert(ctx context.Context, userID, role string) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO user_roles (id, user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			role = excluded.role,
			updated_at = excluded.updated_at
	`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, uuid.NewString(), userID, role, now, now)
	if err != nil {
		r.logger.Error("Failed to upsert role",
			zap.String("user_id", userID),
			zap.String("role", role),
			zap.Error(err))
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return nil
}

// GetLatest returns the most recent role record for the user
func (r *RoleRepository) GetLatest(ctx context.Context, userID string) (*entity.UserRole, error) {
	query := `
		SELECT id, user_id, role, created_at, updated_at
		FROM user_roles
		WHERE user_id = ?
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1
	`

	var role entity.UserRole
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&role.ID,
		&role.UserID,
		&role.Role,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("role for %s: %w", userID, apperr.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get role", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}
	return &role, nil
}
