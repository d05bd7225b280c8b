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

const userColumns = `id, email, password_hash, first_name, last_name, invited_at, last_sign_in_at, created_at`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a user; a duplicate email is reported as apperr.ErrConflict
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		nullTime(user.InvitedAt),
		nullTime(user.LastSignInAt),
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, apperr.ErrConflict)
	}
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// CompleteRegistration sets the password and profile of a (possibly invited) user
func (r *UserRepository) CompleteRegistration(ctx context.Context, id, passwordHash, firstName, lastName string) error {
	query := `UPDATE users SET password_hash = ?, first_name = ?, last_name = ? WHERE id = ?`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, passwordHash, firstName, lastName, id)
	if err != nil {
		r.logger.Error("Failed to complete registration", zap.String("user_id", id), zap.Error(err))
		return fmt.Errorf("failed to complete registration: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// TouchLastSignIn records a successful sign-in
func (r *UserRepository) TouchLastSignIn(ctx context.Context, id string, at time.Time) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `UPDATE users SET last_sign_in_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record sign-in: %w", err)
	}
	return nil
}

// ListWithRoles returns all users with their current role, newest first
func (r *UserRepository) ListWithRoles(ctx context.Context) ([]*entity.User, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name,
			u.invited_at, u.last_sign_in_at, u.created_at,
			COALESCE(ur.role, 'user')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		ORDER BY u.created_at DESC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		var u entity.User
		var invitedAt, lastSignIn sql.NullTime
		if err := rows.Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&invitedAt, &lastSignIn, &u.CreatedAt, &u.Role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.InvitedAt = timePtr(invitedAt)
		u.LastSignInAt = timePtr(lastSignIn)
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*entity.User, error) {
	var u entity.User
	var invitedAt, lastSignIn sql.NullTime

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&invitedAt, &lastSignIn, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", arg, apperr.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.InvitedAt = timePtr(invitedAt)
	u.LastSignInAt = timePtr(lastSignIn)
	u.Role = entity.RoleUser
	return &u, nil
}
