package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
	"github.com/garyjia/claimdesk/pkg/database"
)

const dateLayout = "2006-01-02"

const claimColumns = `
	id, created_at, updated_at, date_received, corporate_name, employee_name,
	employee_id, claim_amount, claim_type, reimbursement_method, current_status,
	file_urls, documents_status, notes, user_id`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a claim. CreatedAt/UpdatedAt are set when zero.
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	now := time.Now().UTC()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	if claim.UpdatedAt.IsZero() {
		claim.UpdatedAt = claim.CreatedAt
	}
	if claim.FileURLs == nil {
		claim.FileURLs = []string{}
	}

	urls, err := json.Marshal(claim.FileURLs)
	if err != nil {
		return fmt.Errorf("failed to encode file urls: %w", err)
	}

	query := `
		INSERT INTO claims (` + claimColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = getExecutor(ctx, r.db).ExecContext(ctx, query,
		claim.ID,
		claim.CreatedAt,
		claim.UpdatedAt,
		claim.DateReceived.Format(dateLayout),
		claim.CorporateName,
		claim.EmployeeName,
		nullString(claim.EmployeeID),
		claim.ClaimAmount.StringFixed(2),
		claim.ClaimType,
		claim.ReimbursementMethod,
		string(claim.CurrentStatus),
		string(urls),
		claim.DocumentsStatus,
		nullString(claim.Notes),
		claim.UserID,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`

	claim, err := scanClaim(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.String("claim_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// ListByOwner returns a user's claims, newest first
func (r *ClaimRepository) ListByOwner(ctx context.Context, userID string) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`
	return r.list(ctx, "owner", query, userID)
}

// ListByCorporateExact returns claims whose corporate name equals name
func (r *ClaimRepository) ListByCorporateExact(ctx context.Context, name string) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE corporate_name = ? ORDER BY created_at DESC, rowid DESC`
	return r.list(ctx, "corporate_exact", query, name)
}

// ListByCorporateLike returns claims whose corporate name contains fragment,
// ignoring case (Unicode aware through fold_case)
func (r *ClaimRepository) ListByCorporateLike(ctx context.Context, fragment string) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE fold_case(corporate_name) LIKE ? ESCAPE '\' ORDER BY created_at DESC, rowid DESC`
	return r.list(ctx, "corporate_like", query, "%"+escapeLike(database.FoldCase(fragment))+"%")
}

// ListByDocumentsStatus returns the oldest claims in the given documents status
func (r *ClaimRepository) ListByDocumentsStatus(ctx context.Context, status string, limit int) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE documents_status = ? ORDER BY updated_at ASC, rowid ASC LIMIT ?`
	return r.list(ctx, "documents_status", query, status, limit)
}

// AttachDocuments replaces the file URL list and documents status in one write
func (r *ClaimRepository) AttachDocuments(ctx context.Context, id string, urls []string, documentsStatus string) error {
	if urls == nil {
		urls = []string{}
	}
	encoded, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("failed to encode file urls: %w", err)
	}

	query := `UPDATE claims SET file_urls = ?, documents_status = ?, updated_at = ? WHERE id = ?`
	return r.update(ctx, "attach documents", id, query, string(encoded), documentsStatus, time.Now().UTC(), id)
}

// SetDocumentsStatus updates only the documents status flag
func (r *ClaimRepository) SetDocumentsStatus(ctx context.Context, id string, documentsStatus string) error {
	query := `UPDATE claims SET documents_status = ?, updated_at = ? WHERE id = ?`
	return r.update(ctx, "set documents status", id, query, documentsStatus, time.Now().UTC(), id)
}

// RecordDocumentsAttempt increments the attempt counter and bumps updated_at
func (r *ClaimRepository) RecordDocumentsAttempt(ctx context.Context, id string) (int, error) {
	query := `UPDATE claims SET document_attempts = document_attempts + 1, updated_at = ? WHERE id = ?`
	if err := r.update(ctx, "record documents attempt", id, query, time.Now().UTC(), id); err != nil {
		return 0, err
	}

	var attempts int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT document_attempts FROM claims WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to read documents attempts: %w", err)
	}
	return attempts, nil
}

// UpdateStatus sets the lifecycle status
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id string, status lifecycle.Status) error {
	query := `UPDATE claims SET current_status = ?, updated_at = ? WHERE id = ?`
	return r.update(ctx, "update status", id, query, string(status), time.Now().UTC(), id)
}

func (r *ClaimRepository) update(ctx context.Context, op, id, query string, args ...interface{}) error {
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.String("claim_id", id), zap.Error(err))
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("claim %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *ClaimRepository) list(ctx context.Context, by, query string, args ...interface{}) ([]*entity.Claim, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.String("by", by), zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := make([]*entity.Claim, 0)
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}
	return claims, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var (
		c            entity.Claim
		dateReceived string
		employeeID   sql.NullString
		amount       string
		status       string
		fileURLs     string
		notes        sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&c.CreatedAt,
		&c.UpdatedAt,
		&dateReceived,
		&c.CorporateName,
		&c.EmployeeName,
		&employeeID,
		&amount,
		&c.ClaimType,
		&c.ReimbursementMethod,
		&status,
		&fileURLs,
		&c.DocumentsStatus,
		&notes,
		&c.UserID,
	)
	if err != nil {
		return nil, err
	}

	if c.DateReceived, err = time.Parse(dateLayout, dateReceived); err != nil {
		return nil, fmt.Errorf("bad date_received %q: %w", dateReceived, err)
	}
	if c.ClaimAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad claim_amount %q: %w", amount, err)
	}
	if err := json.Unmarshal([]byte(fileURLs), &c.FileURLs); err != nil {
		return nil, fmt.Errorf("bad file_urls: %w", err)
	}
	if c.FileURLs == nil {
		c.FileURLs = []string{}
	}
	c.CurrentStatus = lifecycle.Status(status)
	c.EmployeeID = stringPtr(employeeID)
	c.Notes = stringPtr(notes)
	return &c, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
