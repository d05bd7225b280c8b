package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
	"github.com/garyjia/claimdesk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/claimdesk/migrations"
	"github.com/garyjia/claimdesk/pkg/database"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "claims.db"), MaxOpenConns: 1}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).Run(migrations.FS)
	require.NoError(t, err)
	return db.DB
}

func createUser(t *testing.T, repo *UserRepository, email string) *entity.User {
	t.Helper()
	u := &entity.User{ID: uuid.NewString(), Email: email, PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func newClaim(userID, corporate string, created time.Time) *entity.Claim {
	return &entity.Claim{
		ID:                  uuid.NewString(),
		CreatedAt:           created,
		DateReceived:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CorporateName:       corporate,
		EmployeeName:        "Jane Doe",
		ClaimAmount:         decimal.RequireFromString("150.50"),
		ClaimType:           entity.ClaimTypeDental,
		ReimbursementMethod: entity.ReimbursementCheque,
		CurrentStatus:       lifecycle.InitialStatus,
		DocumentsStatus:     entity.DocumentsNone,
		UserID:              userID,
	}
}

func TestClaimRepository_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	repo := NewClaimRepository(db, zap.NewNop())
	owner := createUser(t, users, "owner@example.com")

	notes := "left at reception"
	c := newClaim(owner.ID, "Acme Corporation", time.Now().UTC())
	c.Notes = &notes
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.50", got.ClaimAmount.StringFixed(2))
	assert.True(t, got.ClaimAmount.Equal(decimal.RequireFromString("150.5")))
	assert.Equal(t, "2024-03-01", got.DateReceived.Format("2006-01-02"))
	assert.Equal(t, []string{}, got.FileURLs)
	assert.Nil(t, got.EmployeeID)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)
	assert.Equal(t, lifecycle.StatusReceived, got.CurrentStatus)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestClaimRepository_ListByOwnerNewestFirst(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	repo := NewClaimRepository(db, zap.NewNop())
	alice := createUser(t, users, "alice@example.com")
	bob := createUser(t, users, "bob@example.com")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	older := newClaim(alice.ID, "Acme Corporation", base)
	newer := newClaim(alice.ID, "Acme Corporation", base.Add(time.Minute))
	other := newClaim(bob.ID, "Acme Corporation", base.Add(2*time.Minute))
	for _, c := range []*entity.Claim{older, newer, other} {
		require.NoError(t, repo.Create(ctx, c))
	}

	got, err := repo.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	none, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestClaimRepository_CorporateLookups(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	repo := NewClaimRepository(db, zap.NewNop())
	owner := createUser(t, users, "owner@example.com")

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newClaim(owner.ID, "Acme Corporation", now)))
	require.NoError(t, repo.Create(ctx, newClaim(owner.ID, "Tech Solutions Ltd", now)))
	require.NoError(t, repo.Create(ctx, newClaim(owner.ID, "100% Health_Co", now)))
	require.NoError(t, repo.Create(ctx, newClaim(owner.ID, "Ärzte Société GmbH", now)))

	exact, err := repo.ListByCorporateExact(ctx, "Acme Corporation")
	require.NoError(t, err)
	assert.Len(t, exact, 1)

	exact, err = repo.ListByCorporateExact(ctx, "acme corporation")
	require.NoError(t, err)
	assert.Empty(t, exact)

	like, err := repo.ListByCorporateLike(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, like, 1)
	assert.Equal(t, "Acme Corporation", like[0].CorporateName)

	// Wildcards in the input are literal.
	like, err = repo.ListByCorporateLike(ctx, "%")
	require.NoError(t, err)
	require.Len(t, like, 1)
	assert.Equal(t, "100% Health_Co", like[0].CorporateName)

	like, err = repo.ListByCorporateLike(ctx, "Acme_Corporation")
	require.NoError(t, err)
	assert.Empty(t, like)

	// Case folding is not limited to ASCII.
	for _, fragment := range []string{"ärzte", "SOCIÉTÉ", "äRZTE sOCIété"} {
		like, err = repo.ListByCorporateLike(ctx, fragment)
		require.NoError(t, err)
		require.Len(t, like, 1, fragment)
		assert.Equal(t, "Ärzte Société GmbH", like[0].CorporateName)
	}
}

func TestClaimRepository_DocumentsAndStatus(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	repo := NewClaimRepository(db, zap.NewNop())
	owner := createUser(t, users, "owner@example.com")

	c := newClaim(owner.ID, "Acme Corporation", time.Now().UTC())
	c.DocumentsStatus = entity.DocumentsPending
	require.NoError(t, repo.Create(ctx, c))

	require.NoError(t, repo.SetDocumentsStatus(ctx, c.ID, entity.DocumentsIncomplete))
	incomplete, err := repo.ListByDocumentsStatus(ctx, entity.DocumentsIncomplete, 10)
	require.NoError(t, err)
	require.Len(t, incomplete, 1)

	urls := []string{"http://files/claim-documents/a.pdf", "http://files/claim-documents/b.png"}
	require.NoError(t, repo.AttachDocuments(ctx, c.ID, urls, entity.DocumentsAttached))
	require.NoError(t, repo.UpdateStatus(ctx, c.ID, lifecycle.StatusScanned))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, urls, got.FileURLs)
	assert.Equal(t, entity.DocumentsAttached, got.DocumentsStatus)
	assert.Equal(t, lifecycle.StatusScanned, got.CurrentStatus)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", lifecycle.StatusScanned), apperr.ErrNotFound)
}

func TestClaimRepository_RecordDocumentsAttempt(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	repo := NewClaimRepository(db, zap.NewNop())
	owner := createUser(t, users, "owner@example.com")

	older := newClaim(owner.ID, "Acme Corporation", time.Now().UTC().Add(-2*time.Hour))
	older.DocumentsStatus = entity.DocumentsIncomplete
	newer := newClaim(owner.ID, "Acme Corporation", time.Now().UTC().Add(-time.Hour))
	newer.DocumentsStatus = entity.DocumentsIncomplete
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	head, err := repo.ListByDocumentsStatus(ctx, entity.DocumentsIncomplete, 1)
	require.NoError(t, err)
	require.Len(t, head, 1)
	assert.Equal(t, older.ID, head[0].ID)

	attempts, err := repo.RecordDocumentsAttempt(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	attempts, err = repo.RecordDocumentsAttempt(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	head, err = repo.ListByDocumentsStatus(ctx, entity.DocumentsIncomplete, 1)
	require.NoError(t, err)
	require.Len(t, head, 1)
	assert.Equal(t, newer.ID, head[0].ID)

	_, err = repo.RecordDocumentsAttempt(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestClaimRepository_TransactionRollback(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	repo := NewClaimRepository(db, zap.NewNop())
	tx := sqlite.NewDB(db, zap.NewNop())
	owner := createUser(t, users, "owner@example.com")

	c := newClaim(owner.ID, "Acme Corporation", time.Now().UTC())
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, c); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRoleRepository_UpsertAndLatest(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	roles := NewRoleRepository(db, zap.NewNop())
	u := createUser(t, users, "staff@example.com")

	_, err := roles.GetLatest(ctx, u.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, roles.Upsert(ctx, u.ID, entity.RoleManager))
	first, err := roles.GetLatest(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleManager, first.Role)

	time.Sleep(2 * time.Millisecond)
	// Same role again is written, not skipped.
	require.NoError(t, roles.Upsert(ctx, u.ID, entity.RoleManager))
	second, err := roles.GetLatest(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	require.NoError(t, roles.Upsert(ctx, u.ID, entity.RoleAdmin))
	third, err := roles.GetLatest(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, third.Role)

	assert.Error(t, roles.Upsert(ctx, u.ID, "owner"))
}

func TestUserRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db, zap.NewNop())
	roles := NewRoleRepository(db, zap.NewNop())

	admin := &entity.User{ID: uuid.NewString(), Email: "Admin@Example.com", PasswordHash: "h", CreatedAt: time.Now().UTC().Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, admin))
	require.NoError(t, roles.Upsert(ctx, admin.ID, entity.RoleAdmin))

	invitedAt := time.Now().UTC()
	invited := &entity.User{ID: uuid.NewString(), Email: "new@example.com", InvitedAt: &invitedAt}
	require.NoError(t, repo.Create(ctx, invited))

	err := repo.Create(ctx, &entity.User{ID: uuid.NewString(), Email: "admin@example.com"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := repo.GetByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	list, err := repo.ListWithRoles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, invited.ID, list[0].ID)
	assert.Equal(t, entity.RoleUser, list[0].Role)
	assert.NotNil(t, list[0].InvitedAt)
	assert.False(t, list[0].Registered())
	assert.Equal(t, entity.RoleAdmin, list[1].Role)

	require.NoError(t, repo.CompleteRegistration(ctx, invited.ID, "newhash", "Ada", "Lovelace"))
	require.NoError(t, repo.TouchLastSignIn(ctx, invited.ID, time.Now()))
	got, err = repo.GetByID(ctx, invited.ID)
	require.NoError(t, err)
	assert.True(t, got.Registered())
	assert.Equal(t, "Ada Lovelace", got.DisplayName())
	assert.NotNil(t, got.LastSignInAt)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInviteRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewInviteRepository(db, zap.NewNop())
	now := time.Now().UTC()

	live := &entity.Invite{ID: uuid.NewString(), Email: "new@example.com", Role: entity.RoleManager, InvitedBy: "admin", ExpiresAt: now.Add(24 * time.Hour)}
	stale := &entity.Invite{ID: uuid.NewString(), Email: "old@example.com", Role: entity.RoleUser, InvitedBy: "admin", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	got, err := repo.GetUnusedByEmail(ctx, "NEW@example.com")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
	assert.True(t, got.Usable(now))

	n, err := repo.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InviteStatusExpired, got.Status)

	require.NoError(t, repo.MarkUsed(ctx, live.ID))
	assert.ErrorIs(t, repo.MarkUsed(ctx, live.ID), apperr.ErrNotFound)

	_, err = repo.GetUnusedByEmail(ctx, "new@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSessionRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, zap.NewNop()).(*UserRepository)
	repo := NewSessionRepository(db, zap.NewNop())
	u := createUser(t, users, "staff@example.com")
	now := time.Now().UTC()

	s := &entity.Session{ID: uuid.NewString(), UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	old := &entity.Session{ID: uuid.NewString(), UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.Create(ctx, old))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Active(now))

	require.NoError(t, repo.Revoke(ctx, s.ID, now))
	require.NoError(t, repo.Revoke(ctx, s.ID, now.Add(time.Minute)))
	got, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.Active(now))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
