// Package nullbackend holds the adapters used when no backend is configured.
// Reads come back empty, writes fail with apperr.ErrBackendUnavailable.
package nullbackend

import (
	"context"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
)

const (
	databaseService = "Database"
	storageService  = "Storage"
	authService     = "Authentication"
	usersService    = "User management"
)

// Backend reports the flag the adapters were built for
type Backend bool

// Configured implements port.Backend
func (b Backend) Configured() bool { return bool(b) }

// ClaimRepository is the unconfigured claims store
type ClaimRepository struct{}

func (ClaimRepository) Create(context.Context, *entity.Claim) error {
	return apperr.Unavailable(databaseService)
}

func (ClaimRepository) GetByID(context.Context, string) (*entity.Claim, error) {
	return nil, apperr.ErrNotFound
}

func (ClaimRepository) ListByOwner(context.Context, string) ([]*entity.Claim, error) {
	return []*entity.Claim{}, nil
}

func (ClaimRepository) ListByCorporateExact(context.Context, string) ([]*entity.Claim, error) {
	return []*entity.Claim{}, nil
}

func (ClaimRepository) ListByCorporateLike(context.Context, string) ([]*entity.Claim, error) {
	return []*entity.Claim{}, nil
}

func (ClaimRepository) ListByDocumentsStatus(context.Context, string, int) ([]*entity.Claim, error) {
	return []*entity.Claim{}, nil
}

func (ClaimRepository) AttachDocuments(context.Context, string, []string, string) error {
	return apperr.Unavailable(databaseService)
}

func (ClaimRepository) SetDocumentsStatus(context.Context, string, string) error {
	return apperr.Unavailable(databaseService)
}

func (ClaimRepository) RecordDocumentsAttempt(context.Context, string) (int, error) {
	return 0, apperr.Unavailable(databaseService)
}

func (ClaimRepository) UpdateStatus(context.Context, string, lifecycle.Status) error {
	return apperr.Unavailable(databaseService)
}

// ObjectStorage is the unconfigured document store
type ObjectStorage struct{}

func (ObjectStorage) Upload(context.Context, string, []byte) error {
	return apperr.Unavailable(storageService)
}

func (ObjectStorage) PublicURL(string) string { return "" }

func (ObjectStorage) Delete(context.Context, string) error { return nil }

// StagingArea keeps nothing
type StagingArea struct{}

func (StagingArea) Stage(context.Context, string, []port.StagedFile) error {
	return apperr.Unavailable(storageService)
}

func (StagingArea) Load(context.Context, string) ([]port.StagedFile, error) {
	return []port.StagedFile{}, nil
}

func (StagingArea) Clear(context.Context, string) error { return nil }

// RoleRepository answers every lookup with "no role recorded"
type RoleRepository struct{}

func (RoleRepository) Upsert(context.Context, string, string) error {
	return apperr.Unavailable(usersService)
}

func (RoleRepository) GetLatest(context.Context, string) (*entity.UserRole, error) {
	return nil, apperr.ErrNotFound
}

// UserDirectory lists nobody
type UserDirectory struct{}

func (UserDirectory) ListWithRoles(context.Context) ([]*entity.User, error) {
	return []*entity.User{}, nil
}

// AuthProvider signs nobody in
type AuthProvider struct{}

func (AuthProvider) SignUp(context.Context, port.SignUpInput) (*entity.User, error) {
	return nil, apperr.Unavailable(authService)
}

func (AuthProvider) SignIn(context.Context, string, string) (*port.AuthSession, error) {
	return nil, apperr.Unavailable(authService)
}

func (AuthProvider) SignOut(context.Context, string) error { return nil }

func (AuthProvider) CurrentUser(context.Context, string) (*entity.User, error) {
	return nil, apperr.ErrUnauthenticated
}

func (AuthProvider) AcceptInvite(context.Context, port.AcceptInviteInput) (*entity.User, error) {
	return nil, apperr.Unavailable(authService)
}

func (AuthProvider) InviteUser(context.Context, string, string, string) (*entity.Invite, error) {
	return nil, apperr.Unavailable(usersService)
}

func (AuthProvider) Subscribe(func(context.Context, port.AuthChange)) func() {
	return func() {}
}

var (
	_ port.Backend         = Backend(false)
	_ port.ClaimRepository = ClaimRepository{}
	_ port.ObjectStorage   = ObjectStorage{}
	_ port.StagingArea     = StagingArea{}
	_ port.RoleRepository  = RoleRepository{}
	_ port.UserDirectory   = UserDirectory{}
	_ port.AuthProvider    = AuthProvider{}
)
