package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/event"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
)

// mockClaimRepo keeps claims in memory unless a func field overrides the call
type mockClaimRepo struct {
	mu     sync.Mutex
	claims map[string]*entity.Claim
	order  []string

	createFunc        func(ctx context.Context, claim *entity.Claim) error
	attachFunc        func(ctx context.Context, id string, urls []string, status string) error
	listByOwnerFunc   func(ctx context.Context, userID string) ([]*entity.Claim, error)
	exactFunc         func(ctx context.Context, name string) ([]*entity.Claim, error)
	likeFunc          func(ctx context.Context, fragment string) ([]*entity.Claim, error)
	attempts          map[string]int
	createCalls       int
	updateStatusCalls int
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{claims: make(map[string]*entity.Claim)}
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createFunc != nil {
		return m.createFunc(ctx, claim)
	}
	cp := *claim
	m.claims[claim.ID] = &cp
	m.order = append([]string{claim.ID}, m.order...)
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, apperr.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimRepo) ListByOwner(ctx context.Context, userID string) ([]*entity.Claim, error) {
	if m.listByOwnerFunc != nil {
		return m.listByOwnerFunc(ctx, userID)
	}
	return m.filter(func(c *entity.Claim) bool { return c.UserID == userID }), nil
}

func (m *mockClaimRepo) ListByCorporateExact(ctx context.Context, name string) ([]*entity.Claim, error) {
	if m.exactFunc != nil {
		return m.exactFunc(ctx, name)
	}
	return m.filter(func(c *entity.Claim) bool { return c.CorporateName == name }), nil
}

func (m *mockClaimRepo) ListByCorporateLike(ctx context.Context, fragment string) ([]*entity.Claim, error) {
	if m.likeFunc != nil {
		return m.likeFunc(ctx, fragment)
	}
	return []*entity.Claim{}, nil
}

func (m *mockClaimRepo) ListByDocumentsStatus(ctx context.Context, status string, limit int) ([]*entity.Claim, error) {
	out := m.filter(func(c *entity.Claim) bool { return c.DocumentsStatus == status })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockClaimRepo) AttachDocuments(ctx context.Context, id string, urls []string, status string) error {
	if m.attachFunc != nil {
		return m.attachFunc(ctx, id, urls, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return apperr.ErrNotFound
	}
	c.FileURLs = urls
	c.DocumentsStatus = status
	return nil
}

func (m *mockClaimRepo) SetDocumentsStatus(ctx context.Context, id string, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return apperr.ErrNotFound
	}
	c.DocumentsStatus = status
	return nil
}

func (m *mockClaimRepo) RecordDocumentsAttempt(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[id]; !ok {
		return 0, apperr.ErrNotFound
	}
	if m.attempts == nil {
		m.attempts = make(map[string]int)
	}
	m.attempts[id]++
	return m.attempts[id], nil
}

func (m *mockClaimRepo) UpdateStatus(ctx context.Context, id string, status lifecycle.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateStatusCalls++
	c, ok := m.claims[id]
	if !ok {
		return apperr.ErrNotFound
	}
	c.CurrentStatus = status
	return nil
}

func (m *mockClaimRepo) filter(keep func(*entity.Claim) bool) []*entity.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*entity.Claim{}
	for _, id := range m.order {
		if c := m.claims[id]; keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

func (m *mockClaimRepo) get(id string) *entity.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims[id]
}

// mockObjectStorage records uploads and can fail the n-th one (1-based)
type mockObjectStorage struct {
	objects map[string][]byte
	deleted []string
	failAt  int
	// uploadErr fails every upload when set
	uploadErr error
	uploads   int
}

func newMockObjectStorage() *mockObjectStorage {
	return &mockObjectStorage{objects: make(map[string][]byte)}
}

func (m *mockObjectStorage) Upload(ctx context.Context, path string, content []byte) error {
	m.uploads++
	if m.uploadErr != nil {
		return m.uploadErr
	}
	if m.failAt > 0 && m.uploads == m.failAt {
		return errors.New("storage offline")
	}
	m.objects[path] = content
	return nil
}

func (m *mockObjectStorage) PublicURL(path string) string {
	return "http://files.test/claim-documents/" + path
}

func (m *mockObjectStorage) Delete(ctx context.Context, path string) error {
	delete(m.objects, path)
	m.deleted = append(m.deleted, path)
	return nil
}

type mockStagingArea struct {
	staged    map[string][]port.StagedFile
	stageFunc func(ctx context.Context, claimID string, files []port.StagedFile) error
}

func newMockStagingArea() *mockStagingArea {
	return &mockStagingArea{staged: make(map[string][]port.StagedFile)}
}

func (m *mockStagingArea) Stage(ctx context.Context, claimID string, files []port.StagedFile) error {
	if m.stageFunc != nil {
		return m.stageFunc(ctx, claimID, files)
	}
	m.staged[claimID] = files
	return nil
}

func (m *mockStagingArea) Load(ctx context.Context, claimID string) ([]port.StagedFile, error) {
	return m.staged[claimID], nil
}

func (m *mockStagingArea) Clear(ctx context.Context, claimID string) error {
	delete(m.staged, claimID)
	return nil
}

// mockInspector accepts everything unless the name is listed in reject
type mockInspector struct {
	reject map[string]bool
	calls  int
}

func (m *mockInspector) Inspect(ctx context.Context, name string, content []byte) (*port.DocumentInfo, error) {
	m.calls++
	if m.reject[name] {
		return nil, apperr.Validation("%s: content does not match its extension", name)
	}
	return &port.DocumentInfo{Size: len(content), Pages: 1}, nil
}

type mockExporter struct {
	got []*entity.Claim
}

func (m *mockExporter) WriteClaims(w io.Writer, claims []*entity.Claim) error {
	m.got = claims
	_, err := w.Write([]byte("report"))
	return err
}

func (m *mockExporter) ContentType() string   { return "application/test" }
func (m *mockExporter) FileExtension() string { return ".test" }

type mockPublisher struct {
	events []*event.Event
}

func (m *mockPublisher) Publish(ctx context.Context, evt *event.Event) {
	m.events = append(m.events, evt)
}

// mockAsyncPublisher also records events handed off without waiting
type mockAsyncPublisher struct {
	mockPublisher
	async    []*event.Event
	asyncCtx []context.Context
}

func (m *mockAsyncPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.async = append(m.async, evt)
	m.asyncCtx = append(m.asyncCtx, ctx)
}

func (m *mockPublisher) types() []event.Type {
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockRoleRepo struct {
	roles       map[string]string
	upsertCalls int
	getCalls    int
	getErr      error
	upsertErr   error
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[string]string)}
}

func (m *mockRoleRepo) Upsert(ctx context.Context, userID, role string) error {
	m.upsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.roles[userID] = role
	return nil
}

func (m *mockRoleRepo) GetLatest(ctx context.Context, userID string) (*entity.UserRole, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	role, ok := m.roles[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &entity.UserRole{UserID: userID, Role: role}, nil
}

type mockDirectory struct {
	users []*entity.User
	calls int
}

func (m *mockDirectory) ListWithRoles(ctx context.Context) ([]*entity.User, error) {
	m.calls++
	return m.users, nil
}

type mockInviter struct {
	inviteFunc func(ctx context.Context, email, role, invitedBy string) (*entity.Invite, error)
}

func (m *mockInviter) InviteUser(ctx context.Context, email, role, invitedBy string) (*entity.Invite, error) {
	if m.inviteFunc != nil {
		return m.inviteFunc(ctx, email, role, invitedBy)
	}
	return &entity.Invite{ID: "tok-1", Email: email, Role: role, InvitedBy: invitedBy}, nil
}

type mockRoleCache struct {
	entries     map[string]string
	invalidated []string
}

func newMockRoleCache() *mockRoleCache {
	return &mockRoleCache{entries: make(map[string]string)}
}

func (m *mockRoleCache) Get(userID string) (string, bool) {
	role, ok := m.entries[userID]
	return role, ok
}

func (m *mockRoleCache) Set(userID, role string) { m.entries[userID] = role }

func (m *mockRoleCache) Invalidate(userID string) {
	delete(m.entries, userID)
	m.invalidated = append(m.invalidated, userID)
}

type mockAuthProvider struct {
	signInFunc      func(ctx context.Context, email, password string) (*port.AuthSession, error)
	currentUserFunc func(ctx context.Context, token string) (*entity.User, error)
	acceptFunc      func(ctx context.Context, in port.AcceptInviteInput) (*entity.User, error)
	listeners       []func(ctx context.Context, change port.AuthChange)
}

func (m *mockAuthProvider) SignUp(ctx context.Context, in port.SignUpInput) (*entity.User, error) {
	return &entity.User{ID: "u1", Email: in.Email, Role: entity.RoleUser}, nil
}

func (m *mockAuthProvider) SignIn(ctx context.Context, email, password string) (*port.AuthSession, error) {
	if m.signInFunc != nil {
		return m.signInFunc(ctx, email, password)
	}
	return &port.AuthSession{User: &entity.User{ID: "u1", Email: email}, Token: "tok"}, nil
}

func (m *mockAuthProvider) SignOut(ctx context.Context, token string) error { return nil }

func (m *mockAuthProvider) CurrentUser(ctx context.Context, token string) (*entity.User, error) {
	if m.currentUserFunc != nil {
		return m.currentUserFunc(ctx, token)
	}
	return nil, apperr.ErrUnauthenticated
}

func (m *mockAuthProvider) AcceptInvite(ctx context.Context, in port.AcceptInviteInput) (*entity.User, error) {
	if m.acceptFunc != nil {
		return m.acceptFunc(ctx, in)
	}
	return &entity.User{ID: "u2", Role: entity.RoleManager}, nil
}

func (m *mockAuthProvider) InviteUser(ctx context.Context, email, role, invitedBy string) (*entity.Invite, error) {
	return &entity.Invite{ID: "tok", Email: email, Role: role}, nil
}

func (m *mockAuthProvider) Subscribe(listener func(ctx context.Context, change port.AuthChange)) func() {
	m.listeners = append(m.listeners, listener)
	return func() { m.listeners = nil }
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}
