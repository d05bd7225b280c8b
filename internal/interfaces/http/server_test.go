package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/application/service"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type backend bool

func (b backend) Configured() bool { return bool(b) }

var (
	adminUser = &entity.User{ID: "u-admin", Email: "admin@example.com", Role: entity.RoleAdmin}
	staffUser = &entity.User{ID: "u-staff", Email: "staff@example.com", Role: entity.RoleUser}
)

type fakeAuth struct {
	signInFunc  func(ctx context.Context, email, password string) (*port.AuthSession, error)
	signOutFunc func(ctx context.Context, token string) error
}

func (f *fakeAuth) SignUp(ctx context.Context, in port.SignUpInput) (*entity.User, error) {
	return &entity.User{ID: "new", Email: in.Email, Role: entity.RoleUser}, nil
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*port.AuthSession, error) {
	if f.signInFunc != nil {
		return f.signInFunc(ctx, email, password)
	}
	return &port.AuthSession{User: staffUser, Token: "user-token"}, nil
}

func (f *fakeAuth) SignOut(ctx context.Context, token string) error {
	if f.signOutFunc != nil {
		return f.signOutFunc(ctx, token)
	}
	return nil
}

func (f *fakeAuth) CurrentUser(ctx context.Context, token string) *entity.User {
	switch token {
	case "admin-token":
		return adminUser
	case "user-token":
		return staffUser
	}
	return nil
}

func (f *fakeAuth) AcceptInvite(ctx context.Context, in port.AcceptInviteInput) (*entity.User, error) {
	return nil, apperr.Validation("invite is no longer valid")
}

func (f *fakeAuth) Subscribe(func(ctx context.Context, change port.AuthChange)) func() {
	return func() {}
}

type fakeClaims struct {
	submitFunc func(ctx context.Context, user *entity.User, in service.SubmitClaimInput) (*service.SubmitResult, error)
	listFunc   func(ctx context.Context, user *entity.User, filter service.ClaimFilter) ([]*entity.Claim, error)
	changeFunc func(ctx context.Context, user *entity.User, id string, to lifecycle.Status) (*entity.Claim, error)
}

func (f *fakeClaims) ValidateSubmission(ctx context.Context, in service.SubmitClaimInput) error {
	return nil
}

func (f *fakeClaims) Submit(ctx context.Context, user *entity.User, in service.SubmitClaimInput) (*service.SubmitResult, error) {
	return f.submitFunc(ctx, user, in)
}

func (f *fakeClaims) ListForOwner(ctx context.Context, user *entity.User, filter service.ClaimFilter) ([]*entity.Claim, error) {
	return f.listFunc(ctx, user, filter)
}

func (f *fakeClaims) Stats(ctx context.Context, user *entity.User) (*entity.ClaimStats, error) {
	return &entity.ClaimStats{TotalClaims: 2, ActiveClaims: 1, TotalAmount: decimal.RequireFromString("300.5"), PendingReviews: 1}, nil
}

func (f *fakeClaims) Export(ctx context.Context, user *entity.User, w io.Writer) error {
	_, err := w.Write([]byte("xlsx-bytes"))
	return err
}

func (f *fakeClaims) ExportFormat() (string, string) {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx"
}

func (f *fakeClaims) ChangeStatus(ctx context.Context, user *entity.User, id string, to lifecycle.Status) (*entity.Claim, error) {
	return f.changeFunc(ctx, user, id, to)
}

func (f *fakeClaims) RetryIncomplete(ctx context.Context, limit int) (*service.RetryReport, error) {
	return &service.RetryReport{}, nil
}

type fakeClientClaims struct {
	byCorporateFunc func(ctx context.Context, id string, filter service.ClaimFilter) (*service.ClientView, error)
}

func (f *fakeClientClaims) ByCorporate(ctx context.Context, id string, filter service.ClaimFilter) (*service.ClientView, error) {
	return f.byCorporateFunc(ctx, id, filter)
}

func (f *fakeClientClaims) Stats(ctx context.Context, id string) (*entity.ClaimStats, error) {
	if strings.TrimSpace(id) == "" {
		return nil, service.ErrMissingCorporateID
	}
	return &entity.ClaimStats{}, nil
}

type fakeUsers struct {
	listCalls   int
	updateCalls int
}

func (f *fakeUsers) ListUsers(ctx context.Context) ([]*entity.User, error) {
	f.listCalls++
	return []*entity.User{adminUser, staffUser}, nil
}

func (f *fakeUsers) InviteUser(ctx context.Context, inviter *entity.User, email, role string) (*service.InviteResult, error) {
	if email == "taken@example.com" {
		return nil, apperr.ErrConflict
	}
	return &service.InviteResult{Email: email, Role: role, Link: "http://localhost/accept?token=t1"}, nil
}

func (f *fakeUsers) UpdateRole(ctx context.Context, actor *entity.User, userID, role string) error {
	f.updateCalls++
	return nil
}

func (f *fakeUsers) GetRole(ctx context.Context, userID string) (string, error) {
	if userID == adminUser.ID {
		return entity.RoleAdmin, nil
	}
	return entity.RoleUser, nil
}

func (f *fakeUsers) IsAdmin(ctx context.Context, user *entity.User) bool {
	return user != nil && user.ID == adminUser.ID
}

type fixture struct {
	server  *Server
	claims  *fakeClaims
	clients *fakeClientClaims
	users   *fakeUsers
	auth    *fakeAuth
}

func newFixture(t *testing.T, configured bool) *fixture {
	t.Helper()
	f := &fixture{
		claims:  &fakeClaims{},
		clients: &fakeClientClaims{},
		users:   &fakeUsers{},
		auth:    &fakeAuth{},
	}
	cfg := DefaultServerConfig()
	cfg.SignInBurst = 2
	f.server = NewServer(cfg, Services{
		Auth:         f.auth,
		Claims:       f.claims,
		ClientClaims: f.clients,
		Users:        f.users,
		Backend:      backend(configured),
		Corporates:   []entity.Corporate{{Value: "Acme Corp", Label: "Acme Corp"}},
	}, nopLogger{})
	return f
}

func (f *fixture) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func sampleClaim() *entity.Claim {
	return &entity.Claim{
		ID:                  "c1",
		CreatedAt:           time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		UpdatedAt:           time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		DateReceived:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CorporateName:       "Acme Corp",
		EmployeeName:        "Jane Doe",
		ClaimAmount:         decimal.RequireFromString("150.5"),
		ClaimType:           entity.ClaimTypeDental,
		ReimbursementMethod: entity.ReimbursementCheque,
		CurrentStatus:       lifecycle.StatusReceived,
		FileURLs:            nil,
		DocumentsStatus:     entity.DocumentsNone,
		UserID:              staffUser.ID,
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backend_configured":true`)
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t, true)
	f.claims.listFunc = func(ctx context.Context, user *entity.User, filter service.ClaimFilter) ([]*entity.Claim, error) {
		return []*entity.Claim{}, nil
	}

	w := f.do(http.MethodGet, "/api/claims", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decode(t, w).Success)

	w = f.do(http.MethodGet, "/api/claims", "bogus", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/claims", "user-token", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUsers_NonAdminForbidden(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodGet, "/api/users", "user-token", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, f.users.listCalls)

	w = f.do(http.MethodPut, "/api/users/u-staff/role", "user-token", strings.NewReader(`{"role":"admin"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, f.users.updateCalls)
}

func TestUsers_Admin(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodGet, "/api/users", "admin-token", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.users.listCalls)
	assert.Contains(t, w.Body.String(), "staff@example.com")

	w = f.do(http.MethodPut, "/api/users/u-staff/role", "admin-token", strings.NewReader(`{"role":"manager"}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.users.updateCalls)

	w = f.do(http.MethodPost, "/api/users/invite", "admin-token", strings.NewReader(`{"email":"new@example.com"}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token=t1")

	w = f.do(http.MethodPost, "/api/users/invite", "admin-token", strings.NewReader(`{"email":"taken@example.com"}`), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnconfiguredBackend_GuestPassesThrough(t *testing.T) {
	f := newFixture(t, false)
	var seen *entity.User
	f.claims.listFunc = func(ctx context.Context, user *entity.User, filter service.ClaimFilter) ([]*entity.Claim, error) {
		seen = user
		return []*entity.Claim{}, nil
	}

	w := f.do(http.MethodGet, "/api/claims", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "guest", seen.ID)

	w = f.do(http.MethodGet, "/api/users", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	f.claims.submitFunc = func(ctx context.Context, user *entity.User, in service.SubmitClaimInput) (*service.SubmitResult, error) {
		return nil, apperr.Unavailable("Database")
	}
	body, ct := multipartBody(t, map[string]string{"claim_amount": "10"}, nil)
	w = f.do(http.MethodPost, "/api/claims", "", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Database service is not available. Please check your configuration.", decode(t, w).Error)
}

func TestListClaims_DecimalAndFilter(t *testing.T) {
	f := newFixture(t, true)
	var gotFilter service.ClaimFilter
	f.claims.listFunc = func(ctx context.Context, user *entity.User, filter service.ClaimFilter) ([]*entity.Claim, error) {
		gotFilter = filter
		return []*entity.Claim{sampleClaim()}, nil
	}

	w := f.do(http.MethodGet, "/api/claims?search=jane&status=All+Statuses", "user-token", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane", gotFilter.Search)
	assert.Equal(t, service.AllStatuses, gotFilter.Status)

	body := w.Body.String()
	assert.Contains(t, body, `"claim_amount":150.50`)
	assert.Contains(t, body, `"date_received":"2024-03-01"`)
	assert.Contains(t, body, `"file_urls":[]`)
	assert.Contains(t, body, `"documents_status":"none"`)
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSubmitClaim(t *testing.T) {
	f := newFixture(t, true)
	var got service.SubmitClaimInput
	f.claims.submitFunc = func(ctx context.Context, user *entity.User, in service.SubmitClaimInput) (*service.SubmitResult, error) {
		got = in
		return &service.SubmitResult{ClaimID: "c1", DocumentsStatus: entity.DocumentsAttached}, nil
	}

	body, ct := multipartBody(t, map[string]string{
		"date_received":        "2024-03-01",
		"corporate_name":       "Acme Corp",
		"employee_name":        "Jane Doe",
		"claim_amount":         "150.50",
		"claim_type":           entity.ClaimTypeDental,
		"reimbursement_method": entity.ReimbursementCheque,
	}, map[string][]byte{"receipt.pdf": []byte("%PDF-1.4")})

	w := f.do(http.MethodPost, "/api/claims", "user-token", body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "c1", resp.ClaimID)
	assert.Equal(t, entity.DocumentsAttached, resp.DocumentsStatus)

	assert.Equal(t, "150.50", got.ClaimAmount)
	assert.Equal(t, "Acme Corp", got.CorporateName)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "receipt.pdf", got.Files[0].Name)
	assert.Equal(t, []byte("%PDF-1.4"), got.Files[0].Content)
}

func TestSubmitClaim_ValidationError(t *testing.T) {
	f := newFixture(t, true)
	f.claims.submitFunc = func(ctx context.Context, user *entity.User, in service.SubmitClaimInput) (*service.SubmitResult, error) {
		return nil, apperr.Validation("Claim amount must be greater than 0")
	}

	body, ct := multipartBody(t, map[string]string{"claim_amount": "-1"}, nil)
	w := f.do(http.MethodPost, "/api/claims", "user-token", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Claim amount must be greater than 0", decode(t, w).Error)
}

func TestSubmitClaim_Incomplete(t *testing.T) {
	f := newFixture(t, true)
	f.claims.submitFunc = func(ctx context.Context, user *entity.User, in service.SubmitClaimInput) (*service.SubmitResult, error) {
		return &service.SubmitResult{ClaimID: "c2", DocumentsStatus: entity.DocumentsIncomplete, Incomplete: true, Warning: service.IncompleteWarning}, nil
	}

	body, ct := multipartBody(t, map[string]string{"claim_amount": "10"}, nil)
	w := f.do(http.MethodPost, "/api/claims", "user-token", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), service.IncompleteWarning)
}

func TestExportClaims(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(http.MethodGet, "/api/claims/export", "user-token", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "xlsx-bytes", w.Body.String())
}

func TestClaimStats(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(http.MethodGet, "/api/claims/stats", "user-token", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_amount":300.50`)
}

func TestChangeClaimStatus(t *testing.T) {
	f := newFixture(t, true)
	f.claims.changeFunc = func(ctx context.Context, user *entity.User, id string, to lifecycle.Status) (*entity.Claim, error) {
		return nil, lifecycle.ErrInvalidTransition
	}

	w := f.do(http.MethodPut, "/api/claims/c1/status", "user-token", strings.NewReader(`{"status":"Sent to IGI"}`), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)

	f.claims.changeFunc = func(ctx context.Context, user *entity.User, id string, to lifecycle.Status) (*entity.Claim, error) {
		c := sampleClaim()
		c.ID = id
		c.CurrentStatus = to
		return c, nil
	}
	w = f.do(http.MethodPut, "/api/claims/c1/status", "user-token", strings.NewReader(`{"status":"Sent to IGI"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_status":"Sent to IGI"`)
}

func TestClientClaims(t *testing.T) {
	f := newFixture(t, true)
	var gotFilter service.ClaimFilter
	f.clients.byCorporateFunc = func(ctx context.Context, id string, filter service.ClaimFilter) (*service.ClientView, error) {
		gotFilter = filter
		if strings.TrimSpace(id) == "" {
			return nil, service.ErrMissingCorporateID
		}
		return &service.ClientView{
			CorporateName: "Acme Corp",
			Claims:        []entity.ClientClaim{sampleClaim().ToClient()},
			Phase:         "fuzzy",
		}, nil
	}

	w := f.do(http.MethodGet, "/api/client/claims", "user-token", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing Corporate ID", decode(t, w).Error)

	w = f.do(http.MethodGet, "/api/client/claims?corporateId=acme", "user-token", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"corporate_name":"Acme Corp"`)
	assert.Contains(t, body, `"match":"fuzzy"`)
	assert.NotContains(t, body, "user_id")

	w = f.do(http.MethodGet, "/api/client/claims?corporateId=acme&search=jane&status=Sent+to+IGI", "user-token", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ClaimFilter{Search: "jane", Status: "Sent to IGI"}, gotFilter)

	w = f.do(http.MethodGet, "/api/client/claims/stats", "user-token", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignIn_RateLimited(t *testing.T) {
	f := newFixture(t, true)
	payload := `{"email":"staff@example.com","password":"secret123"}`

	for i := 0; i < 2; i++ {
		w := f.do(http.MethodPost, "/api/auth/signin", "", strings.NewReader(payload), "application/json")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := f.do(http.MethodPost, "/api/auth/signin", "", strings.NewReader(payload), "application/json")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSignIn_BadCredentials(t *testing.T) {
	f := newFixture(t, true)
	f.auth.signInFunc = func(ctx context.Context, email, password string) (*port.AuthSession, error) {
		return nil, apperr.ErrUnauthenticated
	}
	w := f.do(http.MethodPost, "/api/auth/signin", "", strings.NewReader(`{"email":"a@b.c","password":"x"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/auth/signin", "", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignOut(t *testing.T) {
	f := newFixture(t, true)
	var revoked string
	f.auth.signOutFunc = func(ctx context.Context, token string) error {
		revoked = token
		return nil
	}

	w := f.do(http.MethodPost, "/api/auth/signout", "user-token", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-token", revoked)

	revoked = ""
	w = f.do(http.MethodPost, "/api/auth/signout", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, revoked)
}

func TestMe(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(http.MethodGet, "/api/auth/me", "admin-token", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

func TestGuardEndpoint(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name     string
		path     string
		token    string
		contains string
	}{
		{"anonymous dashboard", "/dashboard", "", `"redirect":"/login"`},
		{"signed in login", "/login", "user-token", `"redirect":"/dashboard"`},
		{"staff on users", "/users", "user-token", `"redirect":"/dashboard"`},
		{"admin on users", "/users", "admin-token", `"allow":true`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, "/api/guard?path="+tt.path, tt.token, nil, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}

	unconfigured := newFixture(t, false)
	w := unconfigured.do(http.MethodGet, "/api/guard?path=/users", "", nil, "")
	assert.Contains(t, w.Body.String(), `"allow":true`)
}

func TestListCorporates(t *testing.T) {
	f := newFixture(t, true)
	w := f.do(http.MethodGet, "/api/corporates", "user-token", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Acme Corp")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Validation("x"), http.StatusBadRequest},
		{lifecycle.ErrInvalidStatus, http.StatusBadRequest},
		{apperr.ErrUnauthenticated, http.StatusUnauthorized},
		{apperr.ErrForbidden, http.StatusForbidden},
		{apperr.ErrNotFound, http.StatusNotFound},
		{apperr.ErrConflict, http.StatusConflict},
		{lifecycle.ErrGuardFailed, http.StatusConflict},
		{apperr.Unavailable("Storage"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(0.001, 1)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
	assert.Equal(t, 2, l.Len())

	unlimited := NewIPRateLimiter(0, 1)
	for i := 0; i < 5; i++ {
		assert.True(t, unlimited.Allow("10.0.0.1"))
	}
}
