package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/event"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
	"github.com/garyjia/claimdesk/pkg/utils"
)

// DateLayout is the wire format of date_received
const DateLayout = "2006-01-02"

// AllStatuses is the status filter value meaning "no filter"
const AllStatuses = "All Statuses"

// IncompleteWarning is reported when a claim was saved without its documents
const IncompleteWarning = "Claim saved, but its documents could not be uploaded. They will be retried automatically."

// MaxDocumentAttempts is how many failed retries a claim gets before its
// documents are marked failed
const MaxDocumentAttempts = 5

// SubmitClaimInput is the raw claim form
type SubmitClaimInput struct {
	DateReceived        string
	CorporateName       string
	EmployeeName        string
	EmployeeID          string
	ClaimAmount         string
	ClaimType           string
	ReimbursementMethod string
	CurrentStatus       string
	Notes               string
	Files               []port.StagedFile
}

// SubmitResult reports where a submission ended up
type SubmitResult struct {
	ClaimID         string `json:"claim_id"`
	DocumentsStatus string `json:"documents_status"`
	Incomplete      bool   `json:"incomplete"`
	Warning         string `json:"warning,omitempty"`
}

// ClaimFilter narrows an owner's claim list
type ClaimFilter struct {
	Search string
	Status string
}

// RetryReport summarizes one pass over incomplete claims
type RetryReport struct {
	Attempted int
	Attached  int
	Failed    int
	// Skipped counts claims with nothing staged; they are marked failed
	Skipped int
	// Abandoned counts claims that reached MaxDocumentAttempts this pass
	Abandoned int
}

// ClaimService handles claim submission and the owner's claim views
type ClaimService interface {
	// ValidateSubmission checks the form and files without touching any backend
	ValidateSubmission(ctx context.Context, in SubmitClaimInput) error
	Submit(ctx context.Context, user *entity.User, in SubmitClaimInput) (*SubmitResult, error)
	ListForOwner(ctx context.Context, user *entity.User, filter ClaimFilter) ([]*entity.Claim, error)
	Stats(ctx context.Context, user *entity.User) (*entity.ClaimStats, error)
	Export(ctx context.Context, user *entity.User, w io.Writer) error
	ExportFormat() (contentType, extension string)
	ChangeStatus(ctx context.Context, user *entity.User, claimID string, to lifecycle.Status) (*entity.Claim, error)
	// RetryIncomplete re-uploads staged documents of up to limit incomplete claims
	RetryIncomplete(ctx context.Context, limit int) (*RetryReport, error)
}

type claimServiceImpl struct {
	claims      port.ClaimRepository
	store       port.ObjectStorage
	staging     port.StagingArea
	inspector   port.DocumentInspector
	exporter    port.ReportExporter
	transitions *lifecycle.Table
	events      port.EventPublisher
	logger      Logger
	now         func() time.Time
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claims port.ClaimRepository,
	store port.ObjectStorage,
	staging port.StagingArea,
	inspector port.DocumentInspector,
	exporter port.ReportExporter,
	transitions *lifecycle.Table,
	events port.EventPublisher,
	logger Logger,
) ClaimService {
	if transitions == nil {
		transitions = lifecycle.Empty()
	}
	return &claimServiceImpl{
		claims:      claims,
		store:       store,
		staging:     staging,
		inspector:   inspector,
		exporter:    exporter,
		transitions: transitions,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// ValidateSubmission checks the form and files without touching any backend
func (s *claimServiceImpl) ValidateSubmission(ctx context.Context, in SubmitClaimInput) error {
	_, _, err := s.prepare(ctx, in)
	return err
}

// prepare validates the form and returns the claim draft with its files
func (s *claimServiceImpl) prepare(ctx context.Context, in SubmitClaimInput) (*entity.Claim, []port.StagedFile, error) {
	if strings.TrimSpace(in.DateReceived) == "" {
		return nil, nil, apperr.Validation("date received is required")
	}
	date, err := time.Parse(DateLayout, strings.TrimSpace(in.DateReceived))
	if err != nil {
		return nil, nil, apperr.Validation("date received must be in YYYY-MM-DD format")
	}

	corporate := utils.SanitizeString(in.CorporateName)
	if corporate == "" {
		return nil, nil, apperr.Validation("corporate name is required")
	}
	employee := utils.SanitizeString(in.EmployeeName)
	if employee == "" {
		return nil, nil, apperr.Validation("employee name is required")
	}

	amount, err := utils.ParseAmount(in.ClaimAmount)
	if err != nil {
		return nil, nil, apperr.Validation("%s", err.Error())
	}

	if strings.TrimSpace(in.ClaimType) == "" {
		return nil, nil, apperr.Validation("claim type is required")
	}
	if !entity.IsClaimType(in.ClaimType) {
		return nil, nil, apperr.Validation("unknown claim type: %s", in.ClaimType)
	}
	if !entity.IsReimbursementMethod(in.ReimbursementMethod) {
		return nil, nil, apperr.Validation("reimbursement method must be %s or %s",
			entity.ReimbursementCheque, entity.ReimbursementBankTransfer)
	}

	status := lifecycle.InitialStatus
	if in.CurrentStatus != "" && lifecycle.Status(in.CurrentStatus) != lifecycle.InitialStatus {
		return nil, nil, apperr.Validation("a new claim must start as %q", lifecycle.InitialStatus)
	}

	if len(in.Files) > entity.MaxClaimFiles {
		return nil, nil, apperr.Validation("at most %d files can be attached", entity.MaxClaimFiles)
	}
	for _, f := range in.Files {
		if _, err := s.inspector.Inspect(ctx, f.Name, f.Content); err != nil {
			return nil, nil, err
		}
	}

	claim := &entity.Claim{
		DateReceived:        date,
		CorporateName:       corporate,
		EmployeeName:        employee,
		EmployeeID:          optional(in.EmployeeID),
		ClaimAmount:         amount,
		ClaimType:           in.ClaimType,
		ReimbursementMethod: in.ReimbursementMethod,
		CurrentStatus:       status,
		FileURLs:            []string{},
		Notes:               optional(in.Notes),
	}
	return claim, in.Files, nil
}

// Submit inserts the claim, then stages and uploads its documents. A failed
// upload leaves the claim flagged incomplete and is not reported as an error.
func (s *claimServiceImpl) Submit(ctx context.Context, user *entity.User, in SubmitClaimInput) (*SubmitResult, error) {
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}

	claim, files, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	claim.ID = uuid.NewString()
	claim.UserID = user.ID
	claim.DocumentsStatus = entity.DocumentsNone
	if len(files) > 0 {
		claim.DocumentsStatus = entity.DocumentsPending
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		s.logger.Error("Failed to insert claim", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("Failed to insert claim: %w", err)
	}
	publish(ctx, s.events, event.NewEvent(event.TypeClaimSubmitted, claim.ID, user.ID, map[string]interface{}{
		"corporate_name": claim.CorporateName,
		"files":          len(files),
	}))
	s.logger.Info("Claim submitted", "claim_id", claim.ID, "user_id", user.ID, "files", len(files))

	result := &SubmitResult{ClaimID: claim.ID, DocumentsStatus: claim.DocumentsStatus}
	if len(files) == 0 {
		return result, nil
	}

	if err := s.staging.Stage(ctx, claim.ID, files); err != nil {
		s.logger.Error("Failed to stage claim documents", "error", err, "claim_id", claim.ID)
		s.markIncomplete(ctx, claim.ID, user.ID, err)
		return incomplete(result), nil
	}

	if err := s.attach(ctx, claim.ID, files); err != nil {
		s.markIncomplete(ctx, claim.ID, user.ID, err)
		return incomplete(result), nil
	}

	if err := s.staging.Clear(ctx, claim.ID); err != nil {
		s.logger.Error("Failed to clear staged documents", "error", err, "claim_id", claim.ID)
	}
	publish(ctx, s.events, event.NewEvent(event.TypeClaimDocumentsAttached, claim.ID, user.ID, nil))

	result.DocumentsStatus = entity.DocumentsAttached
	return result, nil
}

// attach uploads files in order and patches the claim with their URLs. On
// failure every object uploaded by this call is deleted again.
func (s *claimServiceImpl) attach(ctx context.Context, claimID string, files []port.StagedFile) error {
	stamp := s.now().UnixMilli()
	uploaded := make([]string, 0, len(files))
	urls := make([]string, 0, len(files))

	rollback := func() {
		for _, path := range uploaded {
			if err := s.store.Delete(ctx, path); err != nil {
				s.logger.Error("Failed to delete orphaned document", "error", err, "path", path)
			}
		}
	}

	for i, f := range files {
		path := DocumentPath(claimID, stamp, i, f.Name)
		if err := s.store.Upload(ctx, path, f.Content); err != nil {
			s.logger.Error("Failed to upload claim document", "error", err, "claim_id", claimID, "path", path)
			rollback()
			return fmt.Errorf("upload %s: %w", f.Name, err)
		}
		uploaded = append(uploaded, path)
		urls = append(urls, s.store.PublicURL(path))
	}

	if err := s.claims.AttachDocuments(ctx, claimID, urls, entity.DocumentsAttached); err != nil {
		s.logger.Error("Failed to attach documents to claim", "error", err, "claim_id", claimID)
		rollback()
		return fmt.Errorf("attach documents: %w", err)
	}
	return nil
}

func (s *claimServiceImpl) markIncomplete(ctx context.Context, claimID, actorID string, cause error) {
	if err := s.claims.SetDocumentsStatus(ctx, claimID, entity.DocumentsIncomplete); err != nil {
		s.logger.Error("Failed to flag claim as incomplete", "error", err, "claim_id", claimID)
	}
	publishAsync(ctx, s.events, event.NewEvent(event.TypeClaimDocumentsIncomplete, claimID, actorID, map[string]interface{}{
		"error": cause.Error(),
	}))
}

// ListForOwner returns the user's claims, newest first, filtered in process
func (s *claimServiceImpl) ListForOwner(ctx context.Context, user *entity.User, filter ClaimFilter) ([]*entity.Claim, error) {
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}
	claims, err := s.claims.ListByOwner(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to list claims", "error", err, "user_id", user.ID)
		return nil, err
	}
	return filter.Apply(claims), nil
}

// Stats computes the dashboard counters over the user's claims
func (s *claimServiceImpl) Stats(ctx context.Context, user *entity.User) (*entity.ClaimStats, error) {
	claims, err := s.ListForOwner(ctx, user, ClaimFilter{})
	if err != nil {
		return nil, err
	}
	return ComputeStats(claims), nil
}

// Export writes the user's claims as a report
func (s *claimServiceImpl) Export(ctx context.Context, user *entity.User, w io.Writer) error {
	claims, err := s.ListForOwner(ctx, user, ClaimFilter{})
	if err != nil {
		return err
	}
	if err := s.exporter.WriteClaims(w, claims); err != nil {
		s.logger.Error("Failed to export claims", "error", err, "user_id", user.ID)
		return fmt.Errorf("export claims: %w", err)
	}
	return nil
}

func (s *claimServiceImpl) ExportFormat() (string, string) {
	return s.exporter.ContentType(), s.exporter.FileExtension()
}

// ChangeStatus moves a claim along the configured transition table. Owners
// and staff with the manager or admin role may move a claim.
func (s *claimServiceImpl) ChangeStatus(ctx context.Context, user *entity.User, claimID string, to lifecycle.Status) (*entity.Claim, error) {
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if !to.IsValid() {
		return nil, apperr.Validation("unknown status: %s", to)
	}

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.UserID != user.ID && user.Role != entity.RoleAdmin && user.Role != entity.RoleManager {
		return nil, fmt.Errorf("%w: claim belongs to another user", apperr.ErrForbidden)
	}

	from := claim.CurrentStatus
	next, err := s.transitions.Move(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if err := s.claims.UpdateStatus(ctx, claimID, next); err != nil {
		s.logger.Error("Failed to update claim status", "error", err, "claim_id", claimID)
		return nil, err
	}

	claim.CurrentStatus = next
	publish(ctx, s.events, event.NewEvent(event.TypeClaimStatusChanged, claimID, user.ID, map[string]interface{}{
		"from": string(from),
		"to":   string(next),
	}))
	s.logger.Info("Claim status changed", "claim_id", claimID, "from", from, "to", next)
	return claim, nil
}

// RetryIncomplete re-uploads staged documents of up to limit incomplete claims
func (s *claimServiceImpl) RetryIncomplete(ctx context.Context, limit int) (*RetryReport, error) {
	claims, err := s.claims.ListByDocumentsStatus(ctx, entity.DocumentsIncomplete, limit)
	if err != nil {
		return nil, fmt.Errorf("list incomplete claims: %w", err)
	}

	report := &RetryReport{}
	for _, claim := range claims {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		files, err := s.staging.Load(ctx, claim.ID)
		if err != nil {
			s.logger.Error("Failed to load staged documents", "error", err, "claim_id", claim.ID)
			report.Failed++
			s.recordFailedAttempt(ctx, claim.ID, report)
			continue
		}
		if len(files) == 0 {
			s.logger.Error("No staged documents to retry, marking claim failed", "claim_id", claim.ID)
			if err := s.claims.SetDocumentsStatus(ctx, claim.ID, entity.DocumentsFailed); err != nil {
				s.logger.Error("Failed to mark claim documents failed", "error", err, "claim_id", claim.ID)
			}
			report.Skipped++
			continue
		}

		report.Attempted++
		if err := s.attach(ctx, claim.ID, files); err != nil {
			report.Failed++
			s.recordFailedAttempt(ctx, claim.ID, report)
			continue
		}
		if err := s.staging.Clear(ctx, claim.ID); err != nil {
			s.logger.Error("Failed to clear staged documents", "error", err, "claim_id", claim.ID)
		}
		report.Attached++
		publishAsync(ctx, s.events, event.NewEvent(event.TypeClaimDocumentsAttached, claim.ID, claim.UserID, map[string]interface{}{
			"retried": true,
		}))
	}

	if len(claims) > 0 {
		s.logger.Info("Retried incomplete claims",
			"attempted", report.Attempted, "attached", report.Attached,
			"failed", report.Failed, "skipped", report.Skipped, "abandoned", report.Abandoned)
	}
	return report, nil
}

// recordFailedAttempt moves the claim to the back of the queue and gives up
// on it once MaxDocumentAttempts is reached. Staged files are kept.
func (s *claimServiceImpl) recordFailedAttempt(ctx context.Context, claimID string, report *RetryReport) {
	attempts, err := s.claims.RecordDocumentsAttempt(ctx, claimID)
	if err != nil {
		s.logger.Error("Failed to record documents attempt", "error", err, "claim_id", claimID)
		return
	}
	if attempts < MaxDocumentAttempts {
		return
	}
	if err := s.claims.SetDocumentsStatus(ctx, claimID, entity.DocumentsFailed); err != nil {
		s.logger.Error("Failed to mark claim documents failed", "error", err, "claim_id", claimID)
		return
	}
	report.Abandoned++
	s.logger.Error("Giving up on claim documents", "claim_id", claimID, "attempts", attempts)
}

// Apply filters claims by employee name substring and exact status
func (f ClaimFilter) Apply(claims []*entity.Claim) []*entity.Claim {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	status := strings.TrimSpace(f.Status)
	if status == AllStatuses {
		status = ""
	}
	if search == "" && status == "" {
		return claims
	}

	out := make([]*entity.Claim, 0, len(claims))
	for _, c := range claims {
		if search != "" && !strings.Contains(strings.ToLower(c.EmployeeName), search) {
			continue
		}
		if status != "" && string(c.CurrentStatus) != status {
			continue
		}
		out = append(out, c)
	}
	return out
}

// DocumentPath is the object key of the i-th document of a claim
func DocumentPath(claimID string, unixMillis int64, i int, name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return fmt.Sprintf("%s/%d-%d.%s", claimID, unixMillis, i, ext)
}

func incomplete(r *SubmitResult) *SubmitResult {
	r.DocumentsStatus = entity.DocumentsIncomplete
	r.Incomplete = true
	r.Warning = IncompleteWarning
	return r
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
