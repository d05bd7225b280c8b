package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/claimdesk/internal/application/lookup"
	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// ErrMissingCorporateID is returned when the client view is opened without an organization
var ErrMissingCorporateID = fmt.Errorf("%w: Missing Corporate ID", apperr.ErrValidation)

// ClientView is what an organization sees of its claims
type ClientView struct {
	CorporateName string               `json:"corporate_name"`
	Claims        []entity.ClientClaim `json:"claims"`
	Phase         string               `json:"match,omitempty"`
}

// ClientClaimService serves the read-only organization dashboard
type ClientClaimService interface {
	// ByCorporate applies filter to the rows only; the display name comes from the unfiltered match
	ByCorporate(ctx context.Context, corporateID string, filter ClaimFilter) (*ClientView, error)
	Stats(ctx context.Context, corporateID string) (*entity.ClaimStats, error)
}

type clientClaimServiceImpl struct {
	strategy *lookup.Strategy[*entity.Claim]
	logger   Logger
}

// NewClientClaimService creates a new ClientClaimService matching the
// corporate name exactly first, then as a case-insensitive substring
func NewClientClaimService(claims port.ClaimRepository, logger Logger) ClientClaimService {
	return &clientClaimServiceImpl{
		strategy: lookup.ExactThenFuzzy[*entity.Claim](claims.ListByCorporateExact, claims.ListByCorporateLike),
		logger:   logger,
	}
}

func (s *clientClaimServiceImpl) find(ctx context.Context, corporateID string) (lookup.Result[*entity.Claim], error) {
	key := strings.TrimSpace(corporateID)
	if key == "" {
		return lookup.Result[*entity.Claim]{}, ErrMissingCorporateID
	}
	res, err := s.strategy.Run(ctx, key)
	if err != nil {
		s.logger.Error("Failed to look up corporate claims", "error", err, "corporate_id", key)
		return res, err
	}
	return res, nil
}

// ByCorporate returns the organization's claims without owner ids. The
// display name is the first row's corporate name, or the input when nothing matched.
func (s *clientClaimServiceImpl) ByCorporate(ctx context.Context, corporateID string, filter ClaimFilter) (*ClientView, error) {
	res, err := s.find(ctx, corporateID)
	if err != nil {
		return nil, err
	}

	view := &ClientView{
		CorporateName: corporateID,
		Claims:        make([]entity.ClientClaim, 0, len(res.Items)),
		Phase:         res.Phase,
	}
	if res.Matched() {
		view.CorporateName = res.Items[0].CorporateName
	}
	for _, c := range filter.Apply(res.Items) {
		view.Claims = append(view.Claims, c.ToClient())
	}
	return view, nil
}

// Stats computes the dashboard counters over the organization's claims
func (s *clientClaimServiceImpl) Stats(ctx context.Context, corporateID string) (*entity.ClaimStats, error) {
	res, err := s.find(ctx, corporateID)
	if err != nil {
		return nil, err
	}
	return ComputeStats(res.Items), nil
}
