package service

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
)

// ComputeStats derives the dashboard counters from a set of claims
func ComputeStats(claims []*entity.Claim) *entity.ClaimStats {
	stats := &entity.ClaimStats{TotalAmount: decimal.Zero}
	for _, c := range claims {
		stats.TotalClaims++
		stats.TotalAmount = stats.TotalAmount.Add(c.ClaimAmount)
		if c.CurrentStatus.IsActive() {
			stats.ActiveClaims++
		}
		if c.CurrentStatus == lifecycle.StatusReceived {
			stats.PendingReviews++
		}
	}
	return stats
}
