package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
)

// Claim is one reimbursement claim submitted by a staff user
type Claim struct {
	ID                  string           `json:"id"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	DateReceived        time.Time        `json:"date_received"`
	CorporateName       string           `json:"corporate_name"`
	EmployeeName        string           `json:"employee_name"`
	EmployeeID          *string          `json:"employee_id,omitempty"`
	ClaimAmount         decimal.Decimal  `json:"claim_amount"`
	ClaimType           string           `json:"claim_type"`
	ReimbursementMethod string           `json:"reimbursement_method"`
	CurrentStatus       lifecycle.Status `json:"current_status"`
	FileURLs            []string         `json:"file_urls"`
	DocumentsStatus     string           `json:"documents_status"`
	Notes               *string          `json:"notes,omitempty"`
	UserID              string           `json:"user_id"`
}

// ClientClaim is the organization-facing view of a claim. It never carries the owner id.
type ClientClaim struct {
	ID                  string           `json:"id"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	DateReceived        time.Time        `json:"date_received"`
	CorporateName       string           `json:"corporate_name"`
	EmployeeName        string           `json:"employee_name"`
	EmployeeID          *string          `json:"employee_id,omitempty"`
	ClaimAmount         decimal.Decimal  `json:"claim_amount"`
	ClaimType           string           `json:"claim_type"`
	ReimbursementMethod string           `json:"reimbursement_method"`
	CurrentStatus       lifecycle.Status `json:"current_status"`
	FileURLs            []string         `json:"file_urls"`
	Notes               *string          `json:"notes,omitempty"`
}

// ToClient strips owner information from the claim
func (c *Claim) ToClient() ClientClaim {
	urls := make([]string, len(c.FileURLs))
	copy(urls, c.FileURLs)
	return ClientClaim{
		ID:                  c.ID,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
		DateReceived:        c.DateReceived,
		CorporateName:       c.CorporateName,
		EmployeeName:        c.EmployeeName,
		EmployeeID:          c.EmployeeID,
		ClaimAmount:         c.ClaimAmount,
		ClaimType:           c.ClaimType,
		ReimbursementMethod: c.ReimbursementMethod,
		CurrentStatus:       c.CurrentStatus,
		FileURLs:            urls,
		Notes:               c.Notes,
	}
}

// ClaimStats are the dashboard counters over a set of claims
type ClaimStats struct {
	TotalClaims    int             `json:"total_claims"`
	ActiveClaims   int             `json:"active_claims"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PendingReviews int             `json:"pending_reviews"`
}

// Corporate is one entry in the corporate directory
type Corporate struct {
	Value string `json:"value" mapstructure:"value"`
	Label string `json:"label" mapstructure:"label"`
}
