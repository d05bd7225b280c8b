package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claimdesk/internal/application/service"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// ClientClaimResponse represents a claim as an organization sees it
type ClientClaimResponse struct {
	ID                  string      `json:"id"`
	CreatedAt           string      `json:"created_at"`
	UpdatedAt           string      `json:"updated_at"`
	DateReceived        string      `json:"date_received"`
	CorporateName       string      `json:"corporate_name"`
	EmployeeName        string      `json:"employee_name"`
	EmployeeID          *string     `json:"employee_id"`
	ClaimAmount         json.Number `json:"claim_amount"`
	ClaimType           string      `json:"claim_type"`
	ReimbursementMethod string      `json:"reimbursement_method"`
	CurrentStatus       string      `json:"current_status"`
	FileURLs            []string    `json:"file_urls"`
	Notes               *string     `json:"notes"`
}

// ClaimResponse represents an owner's claim in API responses
type ClaimResponse struct {
	ClientClaimResponse
	UserID          string `json:"user_id"`
	DocumentsStatus string `json:"documents_status"`
}

// StatsResponse represents the dashboard stat cards
type StatsResponse struct {
	TotalClaims    int         `json:"total_claims"`
	ActiveClaims   int         `json:"active_claims"`
	TotalAmount    json.Number `json:"total_amount"`
	PendingReviews int         `json:"pending_reviews"`
}

// ClientViewResponse represents the organization dashboard
type ClientViewResponse struct {
	CorporateName string                `json:"corporate_name"`
	Match         string                `json:"match,omitempty"`
	Claims        []ClientClaimResponse `json:"claims"`
}

// SubmitResponse is the flat submit result
type SubmitResponse struct {
	Success         bool   `json:"success"`
	ClaimID         string `json:"claim_id"`
	DocumentsStatus string `json:"documents_status"`
	Warning         string `json:"warning,omitempty"`
}

// MeResponse is the signed-in user with the resolved role
type MeResponse struct {
	User *entity.User `json:"user"`
	Role string       `json:"role"`
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toClientClaimResponse(c entity.ClientClaim) ClientClaimResponse {
	urls := c.FileURLs
	if urls == nil {
		urls = []string{}
	}
	return ClientClaimResponse{
		ID:                  c.ID,
		CreatedAt:           timestamp(c.CreatedAt),
		UpdatedAt:           timestamp(c.UpdatedAt),
		DateReceived:        c.DateReceived.UTC().Format(service.DateLayout),
		CorporateName:       c.CorporateName,
		EmployeeName:        c.EmployeeName,
		EmployeeID:          c.EmployeeID,
		ClaimAmount:         money(c.ClaimAmount),
		ClaimType:           c.ClaimType,
		ReimbursementMethod: c.ReimbursementMethod,
		CurrentStatus:       c.CurrentStatus.String(),
		FileURLs:            urls,
		Notes:               c.Notes,
	}
}

func toClaimResponse(c *entity.Claim) ClaimResponse {
	return ClaimResponse{
		ClientClaimResponse: toClientClaimResponse(c.ToClient()),
		UserID:              c.UserID,
		DocumentsStatus:     c.DocumentsStatus,
	}
}

func toClaimResponses(claims []*entity.Claim) []ClaimResponse {
	out := make([]ClaimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimResponse(c))
	}
	return out
}

func toStatsResponse(s *entity.ClaimStats) StatsResponse {
	return StatsResponse{
		TotalClaims:    s.TotalClaims,
		ActiveClaims:   s.ActiveClaims,
		TotalAmount:    money(s.TotalAmount),
		PendingReviews: s.PendingReviews,
	}
}

func toClientViewResponse(v *service.ClientView) ClientViewResponse {
	claims := make([]ClientClaimResponse, 0, len(v.Claims))
	for _, c := range v.Claims {
		claims = append(claims, toClientClaimResponse(c))
	}
	return ClientViewResponse{
		CorporateName: v.CorporateName,
		Match:         v.Phase,
		Claims:        claims,
	}
}
