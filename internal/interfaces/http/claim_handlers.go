package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/application/service"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
)

// StatusChangeRequest moves a claim to another status
type StatusChangeRequest struct {
	Status string `json:"status" binding:"required"`
}

// SubmitClaim handles POST /api/claims (multipart/form-data)
func (h *Handlers) SubmitClaim(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "Upload is too large"})
			return
		}
		badRequest(c, "Invalid form data")
		return
	}

	in := service.SubmitClaimInput{
		DateReceived:        c.PostForm("date_received"),
		CorporateName:       c.PostForm("corporate_name"),
		EmployeeName:        c.PostForm("employee_name"),
		EmployeeID:          c.PostForm("employee_id"),
		ClaimAmount:         c.PostForm("claim_amount"),
		ClaimType:           c.PostForm("claim_type"),
		ReimbursementMethod: c.PostForm("reimbursement_method"),
		CurrentStatus:       c.PostForm("current_status"),
		Notes:               c.PostForm("notes"),
	}

	headers := form.File["files"]
	if len(headers) > entity.MaxClaimFiles {
		badRequest(c, fmt.Sprintf("At most %d files can be attached", entity.MaxClaimFiles))
		return
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "Failed to read uploaded file")
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			badRequest(c, "Failed to read uploaded file")
			return
		}
		in.Files = append(in.Files, port.StagedFile{Name: fh.Filename, Content: content})
	}

	result, err := h.services.Claims.Submit(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.fail(c, err, "Failed to submit claim")
		return
	}

	c.JSON(http.StatusOK, SubmitResponse{
		Success:         true,
		ClaimID:         result.ClaimID,
		DocumentsStatus: result.DocumentsStatus,
		Warning:         result.Warning,
	})
}

// ListClaims handles GET /api/claims?search=&status=
func (h *Handlers) ListClaims(c *gin.Context) {
	filter := service.ClaimFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	}
	claims, err := h.services.Claims.ListForOwner(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		h.fail(c, err, "Failed to fetch claims")
		return
	}
	ok(c, toClaimResponses(claims))
}

// ClaimStats handles GET /api/claims/stats
func (h *Handlers) ClaimStats(c *gin.Context) {
	stats, err := h.services.Claims.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err, "Failed to compute claim stats")
		return
	}
	ok(c, toStatsResponse(stats))
}

// ExportClaims handles GET /api/claims/export
func (h *Handlers) ExportClaims(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.services.Claims.Export(c.Request.Context(), currentUser(c), &buf); err != nil {
		h.fail(c, err, "Failed to export claims")
		return
	}

	contentType, ext := h.services.Claims.ExportFormat()
	filename := fmt.Sprintf("claims-%s%s", time.Now().UTC().Format("20060102"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// ChangeClaimStatus handles PUT /api/claims/:id/status
func (h *Handlers) ChangeClaimStatus(c *gin.Context) {
	var req StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Status is required")
		return
	}

	claim, err := h.services.Claims.ChangeStatus(c.Request.Context(), currentUser(c), c.Param("id"), lifecycle.Status(req.Status))
	if err != nil {
		h.fail(c, err, "Failed to update claim status")
		return
	}
	ok(c, toClaimResponse(claim))
}
