package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimdesk/internal/application/service"
)

// ClientClaims handles GET /api/client/claims?corporateId=&search=&status=
func (h *Handlers) ClientClaims(c *gin.Context) {
	filter := service.ClaimFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	}
	view, err := h.services.ClientClaims.ByCorporate(c.Request.Context(), c.Query("corporateId"), filter)
	if err != nil {
		h.fail(c, err, "Failed to fetch claims")
		return
	}
	ok(c, toClientViewResponse(view))
}

// ClientClaimStats handles GET /api/client/claims/stats?corporateId=
func (h *Handlers) ClientClaimStats(c *gin.Context) {
	stats, err := h.services.ClientClaims.Stats(c.Request.Context(), c.Query("corporateId"))
	if err != nil {
		h.fail(c, err, "Failed to compute claim stats")
		return
	}
	ok(c, toStatsResponse(stats))
}
