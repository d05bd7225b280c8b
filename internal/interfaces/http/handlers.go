package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimdesk/internal/application/guard"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	config   ServerConfig
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, config ServerConfig, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		config:   config,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Backend    bool        `json:"backend_configured"`
	Components interface{} `json:"components,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Backend:   h.services.Backend.Configured(),
	}
	status := http.StatusOK
	if h.services.Health != nil {
		healthy, details := h.services.Health(c.Request.Context())
		resp.Components = details
		if !healthy {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}

// Guard handles GET /api/guard?path=
func (h *Handlers) Guard(c *gin.Context) {
	user := currentUser(c)
	req := guard.Request{
		Path:              c.Query("path"),
		Authenticated:     user != nil,
		BackendConfigured: h.services.Backend.Configured(),
	}
	if user != nil && req.BackendConfigured && guard.IsAdminPath(req.Path) {
		req.Admin = h.services.Users.IsAdmin(c.Request.Context(), user)
	}
	ok(c, guard.Decide(req))
}

// ListCorporates handles GET /api/corporates
func (h *Handlers) ListCorporates(c *gin.Context) {
	corporates := h.services.Corporates
	if corporates == nil {
		corporates = []entity.Corporate{}
	}
	ok(c, corporates)
}
