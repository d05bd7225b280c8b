package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// InviteRequest invites a new user by email
type InviteRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

// RoleRequest sets a user's role
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.services.Users.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to fetch users")
		return
	}
	if users == nil {
		users = []*entity.User{}
	}
	ok(c, users)
}

// InviteUser handles POST /api/users/invite
func (h *Handlers) InviteUser(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email is required")
		return
	}

	result, err := h.services.Users.InviteUser(c.Request.Context(), currentUser(c), req.Email, req.Role)
	if err != nil {
		h.fail(c, err, "Failed to invite user")
		return
	}
	ok(c, result)
}

// UpdateRole handles PUT /api/users/:id/role
func (h *Handlers) UpdateRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Role is required")
		return
	}

	if err := h.services.Users.UpdateRole(c.Request.Context(), currentUser(c), c.Param("id"), req.Role); err != nil {
		h.fail(c, err, "Failed to update user role")
		return
	}
	ok(c, gin.H{"user_id": c.Param("id"), "role": req.Role})
}
