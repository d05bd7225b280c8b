package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimdesk/internal/application/port"
)

// SignUpRequest is the self-service registration body
type SignUpRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SignInRequest is the sign-in body
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AcceptInviteRequest completes an invited account
type AcceptInviteRequest struct {
	Token     string `json:"token" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SignUp handles POST /api/auth/signup
func (h *Handlers) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	user, err := h.services.Auth.SignUp(c.Request.Context(), port.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.fail(c, err, "Failed to sign up")
		return
	}
	ok(c, user)
}

// SignIn handles POST /api/auth/signin
func (h *Handlers) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	session, err := h.services.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "Failed to sign in")
		return
	}
	ok(c, session)
}

// SignOut handles POST /api/auth/signout. Signing out without a session succeeds.
func (h *Handlers) SignOut(c *gin.Context) {
	token := c.GetString(ctxToken)
	if token != "" {
		if err := h.services.Auth.SignOut(c.Request.Context(), token); err != nil {
			h.fail(c, err, "Failed to sign out")
			return
		}
	}
	ok(c, nil)
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user := currentUser(c)
	role, err := h.services.Users.GetRole(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err, "Failed to load role")
		return
	}
	ok(c, MeResponse{User: user, Role: role})
}

// AcceptInvite handles POST /api/auth/accept-invite
func (h *Handlers) AcceptInvite(c *gin.Context) {
	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Token and password are required")
		return
	}

	user, err := h.services.Auth.AcceptInvite(c.Request.Context(), port.AcceptInviteInput{
		Token:     req.Token,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.fail(c, err, "Failed to accept invite")
		return
	}
	ok(c, user)
}
