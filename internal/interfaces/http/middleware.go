package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimdesk/internal/domain/entity"
)

const (
	ctxUser  = "auth.user"
	ctxToken = "auth.token"
)

// guestUser stands in for the caller when no backend is configured
var guestUser = entity.User{ID: "guest", Role: entity.RoleUser}

// authenticate resolves the bearer token, if any. It never rejects.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" {
			c.Set(ctxToken, token)
			if user := s.services.Auth.CurrentUser(c.Request.Context(), token); user != nil {
				c.Set(ctxUser, user)
			}
		}
		c.Next()
	}
}

// requireAuth rejects anonymous callers. Without a backend every caller is a guest.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) != nil {
			c.Next()
			return
		}
		if !s.services.Backend.Configured() {
			guest := guestUser
			c.Set(ctxUser, &guest)
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "Not authenticated"})
	}
}

// requireAdmin must run after requireAuth
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.services.Backend.Configured() {
			c.Next()
			return
		}
		if !s.services.Users.IsAdmin(c.Request.Context(), currentUser(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{Success: false, Error: "Admin access required"})
			return
		}
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
				Success: false,
				Error:   "Too many sign-in attempts. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.config.MaxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func currentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*entity.User)
	return user
}
