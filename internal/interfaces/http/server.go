// Package http exposes the application services as a JSON API.
// Handlers translate requests into service calls and nothing more.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/application/service"
	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthFunc reports overall health plus per-component details
type HealthFunc func(ctx context.Context) (healthy bool, details interface{})

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	AllowedOrigins []string
	// MaxUploadBytes caps a claim submission request body
	MaxUploadBytes int64

	// FilesDir is served read-only at /files/<FilesBucket>
	FilesDir    string
	FilesBucket string

	SignInRatePerSecond float64
	SignInBurst         int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:                "0.0.0.0",
		Port:                8080,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        60 * time.Second,
		AllowedOrigins:      []string{"http://localhost:3000"},
		MaxUploadBytes:      50 << 20,
		FilesBucket:         entity.DocumentsBucket,
		SignInRatePerSecond: 0.2,
		SignInBurst:         5,
	}
}

// Services are the application services the API is built on
type Services struct {
	Auth         service.AuthService
	Claims       service.ClaimService
	ClientClaims service.ClientClaimService
	Users        service.UserService
	Backend      port.Backend
	Corporates   []entity.Corporate
	Health       HealthFunc
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	limiter    *IPRateLimiter
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		limiter:  NewIPRateLimiter(config.SignInRatePerSecond, config.SignInBurst),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(s.config.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.config.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	s.router.Use(cors.New(corsConfig))

	s.router.Use(s.authenticate())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config, s.logger)

	s.router.GET("/health", h.HealthCheck)

	if s.config.FilesDir != "" {
		s.router.Static("/files/"+s.config.FilesBucket, s.config.FilesDir)
	}

	api := s.router.Group("/api")
	{
		api.GET("/guard", h.Guard)

		auth := api.Group("/auth")
		auth.POST("/signup", h.SignUp)
		auth.POST("/signin", s.rateLimit(), h.SignIn)
		auth.POST("/signout", h.SignOut)
		auth.GET("/me", s.requireAuth(), h.Me)
		auth.POST("/accept-invite", h.AcceptInvite)

		authed := api.Group("", s.requireAuth())
		authed.GET("/corporates", h.ListCorporates)

		authed.POST("/claims", s.limitBody(), h.SubmitClaim)
		authed.GET("/claims", h.ListClaims)
		authed.GET("/claims/stats", h.ClaimStats)
		authed.GET("/claims/export", h.ExportClaims)
		authed.PUT("/claims/:id/status", h.ChangeClaimStatus)

		authed.GET("/client/claims", h.ClientClaims)
		authed.GET("/client/claims/stats", h.ClientClaimStats)

		admin := authed.Group("/users", s.requireAdmin())
		admin.GET("", h.ListUsers)
		admin.POST("/invite", h.InviteUser)
		admin.PUT("/:id/role", h.UpdateRole)
	}
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
