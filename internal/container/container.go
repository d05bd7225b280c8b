package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/dispatcher"
	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/application/service"
	"github.com/garyjia/claimdesk/internal/domain/event"
	"github.com/garyjia/claimdesk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/claimdesk/internal/infrastructure/worker"
	httpiface "github.com/garyjia/claimdesk/internal/interfaces/http"
	"github.com/garyjia/claimdesk/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data (nil when the backend is not configured)
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Adapters the services are built on
	backend *BackendBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers
	workers   *worker.WorkerManager
	scheduler *worker.Scheduler

	// Interfaces
	httpServer *httpiface.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Claims   port.ClaimRepository
	Users    port.UserRepository
	Roles    port.RoleRepository
	Invites  port.InviteRepository
	Sessions port.SessionRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Auth         service.AuthService
	Claims       service.ClaimService
	ClientClaims service.ClientClaimService
	Users        service.UserService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool        `json:"healthy"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins background processing.
// Components are initialized in dependency order:
// 1. Event dispatcher
// 2. Backend adapters (database, repositories, storage, auth) or null adapters
// 3. Application services
// 4. Workers
// 5. HTTP server (built, not started)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization",
		zap.Bool("backend_configured", c.config.BackendEnabled))

	// Step 1: Initialize dispatcher
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp
	ProvideEventLog(c.dispatcher, c.logger)

	// Step 2: Initialize backend adapters
	if err := c.initBackend(); err != nil {
		c.releaseDatabase()
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	c.logger.Info("Backend initialized")

	// Step 3: Initialize application services
	services, err := ProvideServices(&ServiceDeps{
		Backend:     c.backend,
		Dispatcher:  c.dispatcher,
		Auth:        &c.config.Auth,
		Storage:     &c.config.Storage,
		Transitions: c.config.Transitions,
		Logger:      c.logger,
	})
	if err != nil {
		c.releaseDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services
	c.logger.Info("Application services initialized")

	// Step 4: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		c.releaseDatabase()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	// Step 5: Build the HTTP server
	c.httpServer = ProvideHTTPServer(&c.config.Server, c.services, c.backend, c.config.Corporates, c.healthDetails, c.logger)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// initBackend builds either the configured or the null adapter set.
func (c *Container) initBackend() error {
	if !c.config.BackendEnabled {
		c.backend = ProvideNullBackend()
		c.logger.Info("Backend not configured; running with null adapters")
		return nil
	}

	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = dbBundle.DB
	c.txManager = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos

	store, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}

	provider, err := ProvideAuthProvider(&c.config.Auth, repos, c.txManager, c.dispatcher, c.logger)
	if err != nil {
		return err
	}

	c.backend = ProvideBackend(repos, store, provider)
	return nil
}

// initWorkers creates and starts background jobs.
func (c *Container) initWorkers() error {
	workers, scheduler, err := ProvideWorkers(&WorkerDeps{
		Services:  c.services,
		Purger:    c.backend.Purger,
		WorkerCfg: &c.config.Worker,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers
	c.scheduler = scheduler

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

func (c *Container) releaseDatabase() {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop workers (reverse of step 4)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Close dispatcher (reverse of step 1, after everything that publishes)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close database (reverse of step 2)
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	switch {
	case !c.config.BackendEnabled:
		status.Components["database"] = ComponentHealth{Healthy: true, Message: "not configured"}
	case c.db == nil:
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	default:
		if err := c.db.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	}

	// Check workers
	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()),
		}
		if !c.workers.IsRunning() {
			status.Overall = false
		}
	} else {
		status.Components["workers"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check scheduled jobs
	if c.scheduler != nil {
		stats := c.scheduler.Stats()
		status.Components["scheduler"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("job count: %d", len(stats)),
			Details: stats,
		}
	}

	// Check dispatcher
	if c.dispatcher != nil {
		handlers := make(map[string][]string)
		for _, t := range event.AllTypes() {
			for _, h := range c.dispatcher.ListHandlers(t) {
				handlers[t.String()] = append(handlers[t.String()], h.Name)
			}
		}
		status.Components["dispatcher"] = ComponentHealth{Healthy: true, Details: handlers}
	} else {
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	return status
}

func (c *Container) healthDetails(ctx context.Context) (bool, interface{}) {
	status := c.Health(ctx)
	return status.Overall, status.Components
}

// Getters for accessing container components

// DB returns the transaction manager; nil without a backend.
func (c *Container) DB() port.TransactionManager {
	if c.txManager == nil {
		return nil
	}
	return c.txManager
}

// Repositories returns all repositories; nil without a backend.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Backend returns the adapter set the services run on.
func (c *Container) Backend() *BackendBundle {
	return c.backend
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Scheduler returns the job scheduler.
func (c *Container) Scheduler() *worker.Scheduler {
	return c.scheduler
}

// HTTPServer returns the HTTP server. Start it with the serve context.
func (c *Container) HTTPServer() *httpiface.Server {
	return c.httpServer
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the small Logger interfaces of the
// service, dispatcher and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
