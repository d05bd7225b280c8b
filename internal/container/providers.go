package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/dispatcher"
	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/application/service"
	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/event"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
	"github.com/garyjia/claimdesk/internal/infrastructure/auth"
	"github.com/garyjia/claimdesk/internal/infrastructure/cache"
	"github.com/garyjia/claimdesk/internal/infrastructure/document"
	"github.com/garyjia/claimdesk/internal/infrastructure/export"
	"github.com/garyjia/claimdesk/internal/infrastructure/nullbackend"
	"github.com/garyjia/claimdesk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/claimdesk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/claimdesk/internal/infrastructure/storage"
	"github.com/garyjia/claimdesk/internal/infrastructure/worker"
	httpiface "github.com/garyjia/claimdesk/internal/interfaces/http"
	"github.com/garyjia/claimdesk/migrations"
	"github.com/garyjia/claimdesk/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// StorageBundle holds storage-related components.
type StorageBundle struct {
	Objects *storage.LocalObjectStorage
	Staging *storage.LocalStagingArea
}

// BackendBundle is the adapter set every service is built from. It is either
// the real one or the null one, never a mix.
type BackendBundle struct {
	Backend   port.Backend
	Claims    port.ClaimRepository
	Objects   port.ObjectStorage
	Staging   port.StagingArea
	Roles     port.RoleRepository
	Directory port.UserDirectory
	Auth      port.AuthProvider

	// Purger is nil when there is nothing to purge
	Purger worker.ExpiredAuthPurger

	// FilesDir is served at /files/<bucket>; empty when there is no bucket
	FilesDir string
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if _, err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Claims:   repository.NewClaimRepository(db.DB, logger),
		Users:    repository.NewUserRepository(db.DB, logger),
		Roles:    repository.NewRoleRepository(db.DB, logger),
		Invites:  repository.NewInviteRepository(db.DB, logger),
		Sessions: repository.NewSessionRepository(db.DB, logger),
	}, nil
}

// ProvideStorage creates the document bucket and the staging area.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	objects, err := storage.NewLocalObjectStorage(cfg.BaseDir, entity.DocumentsBucket, cfg.PublicBaseURL, logger)
	if err != nil {
		return nil, err
	}
	staging, err := storage.NewLocalStagingArea(cfg.StagingDir, logger)
	if err != nil {
		return nil, err
	}

	return &StorageBundle{Objects: objects, Staging: staging}, nil
}

// ProvideAuthProvider creates the local account store with JWT sessions.
func ProvideAuthProvider(cfg *AuthConfig, repos *RepositoryBundle, tx port.TransactionManager, bus port.EventBus, logger *zap.Logger) (*auth.LocalProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.Issuer, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	return auth.NewLocalProvider(
		auth.Repositories{
			Users:    repos.Users,
			Roles:    repos.Roles,
			Invites:  repos.Invites,
			Sessions: repos.Sessions,
		},
		tx,
		tokens,
		bus,
		auth.Options{InviteTTL: cfg.InviteTTL, BcryptCost: cfg.BcryptCost},
		logger,
	), nil
}

// ProvideBackend assembles the configured adapter set.
func ProvideBackend(repos *RepositoryBundle, store *StorageBundle, provider *auth.LocalProvider) *BackendBundle {
	return &BackendBundle{
		Backend:   nullbackend.Backend(true),
		Claims:    repos.Claims,
		Objects:   store.Objects,
		Staging:   store.Staging,
		Roles:     repos.Roles,
		Directory: repos.Users,
		Auth:      provider,
		Purger:    provider,
		FilesDir:  store.Objects.BucketDir(),
	}
}

// ProvideNullBackend assembles the adapter set used when no backend is configured.
func ProvideNullBackend() *BackendBundle {
	return &BackendBundle{
		Backend:   nullbackend.Backend(false),
		Claims:    nullbackend.ClaimRepository{},
		Objects:   nullbackend.ObjectStorage{},
		Staging:   nullbackend.StagingArea{},
		Roles:     nullbackend.RoleRepository{},
		Directory: nullbackend.UserDirectory{},
		Auth:      nullbackend.AuthProvider{},
	}
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	), nil
}

// EventLogHandler is the name of the handler that logs every domain event.
const EventLogHandler = "event-log"

// ProvideEventLog subscribes a handler that logs every domain event.
func ProvideEventLog(disp dispatcher.Dispatcher, logger *zap.Logger) {
	for _, t := range event.AllTypes() {
		disp.SubscribeNamed(t, EventLogHandler, func(ctx context.Context, evt *event.Event) error {
			logger.Info("Domain event",
				zap.String("event_id", evt.ID),
				zap.String("event_type", evt.Type.String()),
				zap.String("subject_id", evt.SubjectID),
				zap.String("actor_id", evt.ActorID))
			return nil
		})
	}
}

// ServiceDeps contains dependencies for creating services.
type ServiceDeps struct {
	Backend    *BackendBundle
	Dispatcher dispatcher.Dispatcher
	Auth       *AuthConfig
	Storage    *StorageConfig
	// Transitions is the raw status move table, keyed by source status
	Transitions map[string][]string
	Logger      *zap.Logger
}

// ProvideServices creates all application services and wires role cache
// invalidation onto the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend adapters are required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	table, err := lifecycle.FromConfig(deps.Transitions)
	if err != nil {
		return nil, fmt.Errorf("failed to build transition table: %w", err)
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}
	b := deps.Backend

	roleCache := cache.NewRoleCache(deps.Auth.RoleCacheTTL, 2*deps.Auth.RoleCacheTTL)
	service.InvalidateRolesOn(deps.Dispatcher, roleCache)

	return &ServiceBundle{
		Auth: service.NewAuthService(b.Auth, serviceLogger),
		Claims: service.NewClaimService(
			b.Claims,
			b.Objects,
			b.Staging,
			document.NewInspector(deps.Storage.MaxFileSize, deps.Logger),
			export.NewExcelExporter(),
			table,
			deps.Dispatcher,
			serviceLogger,
		),
		ClientClaims: service.NewClientClaimService(b.Claims, serviceLogger),
		Users: service.NewUserService(
			b.Directory,
			b.Roles,
			b.Auth,
			roleCache,
			deps.Dispatcher,
			deps.Auth.InviteRedirectURL,
			serviceLogger,
		),
	}, nil
}

// WorkerDeps contains dependencies for creating workers.
type WorkerDeps struct {
	Services  *ServiceBundle
	Purger    worker.ExpiredAuthPurger
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the job scheduler and registers it with a manager.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, *worker.Scheduler, error) {
	if deps == nil {
		return nil, nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Services == nil {
		return nil, nil, fmt.Errorf("services are required")
	}
	if deps.WorkerCfg == nil {
		return nil, nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, nil, fmt.Errorf("logger is required")
	}

	scheduler := worker.NewScheduler("scheduler", deps.WorkerCfg.JobTimeout, deps.Logger)

	retrier := worker.NewAttachmentRetrier(deps.Services.Claims, deps.WorkerCfg.RetryBatchSize)
	if err := scheduler.AddJob(deps.WorkerCfg.RetrySchedule, retrier); err != nil {
		return nil, nil, err
	}

	if deps.Purger != nil && deps.WorkerCfg.HousekeepingSchedule != "" {
		housekeeper := worker.NewAuthHousekeeper(deps.Purger, deps.Logger)
		if err := scheduler.AddJob(deps.WorkerCfg.HousekeepingSchedule, housekeeper); err != nil {
			return nil, nil, err
		}
	}

	manager := worker.NewWorkerManager(deps.Logger)
	manager.Register(scheduler)

	return manager, scheduler, nil
}

// ProvideHTTPServer creates the HTTP API over the service bundle.
func ProvideHTTPServer(cfg *ServerConfig, services *ServiceBundle, backend *BackendBundle, corporates []entity.Corporate, health httpiface.HealthFunc, logger *zap.Logger) *httpiface.Server {
	serverCfg := httpiface.DefaultServerConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.ReadTimeout = cfg.ReadTimeout
	serverCfg.WriteTimeout = cfg.WriteTimeout
	serverCfg.AllowedOrigins = cfg.AllowedOrigins
	serverCfg.MaxUploadBytes = cfg.MaxUploadBytes
	serverCfg.SignInRatePerSecond = cfg.SignInRate
	serverCfg.SignInBurst = cfg.SignInBurst
	serverCfg.FilesDir = backend.FilesDir

	return httpiface.NewServer(serverCfg, httpiface.Services{
		Auth:         services.Auth,
		Claims:       services.Claims,
		ClientClaims: services.ClientClaims,
		Users:        services.Users,
		Backend:      backend.Backend,
		Corporates:   corporates,
		Health:       health,
	}, &zapLoggerAdapter{logger: logger})
}
