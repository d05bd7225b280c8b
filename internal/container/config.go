// Package container provides dependency injection and lifecycle management
// for the claims back office.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/claimdesk/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// BackendEnabled selects the real adapters; when false every adapter is a null one
	BackendEnabled bool

	Database DatabaseConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Server   ServerConfig
	Worker   WorkerConfig

	// Transitions lists the permitted status moves, keyed by source status
	Transitions map[string][]string

	Corporates []entity.Corporate
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StorageConfig holds document storage settings.
type StorageConfig struct {
	// BaseDir holds one directory per bucket
	BaseDir string

	// StagingDir keeps submitted files until they reach the bucket
	StagingDir string

	// PublicBaseURL prefixes object URLs handed to clients
	PublicBaseURL string

	// MaxFileSize caps a single uploaded document
	MaxFileSize int64
}

// AuthConfig holds session and invitation settings.
type AuthConfig struct {
	JWTSecret         string
	Issuer            string
	SessionTTL        time.Duration
	InviteTTL         time.Duration
	InviteRedirectURL string
	BcryptCost        int
	RoleCacheTTL      time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
	SignInRate     float64
	SignInBurst    int
}

// WorkerConfig holds background job settings.
type WorkerConfig struct {
	// RetrySchedule is a six-field cron spec for the attachment retry job
	RetrySchedule  string
	RetryBatchSize int

	// HousekeepingSchedule purges expired sessions and invites; empty disables it
	HousekeepingSchedule string

	JobTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BackendEnabled: false,
		Database: DatabaseConfig{
			Path:            "data/claimdesk.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			BaseDir:       "data/objects",
			StagingDir:    "data/staging",
			PublicBaseURL: "http://localhost:8080/files",
			MaxFileSize:   10 << 20,
		},
		Auth: AuthConfig{
			Issuer:            "claimdesk",
			SessionTTL:        24 * time.Hour,
			InviteTTL:         7 * 24 * time.Hour,
			InviteRedirectURL: "http://localhost:3000/auth/accept-invite",
			RoleCacheTTL:      time.Minute,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 110 << 20,
			SignInRate:     0.2,
			SignInBurst:    5,
		},
		Worker: WorkerConfig{
			RetrySchedule:        "0 */5 * * * *",
			RetryBatchSize:       20,
			HousekeepingSchedule: "0 0 * * * *",
			JobTimeout:           2 * time.Minute,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Worker.RetrySchedule == "" {
		return fmt.Errorf("worker.retry_schedule is required")
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("storage.max_file_size must be positive")
	}

	if !c.BackendEnabled {
		return nil
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" || c.Storage.StagingDir == "" {
		return fmt.Errorf("storage.base_dir and storage.staging_dir are required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	return nil
}
