package config

import (
	"github.com/garyjia/claimdesk/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		BackendEnabled: c.BackendConfigured(),
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Storage: container.StorageConfig{
			BaseDir:       c.Storage.BaseDir,
			StagingDir:    c.Storage.StagingDir,
			PublicBaseURL: c.Storage.PublicBaseURL,
			MaxFileSize:   c.Storage.MaxFileSize,
		},
		Auth: container.AuthConfig{
			JWTSecret:         c.Auth.JWTSecret,
			Issuer:            c.Auth.Issuer,
			SessionTTL:        c.Auth.SessionTTL,
			InviteTTL:         c.Auth.InviteTTL,
			InviteRedirectURL: c.Auth.InviteRedirectURL,
			BcryptCost:        c.Auth.BcryptCost,
			RoleCacheTTL:      c.Auth.RoleCacheTTL,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			AllowedOrigins: c.Server.AllowedOrigins,
			MaxUploadBytes: c.Server.MaxUploadBytes,
			SignInRate:     c.Auth.SignInRate,
			SignInBurst:    c.Auth.SignInBurst,
		},
		Worker: container.WorkerConfig{
			RetrySchedule:        c.Worker.RetrySchedule,
			RetryBatchSize:       c.Worker.RetryBatchSize,
			HousekeepingSchedule: c.Worker.HousekeepingSchedule,
			JobTimeout:           c.Worker.JobTimeout,
		},
		Transitions: c.TransitionMap(),
		Corporates:  c.Corporates,
	}
}
