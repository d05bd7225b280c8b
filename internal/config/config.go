package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/claimdesk/internal/domain/entity"
	"github.com/garyjia/claimdesk/internal/domain/lifecycle"
)

// DefaultPath is read when no config file is given and it exists
const DefaultPath = "configs/config.yaml"

// EnvPrefix namespaces every environment override
const EnvPrefix = "CLAIMDESK"

// Config holds all application configuration
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Auth       AuthConfig        `mapstructure:"auth"`
	Backend    BackendConfig     `mapstructure:"backend"`
	Claims     ClaimsConfig      `mapstructure:"claims"`
	Worker     WorkerConfig      `mapstructure:"worker"`
	Logger     LoggerConfig      `mapstructure:"logger"`
	Corporates []entity.Corporate `mapstructure:"corporates"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig holds document storage configuration
type StorageConfig struct {
	BaseDir       string `mapstructure:"base_dir"`
	StagingDir    string `mapstructure:"staging_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MaxFileSize   int64  `mapstructure:"max_file_size"`
}

// AuthConfig holds session and invitation settings
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	Issuer            string        `mapstructure:"issuer"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	InviteTTL         time.Duration `mapstructure:"invite_ttl"`
	InviteRedirectURL string        `mapstructure:"invite_redirect_url"`
	BcryptCost        int           `mapstructure:"bcrypt_cost"`
	RoleCacheTTL      time.Duration `mapstructure:"role_cache_ttl"`
	SignInRate        float64       `mapstructure:"signin_rate"`
	SignInBurst       int           `mapstructure:"signin_burst"`
}

// BackendConfig switches between the real backend and the degraded null one
type BackendConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TransitionRule permits moves from one status to each of To
type TransitionRule struct {
	From string   `mapstructure:"from"`
	To   []string `mapstructure:"to"`
}

// ClaimsConfig holds claim lifecycle configuration
type ClaimsConfig struct {
	Transitions []TransitionRule `mapstructure:"transitions"`
}

// WorkerConfig holds background job configuration
type WorkerConfig struct {
	RetrySchedule        string        `mapstructure:"retry_schedule"`
	RetryBatchSize       int           `mapstructure:"retry_batch_size"`
	HousekeepingSchedule string        `mapstructure:"housekeeping_schedule"`
	JobTimeout           time.Duration `mapstructure:"job_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// DefaultCorporates is the corporate directory used when none is configured
var DefaultCorporates = []entity.Corporate{
	{Value: "acme-corp", Label: "Acme Corporation"},
	{Value: "tech-solutions", Label: "Tech Solutions Ltd"},
	{Value: "global-industries", Label: "Global Industries Inc"},
	{Value: "innovative-systems", Label: "Innovative Systems"},
	{Value: "premier-services", Label: "Premier Services Group"},
	{Value: "dynamic-enterprises", Label: "Dynamic Enterprises"},
	{Value: "strategic-partners", Label: "Strategic Partners LLC"},
	{Value: "excellence-group", Label: "Excellence Group"},
}

// Load reads .env, then the YAML file at path (or DefaultPath when present),
// then environment overrides
func Load(path string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_bytes", int64(110<<20))

	// Database defaults
	v.SetDefault("database.path", "data/claimdesk.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Storage defaults
	v.SetDefault("storage.base_dir", "data/objects")
	v.SetDefault("storage.staging_dir", "data/staging")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/files")
	v.SetDefault("storage.max_file_size", int64(10<<20))

	// Auth defaults
	v.SetDefault("auth.issuer", "claimdesk")
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.invite_ttl", 7*24*time.Hour)
	v.SetDefault("auth.invite_redirect_url", "http://localhost:3000/auth/accept-invite")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.role_cache_ttl", time.Minute)
	v.SetDefault("auth.signin_rate", 0.2)
	v.SetDefault("auth.signin_burst", 5)

	v.SetDefault("backend.enabled", true)

	// Worker defaults
	v.SetDefault("worker.retry_schedule", "0 */5 * * * *")
	v.SetDefault("worker.retry_batch_size", 20)
	v.SetDefault("worker.housekeeping_schedule", "0 0 * * * *")
	v.SetDefault("worker.job_timeout", 2*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("corporates", DefaultCorporates)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets and deployment-specific values under short names
	_ = v.BindEnv("auth.jwt_secret", EnvPrefix+"_JWT_SECRET")
	_ = v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH")
	_ = v.BindEnv("backend.enabled", EnvPrefix+"_BACKEND_ENABLED")
	_ = v.BindEnv("server.port", EnvPrefix+"_PORT")
	_ = v.BindEnv("storage.base_dir", EnvPrefix+"_STORAGE_DIR")
	_ = v.BindEnv("storage.public_base_url", EnvPrefix+"_PUBLIC_BASE_URL")
	_ = v.BindEnv("auth.invite_redirect_url", EnvPrefix+"_INVITE_REDIRECT_URL")
}

// BackendConfigured reports whether the real backend should be wired.
// A missing JWT secret leaves the system in degraded mode.
func (c *Config) BackendConfigured() bool {
	return c.Backend.Enabled && c.Auth.JWTSecret != ""
}

// TransitionMap flattens the configured transition rules
func (c *Config) TransitionMap() map[string][]string {
	out := make(map[string][]string, len(c.Claims.Transitions))
	for _, rule := range c.Claims.Transitions {
		out[rule.From] = append(out[rule.From], rule.To...)
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("storage.max_file_size must be positive")
	}
	if c.Worker.RetrySchedule == "" {
		return fmt.Errorf("worker.retry_schedule is required")
	}
	if _, err := lifecycle.FromConfig(c.TransitionMap()); err != nil {
		return fmt.Errorf("claims.transitions: %w", err)
	}

	if !c.BackendConfigured() {
		return nil
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Storage.StagingDir == "" {
		return fmt.Errorf("storage.staging_dir is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.InviteRedirectURL == "" {
		return fmt.Errorf("auth.invite_redirect_url is required")
	}

	return nil
}
