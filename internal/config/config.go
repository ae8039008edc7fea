package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Reminder  ReminderConfig  `mapstructure:"reminder" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeout bounds how long the HTTP server waits for in-flight requests.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,gtfield=TokenLifetimeMinutes"`
}

// ReminderConfig controls the background reminder worker.
type ReminderConfig struct {
	// Enabled starts the scheduler with the server. The manual trigger works either way.
	Enabled bool `mapstructure:"enabled"`

	// Interval between scheduled runs.
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`

	// Window is both the look-ahead for due dates and the staleness threshold
	// after which a previously sent reminder may be sent again.
	Window time.Duration `mapstructure:"window" validate:"gt=0"`

	// MaxAttempts is the total number of claim attempts for transient failures.
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=1,lte=10"`

	// RetryBaseDelay is the first backoff delay; subsequent delays double.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gt=0"`

	// RunTimeout bounds a single run. Zero leaves runs unbounded.
	RunTimeout time.Duration `mapstructure:"run_timeout" validate:"gte=0"`

	// ShutdownTimeout bounds how long Stop waits for an in-flight run.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// RedisConfig configures the optional Redis connection used by rate limiting.
// An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `mapstructure:"url" validate:"omitempty,url"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" validate:"gte=0"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
}

// RateLimitConfig holds fixed-window request limits.
type RateLimitConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	AuthRequests int           `mapstructure:"auth_requests" validate:"gte=0"`
	AuthWindow   time.Duration `mapstructure:"auth_window" validate:"gte=0"`
	APIRequests  int           `mapstructure:"api_requests" validate:"gte=0"`
	APIWindow    time.Duration `mapstructure:"api_window" validate:"gte=0"`
}

// StorageConfig locates attachment contents on disk.
type StorageConfig struct {
	// Dir is the root under which uploads are written, one directory per task.
	Dir string `mapstructure:"dir" validate:"required"`

	// MaxUploadBytes rejects larger attachments.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gt=0"`
}
