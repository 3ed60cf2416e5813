package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	SRS       SRSConfig       `mapstructure:"srs"`
	Queue     QueueConfig     `mapstructure:"queue"      validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
	Review    ReviewConfig    `mapstructure:"review"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`

	// MigrateOnStart applies pending goose migrations before serving.
	MigrateOnStart bool `mapstructure:"migrate_on_start"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetime is the validity of tokens minted by GenerateToken.
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// SRSConfig exposes the scheduler coefficients. Zero values keep the
// scheduler defaults.
type SRSConfig struct {
	MinEaseFactor       float64       `mapstructure:"min_ease_factor"      validate:"omitempty,gte=1"`
	MaxEaseFactor       float64       `mapstructure:"max_ease_factor"      validate:"omitempty,gte=1"`
	GraduationThreshold int           `mapstructure:"graduation_threshold" validate:"gte=0"`
	AgainStep           time.Duration `mapstructure:"again_step"           validate:"gte=0"`
	MaxInterval         int           `mapstructure:"max_interval"         validate:"gte=0,lte=100000"`

	AgainEaseFactorAdjustment float64 `mapstructure:"again_ease_adjustment" validate:"lte=0"`
	HardEaseFactorAdjustment  float64 `mapstructure:"hard_ease_adjustment"  validate:"lte=0"`
	EasyEaseFactorAdjustment  float64 `mapstructure:"easy_ease_adjustment"  validate:"gte=0"`

	HardIntervalModifier float64 `mapstructure:"hard_interval_modifier" validate:"gte=0"`
	EasyIntervalModifier float64 `mapstructure:"easy_interval_modifier" validate:"gte=0"`

	FirstReviewHardInterval int `mapstructure:"first_review_hard_interval" validate:"gte=0"`
	FirstReviewGoodInterval int `mapstructure:"first_review_good_interval" validate:"gte=0"`
	FirstReviewEasyInterval int `mapstructure:"first_review_easy_interval" validate:"gte=0"`
}

// QueueConfig bounds study queue sizes.
type QueueConfig struct {
	DefaultLimit int `mapstructure:"default_limit" validate:"gte=1,ltefield=MaxLimit"`
	MaxLimit     int `mapstructure:"max_limit"     validate:"gte=1"`
}

// RateLimitConfig configures the request guards in front of the API.
type RateLimitConfig struct {
	GeneralLimit int           `mapstructure:"general_limit" validate:"gte=1"`
	BatchLimit   int           `mapstructure:"batch_limit"   validate:"gte=1"`
	Window       time.Duration `mapstructure:"window"        validate:"gt=0"`

	// MaxEntries bounds the number of identities tracked per limiter.
	MaxEntries int `mapstructure:"max_entries" validate:"gte=1"`
}

// ReviewConfig controls how the review endpoint retries conflicting grades.
type ReviewConfig struct {
	MaxRetries     uint64        `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gte=0"`
}
