package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SCRY_SERVER_PORT.
const EnvPrefix = "SCRY"

// defaults lists every known key. Registering each key is also what lets
// AutomaticEnv populate it during Unmarshal.
var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    15 * time.Second,
	"server.shutdown_timeout": 10 * time.Second,

	"database.url":               "",
	"database.max_open_conns":    25,
	"database.max_idle_conns":    25,
	"database.conn_max_lifetime": 5 * time.Minute,
	"database.migrate_on_start":  false,

	"auth.jwt_secret":     "",
	"auth.token_lifetime": time.Hour,

	"srs.min_ease_factor":            1.3,
	"srs.max_ease_factor":            0.0,
	"srs.graduation_threshold":       2,
	"srs.again_step":                 10 * time.Minute,
	"srs.max_interval":               36500,
	"srs.again_ease_adjustment":      -0.20,
	"srs.hard_ease_adjustment":       -0.15,
	"srs.easy_ease_adjustment":       0.15,
	"srs.hard_interval_modifier":     1.2,
	"srs.easy_interval_modifier":     1.3,
	"srs.first_review_hard_interval": 1,
	"srs.first_review_good_interval": 1,
	"srs.first_review_easy_interval": 2,

	"queue.default_limit": 20,
	"queue.max_limit":     50,

	"rate_limit.general_limit": 1000,
	"rate_limit.batch_limit":   100,
	"rate_limit.window":        time.Hour,
	"rate_limit.max_entries":   10000,

	"review.max_retries":      3,
	"review.retry_base_delay": 25 * time.Millisecond,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory to search for config.yaml.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
