package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port               int           `envconfig:"PORT" default:"8080"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL        string        `envconfig:"DATABASE_URL" required:"true"`
	Version            string        `envconfig:"VERSION" default:"dev"`
	BcryptCost         int           `envconfig:"BCRYPT_COST" default:"12"`
	MigrateOnStart     bool          `envconfig:"MIGRATE_ON_START" default:"true"`
	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	CacheSweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"1m"`
	ExpiringWindowDays int           `envconfig:"EXPIRING_WINDOW_DAYS" default:"30"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
