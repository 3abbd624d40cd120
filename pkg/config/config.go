// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces all environment variables.
const EnvPrefix = "CUECLUB"

// Config is the full server configuration.
type Config struct {
	App    AppConfig
	MetaDB MetaDBConfig
	Clubs  ClubPoolConfig
	Redis  RedisConfig
	JWT    JWTConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// AppConfig covers process-level settings.
type AppConfig struct {
	Env      string `envconfig:"CUECLUB_APP_ENV" default:"development"`
	Port     string `envconfig:"CUECLUB_APP_PORT" default:"8080"`
	LogLevel string `envconfig:"CUECLUB_LOG_LEVEL" default:"info"`
}

// IsDev reports development mode.
func (a AppConfig) IsDev() bool {
	return a.Env == "development"
}

// MetaDBConfig is the meta-database holding the club registry.
type MetaDBConfig struct {
	URL string `envconfig:"CUECLUB_META_DATABASE_URL" required:"true"`
}

// ClubPoolConfig tunes the per-club connection pools.
type ClubPoolConfig struct {
	DBUser          string        `envconfig:"CUECLUB_CLUB_DB_USER" required:"true"`
	DBPassword      string        `envconfig:"CUECLUB_CLUB_DB_PASSWORD" required:"true"`
	MaxPools        int           `envconfig:"CUECLUB_CLUB_MAX_POOLS" default:"100"`
	MaxConnsPerClub int32         `envconfig:"CUECLUB_CLUB_MAX_CONNS" default:"10"`
	PoolIdleTimeout time.Duration `envconfig:"CUECLUB_CLUB_POOL_IDLE_TIMEOUT" default:"30m"`
	Prewarm         bool          `envconfig:"CUECLUB_CLUB_PREWARM_POOLS" default:"false"`
}

// RedisConfig backs the rate window cache. Empty address disables it.
type RedisConfig struct {
	Address  string        `envconfig:"CUECLUB_REDIS_ADDR"`
	Password string        `envconfig:"CUECLUB_REDIS_PASSWORD"`
	DB       int           `envconfig:"CUECLUB_REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"CUECLUB_RATE_CACHE_TTL" default:"10m"`
}

// JWTConfig for token signing.
type JWTConfig struct {
	Secret string `envconfig:"CUECLUB_JWT_SECRET" required:"true"`
}
