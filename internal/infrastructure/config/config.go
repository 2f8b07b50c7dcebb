package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,     default=8080"`
	Env      string `env:"ENV,      default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// JWTSecret signs session bearer tokens; AuditSignKey keys the HMAC on
	// audit entries. Both are mandatory outside development.
	JWTSecret    string `env:"JWT_SECRET"`
	AuditSignKey string `env:"AUDIT_SIGN_KEY"`

	// SessionTTL is the store-side lifetime of a session record.
	// MaxSessionAge is the stricter policy bound enforced at resolution
	// time; a session older than this is rejected even if the store still
	// holds it.
	SessionTTL    time.Duration `env:"SESSION_TTL,      default=24h"`
	MaxSessionAge time.Duration `env:"MAX_SESSION_AGE, default=60m"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=platform_api"`
}

// RedisConfig locates the shared store for sessions, rate limits and the
// response cache. An explicitly empty REDIS_ADDR switches the service to its
// in-process stores; that mode is refused in production.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.IsProduction() {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if cfg.AuditSignKey == "" {
			return nil, fmt.Errorf("AUDIT_SIGN_KEY is required in production")
		}
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required in production")
		}
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
