// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Session backends accepted by SESSION_BACKEND.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"dev"`
	Port          int    `env:"PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	// SessionBackend selects where conversation state lives: memory or redis.
	SessionBackend       string        `env:"SESSION_BACKEND" envDefault:"memory"`
	RedisURL             string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SessionMax           int           `env:"SESSION_MAX" envDefault:"10000"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	// ContextTokenBudget bounds how much recent user text feeds the analyzer.
	ContextTokenBudget int    `env:"CONTEXT_TOKEN_BUDGET" envDefault:"512"`
	ContextModel       string `env:"CONTEXT_MODEL" envDefault:"gpt-4"`
	TurnLimitPerMin    int    `env:"TURN_LIMIT_PER_MIN" envDefault:"20"`
	// RulesDir optionally overrides the embedded rule and template tables.
	RulesDir string `env:"RULES_DIR"`
	// Web search
	SearchEnabled    bool          `env:"SEARCH_ENABLED" envDefault:"false"`
	SearchBaseURL    string        `env:"SEARCH_BASE_URL" envDefault:"https://html.duckduckgo.com/html/"`
	SearchTimeout    time.Duration `env:"SEARCH_TIMEOUT" envDefault:"3s"`
	SearchMaxResults int           `env:"SEARCH_MAX_RESULTS" envDefault:"3"`
	// Search backoff configuration
	SearchBackoffMaxElapsedTime  time.Duration `env:"SEARCH_BACKOFF_MAX_ELAPSED_TIME" envDefault:"2500ms"`
	SearchBackoffInitialInterval time.Duration `env:"SEARCH_BACKOFF_INITIAL_INTERVAL" envDefault:"200ms"`
	SearchBackoffMaxInterval     time.Duration `env:"SEARCH_BACKOFF_MAX_INTERVAL" envDefault:"1s"`
	SearchBackoffMultiplier      float64       `env:"SEARCH_BACKOFF_MULTIPLIER" envDefault:"2.0"`
	// Durable document storage; empty keeps documents in memory.
	DBURL string `env:"DB_URL"`
	// DocumentRetention is how long generated documents are kept in Postgres.
	DocumentRetention       time.Duration `env:"DOCUMENT_RETENTION" envDefault:"720h"`
	DocumentCleanupInterval time.Duration `env:"DOCUMENT_CLEANUP_INTERVAL" envDefault:"1h"`
	// Conversation events go to Kafka/Redpanda when brokers are set.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	EventsTopic  string   `env:"EVENTS_TOPIC" envDefault:"conversation-events"`
	// Observability
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"cv-assistant"`
	// Admin endpoints are enabled when both are set. The hash is argon2id.
	AdminUsername     string `env:"ADMIN_USERNAME"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	// HTTP
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// AdminEnabled returns true if admin endpoints should be mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPasswordHash != ""
}

// UseRedisSessions reports whether sessions are stored in Redis.
func (c Config) UseRedisSessions() bool {
	return strings.EqualFold(strings.TrimSpace(c.SessionBackend), SessionBackendRedis)
}

// EventsEnabled reports whether conversation events are published.
func (c Config) EventsEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.SessionBackend)) {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.ContextTokenBudget <= 0 {
		return fmt.Errorf("CONTEXT_TOKEN_BUDGET must be positive")
	}
	return nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
