// Package config builds the server configuration from environment variables
// so main stays lean. Pipeline tunables live in the policy file, not here.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig holds connection settings for the index result cache.
// An empty URL disables the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// CacheTTL bounds how long index results may be served without hitting
	// the reference index again.
	CacheTTL time.Duration
}

// Config captures everything the server needs at startup.
type Config struct {
	Addr       string
	PolicyPath string

	// PostgresDSN selects the reference-index backend; empty falls back to
	// the in-memory index, which is for development only.
	PostgresDSN string

	Redis RedisConfig

	// KafkaBrokers enables the audit sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	JWTSigningKey string
	AuditBuffer   int
	LogLevel      string
}

// FromEnv reads the configuration from WATCHGATE_* environment variables,
// applying development defaults where unset.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("WATCHGATE_ADDR", ":8080"),
		PolicyPath:  os.Getenv("WATCHGATE_POLICY_PATH"),
		PostgresDSN: os.Getenv("WATCHGATE_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("WATCHGATE_REDIS_URL"),
			PoolSize:     envInt("WATCHGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("WATCHGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CacheTTL:     envDuration("WATCHGATE_CACHE_TTL", 5*time.Minute),
		},
		KafkaTopic:  envOr("WATCHGATE_KAFKA_TOPIC", "watchgate.audit"),
		AuditBuffer: envInt("WATCHGATE_AUDIT_BUFFER", 256),
		LogLevel:    envOr("WATCHGATE_LOG_LEVEL", "info"),
	}

	if brokers := os.Getenv("WATCHGATE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	cfg.JWTSigningKey = os.Getenv("WATCHGATE_JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		// Development default, must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
