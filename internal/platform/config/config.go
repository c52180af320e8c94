package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the wikihub server.
type Config struct {
	DBPath        string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	Release       string
	ShutdownGrace time.Duration
	SidebarLimit  int
	RateLimit     RateLimitConfig
}

// RateLimitConfig configures the per-client request budget.
type RateLimitConfig struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

const (
	defaultDBPath        = "./data/wikihub.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultShutdownGrace = 10 * time.Second
	defaultSidebarLimit  = 15
	defaultRateBurst     = 30
	defaultRatePerSecond = 10
	defaultRateClientTTL = 5 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:      getEnv("DB_PATH", defaultDBPath),
		LogLevel:    getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: getEnv("ENV", defaultEnvironment),
		Release:     os.Getenv("RELEASE"),
	}

	var err error

	if cfg.ServerPort, err = intEnv("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, eris.Errorf("invalid SERVER_PORT value: %d is out of range", cfg.ServerPort)
	}

	if cfg.ShutdownGrace, err = durationEnv("SHUTDOWN_GRACE", defaultShutdownGrace); err != nil {
		return nil, err
	}

	if cfg.SidebarLimit, err = intEnv("WIKI_SIDEBAR_LIMIT", defaultSidebarLimit); err != nil {
		return nil, err
	}

	if cfg.RateLimit.Burst, err = intEnv("RATE_LIMIT_BURST", defaultRateBurst); err != nil {
		return nil, err
	}

	rps := getEnv("RATE_LIMIT_RPS", strconv.Itoa(defaultRatePerSecond))
	if cfg.RateLimit.RequestsPerSecond, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", rps)
	}

	if cfg.RateLimit.ClientTTL, err = durationEnv("RATE_LIMIT_CLIENT_TTL", defaultRateClientTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	value := getEnv(key, strconv.Itoa(fallback))
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, value)
	}
	return parsed, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, fallback.String())
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, value)
	}
	return parsed, nil
}
