package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration, read from the environment
type Config struct {
	Port         string
	DBPath       string
	JWTSecret    string // empty disables token checks
	AuthRequired bool
	GinMode      string

	LogLevel  string
	LogFormat string
	LogFile   string // empty writes to stdout

	RateLimit       int // write requests per minute per client IP; 0 disables
	PlanCacheSize   int
	PlanCacheTTL    time.Duration
	HistoryMaxLimit int
}

// Load reads the configuration. Unset variables take their defaults;
// malformed numeric values are reported as errors.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", ":8080"),
		DBPath:    getEnv("DB_PATH", "./data/uav/uav.db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		GinMode:   getEnv("GIN_MODE", "release"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   os.Getenv("LOG_FILE"),
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	var err error
	if cfg.AuthRequired, err = getBool("AUTH_REQUIRED", false); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getInt("RATE_LIMIT", 120); err != nil {
		return nil, err
	}
	if cfg.PlanCacheSize, err = getInt("PLAN_CACHE_SIZE", 64); err != nil {
		return nil, err
	}
	if cfg.PlanCacheTTL, err = getDuration("PLAN_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HistoryMaxLimit, err = getInt("HISTORY_MAX_LIMIT", 1000); err != nil {
		return nil, err
	}

	if cfg.AuthRequired && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_REQUIRED is set but JWT_SECRET is empty")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", key, v)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
