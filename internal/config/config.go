package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultJWTSecret          = "change-me-jwt-secret"
	defaultCRMMaxPerSecond    = "9"
	defaultLockTTL            = "10s"
	defaultLockRetries        = "5"
	defaultLockRetryDelay     = "150ms"
	defaultDuplicateMarkerTTL = "6h"
	defaultReconcileInterval  = "10m"
	defaultSyncMaxAttempts    = "4"
	defaultSyncBaseDelay      = "500ms"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	CRMBaseURL      string
	CRMToken        string
	CRMMaxPerSecond int

	LockTTL            time.Duration
	LockRetries        int
	LockRetryDelay     time.Duration
	DuplicateMarkerTTL time.Duration
	ReconcileInterval  time.Duration
	SyncMaxAttempts    int
	SyncBaseDelay      time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = getEnv("HTTP_ADDR", defaultHTTPAddr)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	cfg.CRMBaseURL = strings.TrimSpace(os.Getenv("CRM_BASE_URL"))
	cfg.CRMToken = strings.TrimSpace(os.Getenv("CRM_TOKEN"))

	var err error
	if cfg.CRMMaxPerSecond, err = parseIntEnv("CRM_MAX_PER_SECOND", defaultCRMMaxPerSecond); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = parseDurationEnv("LOCK_TTL", defaultLockTTL); err != nil {
		return nil, err
	}
	if cfg.LockRetries, err = parseIntEnv("LOCK_RETRIES", defaultLockRetries); err != nil {
		return nil, err
	}
	if cfg.LockRetryDelay, err = parseDurationEnv("LOCK_RETRY_DELAY", defaultLockRetryDelay); err != nil {
		return nil, err
	}
	if cfg.DuplicateMarkerTTL, err = parseDurationEnv("DUPLICATE_MARKER_TTL", defaultDuplicateMarkerTTL); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = parseDurationEnv("RECONCILE_INTERVAL", defaultReconcileInterval); err != nil {
		return nil, err
	}
	if cfg.SyncMaxAttempts, err = parseIntEnv("SYNC_MAX_ATTEMPTS", defaultSyncMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.SyncBaseDelay, err = parseDurationEnv("SYNC_BASE_DELAY", defaultSyncBaseDelay); err != nil {
		return nil, err
	}

	if cfg.CRMMaxPerSecond <= 0 {
		return nil, fmt.Errorf("CRM_MAX_PER_SECOND must be positive, got %d", cfg.CRMMaxPerSecond)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key, fallback string) (int, error) {
	raw := getEnv(key, fallback)
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}
