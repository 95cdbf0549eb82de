package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY environment variable is not set")

type Config struct {
	Env          string
	Port         string
	GoogleAPIKey string
	JWTSecret    string
	SentryDSN    string

	ImageModel string
	TextModel  string

	BrokerAddress string

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string

	SessionTTL         time.Duration
	ExportRetention    time.Duration
	GenerationInterval time.Duration
	AuditRetentionDays int
	DownloadPrefix     string
}

func GetEnv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// Load reads .env files when present and then the process environment.
// A missing GOOGLE_API_KEY is reported as ErrMissingAPIKey.
func Load() (*Config, error) {
	// files are optional, real deployments only set env
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		Env:               GetEnv("ENV", "local"),
		Port:              GetEnv("PORT", "8083"),
		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		ImageModel:        GetEnv("IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		TextModel:         GetEnv("TEXT_MODEL", "gemini-2.5-flash"),
		BrokerAddress:     GetEnv("ASYNC_BROKER_ADDRESS", "localhost:6379"),
		R2AccountID:       GetEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     GetEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: GetEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      GetEnv("R2_BUCKET_NAME", ""),
		DownloadPrefix:    GetEnv("DOWNLOAD_PREFIX", "styled-"),
	}
	if cfg.GoogleAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ExportRetention, err = getDuration("EXPORT_RETENTION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.GenerationInterval, err = getDuration("GENERATION_INTERVAL", 0); err != nil {
		return nil, err
	}
	cfg.AuditRetentionDays, err = strconv.Atoi(GetEnv("AUDIT_RETENTION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_RETENTION_DAYS: %w", err)
	}
	return cfg, nil
}
