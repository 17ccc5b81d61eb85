// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string
	Port        string
	RedisAddr   string

	UploadDir      string
	ArtifactDir    string
	PublicBaseURL  string
	DownloadSecret string
	DownloadTTL    time.Duration

	ImportWorkers      int
	ExportWorkers      int
	MaxBatchSize       int
	ExportPageSize     int
	JobMaxAttempts     int
	LeaseDuration      time.Duration
	WorkerPollInterval time.Duration
	CommitTimeout      time.Duration
	WriteRatePerSec    float64

	BodyLimit string
	LogLevel  string
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("ARTIFACT_DIR", "exports")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("DOWNLOAD_TTL", "15m")
	v.SetDefault("IMPORT_WORKERS", 4)
	v.SetDefault("EXPORT_WORKERS", 2)
	v.SetDefault("MAX_BATCH_SIZE", 500)
	v.SetDefault("EXPORT_PAGE_SIZE", 500)
	v.SetDefault("JOB_MAX_ATTEMPTS", 3)
	v.SetDefault("JOB_LEASE_DURATION", "60s")
	v.SetDefault("WORKER_POLL_INTERVAL", "500ms")
	v.SetDefault("COMMIT_TIMEOUT", "10s")
	v.SetDefault("WRITE_RATE_PER_SEC", 0.0)
	v.SetDefault("BODY_LIMIT", "50M")
	v.SetDefault("LOG_LEVEL", "info")

	databaseURL := v.GetString("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	downloadSecret := v.GetString("DOWNLOAD_SECRET")
	if downloadSecret == "" {
		return nil, fmt.Errorf("DOWNLOAD_SECRET is required")
	}

	downloadTTL, err := time.ParseDuration(v.GetString("DOWNLOAD_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOWNLOAD_TTL: %w", err)
	}
	leaseDuration, err := time.ParseDuration(v.GetString("JOB_LEASE_DURATION"))
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_LEASE_DURATION: %w", err)
	}
	pollInterval, err := time.ParseDuration(v.GetString("WORKER_POLL_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_POLL_INTERVAL: %w", err)
	}
	commitTimeout, err := time.ParseDuration(v.GetString("COMMIT_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMIT_TIMEOUT: %w", err)
	}

	return &Config{
		DatabaseURL:        databaseURL,
		Port:               v.GetString("PORT"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		UploadDir:          v.GetString("UPLOAD_DIR"),
		ArtifactDir:        v.GetString("ARTIFACT_DIR"),
		PublicBaseURL:      v.GetString("PUBLIC_BASE_URL"),
		DownloadSecret:     downloadSecret,
		DownloadTTL:        downloadTTL,
		ImportWorkers:      v.GetInt("IMPORT_WORKERS"),
		ExportWorkers:      v.GetInt("EXPORT_WORKERS"),
		MaxBatchSize:       v.GetInt("MAX_BATCH_SIZE"),
		ExportPageSize:     v.GetInt("EXPORT_PAGE_SIZE"),
		JobMaxAttempts:     v.GetInt("JOB_MAX_ATTEMPTS"),
		LeaseDuration:      leaseDuration,
		WorkerPollInterval: pollInterval,
		CommitTimeout:      commitTimeout,
		WriteRatePerSec:    v.GetFloat64("WRITE_RATE_PER_SEC"),
		BodyLimit:          v.GetString("BODY_LIMIT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}, nil
}
