// Package config provides configuration loading for the catalog service.
// It handles environment variable parsing and provides default values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package
// initialization. godotenv.Load does not override already-set variables, so
// OS env keeps precedence over .env files.
func init() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	// .env.local holds gitignored local overrides
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the catalog service.
type Config struct {
	Env         string // Deployment environment (dev, staging, prod)
	Port        string // HTTP server port
	DatabaseDSN string // PostgreSQL connection string
	NATSURL     string // NATS server URL (empty disables event publishing)

	// Hosted asset store. When endpoint or bucket is empty the integration is
	// considered unconfigured and file uploads are rejected with an explicit
	// error instead of being silently discarded.
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string // Base URL under which uploaded objects are publicly reachable

	// Token signing
	JWTSecret   string // HMAC secret for bearer tokens (required)
	JWTIssuer   string
	JWTAudience string

	// Upload caps per asset kind
	MaxImageSize int64 // bytes, default 10 MiB
	MaxAudioSize int64 // bytes, default 50 MiB

	AllowedImageTypes []string // MIME allow-list for image uploads
	AllowedAudioTypes []string // MIME allow-list for audio uploads

	// Front-door settings
	CORSAllowedOrigins []string // Empty means deny cross-origin requests
	RateLimitRPS       float64  // Sustained requests per second per client
	RateLimitBurst     int      // Burst allowance per client
}

// Default configuration values used when environment variables are not set
const (
	defaultPort     = "8080"
	defaultS3Region = "us-east-1"
	defaultEnv      = "dev"

	defaultMaxImageSize = 10 * 1024 * 1024
	defaultMaxAudioSize = 50 * 1024 * 1024

	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 30
)

// Load reads environment variables and produces a Config suitable for wiring
// the service. Returns an error if required parameters are missing.
func Load() (Config, error) {
	cfg := Config{
		Env:            getEnv("ZEMA_ENV", defaultEnv),
		Port:           getEnv("ZEMA_PORT", defaultPort),
		DatabaseDSN:    os.Getenv("ZEMA_DB_DSN"),
		NATSURL:        os.Getenv("ZEMA_NATS_URL"),
		S3Endpoint:     os.Getenv("ZEMA_S3_ENDPOINT"),
		S3Region:       getEnv("ZEMA_S3_REGION", defaultS3Region),
		S3Bucket:       os.Getenv("ZEMA_S3_BUCKET"),
		S3AccessKey:    os.Getenv("ZEMA_S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("ZEMA_S3_SECRET_KEY"),
		S3PublicURL:    os.Getenv("ZEMA_S3_PUBLIC_URL"),
		JWTSecret:      os.Getenv("ZEMA_JWT_SECRET"),
		JWTIssuer:      getEnv("ZEMA_JWT_ISSUER", "zema-catalog"),
		JWTAudience:    getEnv("ZEMA_JWT_AUDIENCE", "zema-admin"),
		MaxImageSize:   getEnvInt64("ZEMA_MAX_IMAGE_SIZE", defaultMaxImageSize),
		MaxAudioSize:   getEnvInt64("ZEMA_MAX_AUDIO_SIZE", defaultMaxAudioSize),
		RateLimitRPS:   getEnvFloat("ZEMA_RATE_LIMIT_RPS", defaultRateLimitRPS),
		RateLimitBurst: int(getEnvInt64("ZEMA_RATE_LIMIT_BURST", defaultRateLimitBurst)),
	}

	cfg.AllowedImageTypes = getEnvList("ZEMA_ALLOWED_IMAGE_TYPES",
		[]string{"image/jpeg", "image/png", "image/webp", "image/gif"})
	cfg.AllowedAudioTypes = getEnvList("ZEMA_ALLOWED_AUDIO_TYPES",
		[]string{"audio/mpeg", "audio/mp4", "audio/aac", "audio/ogg", "audio/wav"})
	cfg.CORSAllowedOrigins = getEnvList("ZEMA_CORS_ALLOWED_ORIGINS", nil)

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("ZEMA_JWT_SECRET is required")
	}

	return cfg, nil
}

// AssetStoreConfigured reports whether the hosted asset integration has the
// settings it needs to persist uploads.
func (c Config) AssetStoreConfigured() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// getEnv retrieves an environment variable, returning a fallback if not set
// or empty.
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}

// getEnvInt64 parses an integer environment variable with a fallback.
func getEnvInt64(key string, fallback int64) int64 {
	if v, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvFloat parses a float environment variable with a fallback.
func getEnvFloat(key string, fallback float64) float64 {
	if v, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList parses a comma-separated environment variable, trimming
// whitespace around each element.
func getEnvList(key string, fallback []string) []string {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
