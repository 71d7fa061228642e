package config

import (
	"testing"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("ZEMA_JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("Load accepted an empty JWT secret")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ZEMA_JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Errorf("env = %q, want dev", cfg.Env)
	}
	if cfg.MaxImageSize != 10*1024*1024 {
		t.Errorf("maxImageSize = %d, want 10MiB", cfg.MaxImageSize)
	}
	if cfg.MaxAudioSize != 50*1024*1024 {
		t.Errorf("maxAudioSize = %d, want 50MiB", cfg.MaxAudioSize)
	}
	if len(cfg.AllowedImageTypes) == 0 || len(cfg.AllowedAudioTypes) == 0 {
		t.Error("default MIME allow-lists are empty")
	}
	if cfg.AssetStoreConfigured() {
		t.Error("asset store reported configured without endpoint/bucket")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ZEMA_JWT_SECRET", "test-secret")
	t.Setenv("ZEMA_PORT", "9090")
	t.Setenv("ZEMA_MAX_IMAGE_SIZE", "1024")
	t.Setenv("ZEMA_RATE_LIMIT_RPS", "2.5")
	t.Setenv("ZEMA_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.MaxImageSize != 1024 {
		t.Errorf("maxImageSize = %d", cfg.MaxImageSize)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("rateLimitRPS = %v", cfg.RateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v, want trimmed pair", cfg.CORSAllowedOrigins)
	}
}

func TestAssetStoreConfigured(t *testing.T) {
	t.Setenv("ZEMA_JWT_SECRET", "test-secret")
	t.Setenv("ZEMA_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("ZEMA_S3_BUCKET", "assets")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.AssetStoreConfigured() {
		t.Error("asset store with endpoint+bucket reported unconfigured")
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ZEMA_JWT_SECRET", "test-secret")
	t.Setenv("ZEMA_MAX_IMAGE_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxImageSize != 10*1024*1024 {
		t.Errorf("maxImageSize = %d, want the default on parse failure", cfg.MaxImageSize)
	}
}
