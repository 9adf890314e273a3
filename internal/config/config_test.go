package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.JWTIssuer != "hostelhub" {
		t.Errorf("JWTIssuer = %q", cfg.JWTIssuer)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Errorf("AccessTTL = %s", cfg.AccessTTL)
	}
	if cfg.QueueBackend != "redis" {
		t.Errorf("QueueBackend = %q", cfg.QueueBackend)
	}
	if !cfg.FaceMock {
		t.Error("FaceMock should default on")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("ACCESS_TTL", "1h")
	t.Setenv("FACE_MOCK", "false")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")

	cfg := Load()
	if cfg.HTTPPort != "9000" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.AccessTTL != time.Hour {
		t.Errorf("AccessTTL = %s", cfg.AccessTTL)
	}
	if cfg.FaceMock {
		t.Error("FACE_MOCK=false not honored")
	}
	if cfg.RateLimitPerMin != 30 {
		t.Errorf("RateLimitPerMin = %d", cfg.RateLimitPerMin)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TTL", "soon")
	t.Setenv("FACE_MOCK", "maybe")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")

	cfg := Load()
	if cfg.AccessTTL != 15*time.Minute {
		t.Errorf("AccessTTL = %s, want fallback", cfg.AccessTTL)
	}
	if !cfg.FaceMock {
		t.Error("invalid bool should keep the default")
	}
	if cfg.RateLimitPerMin != 120 {
		t.Errorf("RateLimitPerMin = %d, want fallback", cfg.RateLimitPerMin)
	}
}
