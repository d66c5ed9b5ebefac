package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected default TTL 24h, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Upload.MaxSize != 10*1024*1024 {
		t.Errorf("expected default max upload 10MB, got %d", cfg.Upload.MaxSize)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode")
	}
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET in production")
	}
}

func TestLoad_ProductionRejectsShortJWTSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for short JWT_SECRET in production")
	}
}

func TestLoad_ProductionAcceptsStrongSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode")
	}
}

func TestLoad_TrimsAnalyzerURLSlash(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("ANALYZER_SERVICE_URL", "http://analyzer:8000/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Downstream.AnalyzerURL != "http://analyzer:8000" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Downstream.AnalyzerURL)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:           "db.internal",
		Port:           5433,
		Name:           "fileanalyzer",
		User:           "admin",
		Password:       "p@ss word",
		ConnectTimeout: 2 * time.Second,
	}

	dsn := d.DSN()
	for _, want := range []string{
		"host=db.internal",
		"port=5433",
		"dbname=fileanalyzer",
		"user=admin",
		"connect_timeout=2",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected DSN to contain %q, got %s", want, dsn)
		}
	}
}
