package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"APP_ENV", "PORT", "DATABASE_URL", "JWT_SECRET", "GOOGLE_CALENDAR_ID",
		"GOOGLE_SERVICE_ACCOUNT_EMAIL", "GOOGLE_SERVICE_ACCOUNT_KEY", "LOG_LEVEL",
		"ALLOWED_ORIGINS", "TRUST_PROXY",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileAndDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
env: production
server:
  port: 9000
  allowed_origins:
    - https://app.example.com
jwt:
  secret: `+testSecret+`
calendar:
  calendar_id: team@group.calendar.google.com
  fetch_timeout: 10s
database:
  host: db
  port: 5432
  user: app
  password: "p@ss word"
  dbname: events
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if !cfg.IsProduction() {
		t.Error("expected production env")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.TrustProxy {
		t.Error("TrustProxy should default to false")
	}
	if cfg.Calendar.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want 10s", cfg.Calendar.FetchTimeout)
	}
	if cfg.Calendar.WindowMonths != 6 || cfg.Calendar.Provider != "google" {
		t.Errorf("calendar defaults not applied: %+v", cfg.Calendar)
	}
	if cfg.Session.CookieName != "session" || cfg.Session.TTL != 30*24*time.Hour {
		t.Errorf("session defaults not applied: %+v", cfg.Session)
	}
	if cfg.RateLimit.LoginAttempts != 5 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("rate limit defaults not applied: %+v", cfg.RateLimit)
	}
	dsn := cfg.Database.DSN()
	if !strings.HasPrefix(dsn, "postgres://app:p%40ss%20word@db:5432/events") || !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("DSN() = %q", dsn)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/app")
	t.Setenv("GOOGLE_CALENDAR_ID", "primary")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Database.DSN() != "postgres://u:p@localhost/app" {
		t.Errorf("DSN() = %q", cfg.Database.DSN())
	}
	if cfg.Calendar.CalendarID != "primary" {
		t.Errorf("CalendarID = %q", cfg.Calendar.CalendarID)
	}
	if cfg.IsProduction() {
		t.Error("expected development env by default")
	}
	if got := strings.Join(cfg.Server.AllowedOrigins, "|"); got != "https://a.example.com|https://b.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Server.TrustProxy {
		t.Error("TRUST_PROXY not applied")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "short")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for short jwt secret")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "jwt:\n  secret: "+testSecret+"\ncalendar:\n  provider: outlook\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "eighty")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}
