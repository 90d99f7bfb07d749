package config

import (
	"testing"
	"time"
)

func TestLoad_AddrOverridesHostAndPort(t *testing.T) {
	t.Setenv("BOOKABLE_HTTP_ADDR", "10.0.0.5:9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPHost != "10.0.0.5" || cfg.HTTPPort != 9999 {
		t.Fatalf("host:port = %s:%d, want 10.0.0.5:9999", cfg.HTTPHost, cfg.HTTPPort)
	}
	if got := cfg.HTTPAddr(); got != "10.0.0.5:9999" {
		t.Fatalf("HTTPAddr() = %q, want 10.0.0.5:9999", got)
	}
}

func TestLoad_AddrWithoutHostKeepsHostDefault(t *testing.T) {
	t.Setenv("BOOKABLE_HTTP_HOST", "0.0.0.0")
	t.Setenv("BOOKABLE_HTTP_ADDR", ":7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPHost != "0.0.0.0" {
		t.Fatalf("host = %q, want 0.0.0.0", cfg.HTTPHost)
	}
	if cfg.HTTPPort != 7070 {
		t.Fatalf("port = %d, want 7070", cfg.HTTPPort)
	}
}

func TestLoad_MalformedAddrFailsLoudly(t *testing.T) {
	cases := []struct {
		name string
		addr string
	}{
		{"no port separator", "nonsense"},
		{"non-numeric port", "localhost:http"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("BOOKABLE_HTTP_ADDR", tc.addr)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() = nil error for addr %q, want error", tc.addr)
			}
		})
	}
}

func TestLoad_ParsesDurations(t *testing.T) {
	t.Setenv("BOOKABLE_SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("BOOKABLE_DATABASE_CONN_MAX_LIFETIME", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ShutdownTimeout != 2*time.Second {
		t.Fatalf("shutdown timeout = %v, want 2s", cfg.ShutdownTimeout)
	}
	if cfg.DBConnMaxLifetime != time.Hour {
		t.Fatalf("conn max lifetime = %v, want 1h", cfg.DBConnMaxLifetime)
	}

	t.Setenv("BOOKABLE_SHUTDOWN_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() = nil error for bad duration, want error")
	}
}
