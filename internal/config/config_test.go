package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
siteInfo:
  fqdn: pledge.example.com
server:
  postgresDsn: "host=db user=postgres"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Otp.TTL() != 5*time.Minute {
		t.Fatalf("expected default ttl, got %v", cfg.Otp.TTL())
	}
	if cfg.Otp.MaxAttempts != 5 {
		t.Fatalf("expected default attempts, got %d", cfg.Otp.MaxAttempts)
	}
	if cfg.Otp.Cooldown() != 60*time.Second {
		t.Fatalf("expected default cooldown, got %v", cfg.Otp.Cooldown())
	}
	if cfg.Server.Listen != ":8000" {
		t.Fatalf("expected default listen, got %s", cfg.Server.Listen)
	}
}

func TestLoadRejectsBadTestCode(t *testing.T) {
	path := writeFile(t, "config.yaml", `
otp:
  testMode: true
  testCode: "12"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for short test code")
	}
}

func TestLoadCatalog(t *testing.T) {
	path := writeFile(t, "catalog.yaml", `
- id: env-cleanliness
  title: Environment & Cleanliness Pledge
  category: environment
  oathText: I pledge to keep my surroundings clean.
`)

	defs, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog failed: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition got %d", len(defs))
	}
	if defs[0].Title != "Environment & Cleanliness Pledge" {
		t.Fatalf("unexpected title: %s", defs[0].Title)
	}
}
