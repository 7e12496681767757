package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}
	if cfg.DigestTime != "09:00" {
		t.Errorf("DigestTime = %q, want 09:00", cfg.DigestTime)
	}
	if cfg.SyncCron != "*/30 * * * *" {
		t.Errorf("SyncCron = %q", cfg.SyncCron)
	}
	if cfg.HorizonDays != 30 {
		t.Errorf("HorizonDays = %d, want 30", cfg.HorizonDays)
	}
	if cfg.Timezone == nil || cfg.Timezone.String() != "UTC" {
		t.Errorf("Timezone = %v, want UTC", cfg.Timezone)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calshare.yml")
	data := `
listen: ":9090"
db_path: /var/lib/calshare/db.sqlite
timezone: Europe/Berlin
digest_time: "08:30"
telegram:
  token: abc123
digest_targets:
  - email: alice@example.com
    chat_id: 42
feeds:
  - url: https://dav.example.com
    username: alice
    password: secret
    collection: /calendars/alice/work/
    calendar_id: 6f1e4a0e-0000-0000-0000-000000000000
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.DatabasePath != "/var/lib/calshare/db.sqlite" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Timezone.String() != "Europe/Berlin" {
		t.Errorf("Timezone = %v", cfg.Timezone)
	}
	if cfg.Telegram.Token != "abc123" {
		t.Errorf("Telegram.Token = %q", cfg.Telegram.Token)
	}
	if len(cfg.DigestTargets) != 1 || cfg.DigestTargets[0].ChatID != 42 {
		t.Errorf("DigestTargets = %+v", cfg.DigestTargets)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Collection != "/calendars/alice/work/" {
		t.Errorf("Feeds = %+v", cfg.Feeds)
	}
	// File values not overridden by env keep YAML content.
	if cfg.DigestTime != "08:30" {
		t.Errorf("DigestTime = %q", cfg.DigestTime)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CALSHARE_LISTEN", ":7070")
	t.Setenv("CALSHARE_TIMEZONE", "America/New_York")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7070" {
		t.Errorf("Listen = %q, want env override", cfg.Listen)
	}
	if cfg.Timezone.String() != "America/New_York" {
		t.Errorf("Timezone = %v, want env override", cfg.Timezone)
	}
}

func TestLoadBadTimezone(t *testing.T) {
	t.Setenv("CALSHARE_TIMEZONE", "Mars/Olympus")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
