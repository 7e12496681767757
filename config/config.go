package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TelegramConfig enables the daily digest when a token is present.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// DigestTarget is one recipient of the daily agenda digest.
type DigestTarget struct {
	Email  string `yaml:"email"`
	ChatID int64  `yaml:"chat_id"`
}

// FeedConfig describes one remote CalDAV collection to import into a
// local calendar.
type FeedConfig struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Collection string `yaml:"collection"`
	CalendarID string `yaml:"calendar_id"`
}

type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `yaml:"db_path"`

	// TimezoneName is the IANA zone used for cron schedules and digest
	// day boundaries.
	TimezoneName string `yaml:"timezone"`

	// DigestTime is the local HH:MM at which the agenda digest runs.
	DigestTime string `yaml:"digest_time"`

	// SyncCron is the cron schedule for CalDAV feed imports.
	SyncCron string `yaml:"sync_cron"`

	// HorizonDays is how far ahead feed imports look.
	HorizonDays int `yaml:"horizon_days"`

	Telegram      TelegramConfig `yaml:"telegram"`
	DigestTargets []DigestTarget `yaml:"digest_targets"`
	Feeds         []FeedConfig   `yaml:"feeds"`

	// Timezone is resolved from TimezoneName during Load.
	Timezone *time.Location `yaml:"-"`
}

// Load reads the YAML config at path (missing file is fine, defaults
// apply) and then lets environment variables override the deploy-specific
// settings.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Listen:       ":8080",
		DatabasePath: "./data/calshare.db",
		TimezoneName: "UTC",
		DigestTime:   "09:00",
		SyncCron:     "*/30 * * * *",
		HorizonDays:  30,
	}

	if path == "" {
		path = "./calshare.yml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Run on defaults and environment only.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if v := os.Getenv("CALSHARE_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("CALSHARE_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("CALSHARE_TIMEZONE"); v != "" {
		cfg.TimezoneName = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}

	tz, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.TimezoneName, err)
	}
	cfg.Timezone = tz

	return cfg, nil
}
