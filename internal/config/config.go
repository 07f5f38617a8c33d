// Package config holds the service configuration and its validation.
//
// Resolution order mirrors the commands: optional YAML file first, then
// environment variables override, then defaults fill the gaps. The env names
// match what the deployment already exports for the upstream spreadsheet and
// the Supabase project.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is everything the sync service needs to run.
type Config struct {
	// FeedURL is the Apps Script (or published sheet) endpoint returning the
	// full feed.
	FeedURL string `yaml:"feed_url"`

	// DatabaseDSN is the destination database connection string.
	DatabaseDSN string `yaml:"database_dsn"`

	// StoreEndpoint and StoreKey identify the destination-store REST surface
	// (Supabase project URL + service key). Required for the supabase kind.
	StoreEndpoint string `yaml:"store_endpoint"`
	StoreKey      string `yaml:"store_key"`

	// StorageKind selects the destination backend ("supabase", "postgres",
	// "sqlite", "mssql").
	StorageKind string `yaml:"storage_kind"`

	// WebhookSecret authenticates POST /webhook/sync. With an empty secret
	// the webhook rejects everything.
	WebhookSecret string `yaml:"webhook_secret"`

	// ListenAddr is the HTTP listen address of the trigger surface.
	ListenAddr string `yaml:"listen_addr"`

	// SettleDelay is the pause after each table create, covering
	// asynchronous schema-cache propagation in front of the database.
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Load reads the optional YAML file at path (empty path skips the file),
// applies environment overrides, and fills defaults.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfEnv := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	setIfEnv(&cfg.FeedURL, "APPS_SCRIPT_URL")
	setIfEnv(&cfg.DatabaseDSN, "SALES_DATABASE_URI")
	setIfEnv(&cfg.StoreEndpoint, "SUPABASE_URL")
	setIfEnv(&cfg.StoreKey, "SUPABASE_SERVICE_KEY")
	setIfEnv(&cfg.WebhookSecret, "WEBHOOK_SECRET")
	setIfEnv(&cfg.StorageKind, "SYNC_STORAGE_KIND")
	setIfEnv(&cfg.ListenAddr, "LISTEN_ADDR")
}

func applyDefaults(cfg *Config) {
	if cfg.StorageKind == "" {
		cfg.StorageKind = "supabase"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 2 * time.Second
	}
}

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Validate checks the configuration before any side effect happens. Missing
// required connection values are errors; the caller must abort the sync on
// any error-severity issue.
func Validate(cfg Config) []Issue {
	var issues []Issue

	requireString := func(v, path string) {
		if strings.TrimSpace(v) == "" {
			issues = append(issues, Issue{SeverityError, path, "required value is missing"})
		}
	}

	requireString(cfg.FeedURL, "feed_url")
	requireString(cfg.DatabaseDSN, "database_dsn")

	switch cfg.StorageKind {
	case "supabase":
		requireString(cfg.StoreEndpoint, "store_endpoint")
		requireString(cfg.StoreKey, "store_key")
	case "postgres", "sqlite", "mssql":
		// SQL-only kinds need no REST surface.
	default:
		issues = append(issues, Issue{SeverityError, "storage_kind",
			fmt.Sprintf("unsupported kind %q", cfg.StorageKind)})
	}

	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		issues = append(issues, Issue{SeverityWarning, "webhook_secret",
			"no secret configured; the sync webhook will reject every request"})
	}

	return issues
}

// HasError reports whether any issue is fatal.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
