package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATA_DIR", "SQLITE_PATH", "PORT", "FMP_BASE_URL", "FMP_API_KEY",
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_BASE_URL",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/var/lib/tapefeed/data"
  sqlite_path: "/var/lib/tapefeed/tapefeed.db"
server:
  host: "0.0.0.0"
  port: 9000
upstream:
  base_url: "https://example.com/api"
  api_key: "upstream-key"
  rate_limit_per_min: 60
alpaca:
  api_key: "alpaca-key"
  api_secret: "alpaca-secret"
logging:
  level: "debug"
  format: "text"
ingest:
  days: 7
  pages: 5
  per_page: 100
feed:
  commit_quiet_ms: 300
  suggest_quiet_ms: 100
  page_size: 25
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.DataDir != "/var/lib/tapefeed/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL != "https://example.com/api" || cfg.Upstream.APIKey != "upstream-key" {
		t.Errorf("Upstream = %+v", cfg.Upstream)
	}
	if cfg.Upstream.RateLimitPerMin != 60 {
		t.Errorf("Upstream.RateLimitPerMin = %d, want 60", cfg.Upstream.RateLimitPerMin)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Ingest.Days != 7 || cfg.Ingest.Pages != 5 || cfg.Ingest.PerPage != 100 {
		t.Errorf("Ingest = %+v", cfg.Ingest)
	}
	if cfg.Feed.CommitQuietMS != 300 || cfg.Feed.SuggestQuietMS != 100 || cfg.Feed.PageSize != 25 {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, `storage: {data_dir: "/data"}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Upstream.RateLimitPerMin != 120 {
		t.Errorf("default rate limit = %d, want 120", cfg.Upstream.RateLimitPerMin)
	}
	if cfg.Ingest.Days != 30 || cfg.Ingest.Pages != 3 || cfg.Ingest.PerPage != 200 {
		t.Errorf("default Ingest = %+v", cfg.Ingest)
	}
	if cfg.Feed.CommitQuietMS != 400 || cfg.Feed.SuggestQuietMS != 150 || cfg.Feed.PageSize != 50 {
		t.Errorf("default Feed = %+v", cfg.Feed)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/override/data")
	t.Setenv("FMP_API_KEY", "env-upstream-key")
	t.Setenv("ALPACA_API_KEY", "config-name-key")
	t.Setenv("APCA_API_KEY_ID", "canonical-key")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, `
storage: {data_dir: "/file/data"}
upstream: {api_key: "file-key"}
alpaca: {api_key: "file-alpaca-key"}
logging: {level: "info"}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.DataDir != "/override/data" {
		t.Errorf("DataDir = %q, want env override", cfg.Storage.DataDir)
	}
	if cfg.Upstream.APIKey != "env-upstream-key" {
		t.Errorf("Upstream.APIKey = %q, want env override", cfg.Upstream.APIKey)
	}
	// Canonical SDK names beat the config-file names.
	if cfg.Alpaca.APIKey != "canonical-key" {
		t.Errorf("Alpaca.APIKey = %q, want canonical env name to win", cfg.Alpaca.APIKey)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want env override", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load on a missing file succeeded")
	}
}
