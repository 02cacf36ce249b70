package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tapefeed services.
type Config struct {
	Storage  Storage      `yaml:"storage"`
	Server   Server       `yaml:"server"`
	Upstream Upstream     `yaml:"upstream"`
	Alpaca   Alpaca       `yaml:"alpaca"`
	Logging  Logging      `yaml:"logging"`
	Ingest   IngestConfig `yaml:"ingest"`
	Feed     FeedConfig   `yaml:"feed"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Upstream holds credentials and endpoints for the filings provider.
type Upstream struct {
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Alpaca holds credentials for the Alpaca broker API, used for the
// watchlist endpoints.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IngestConfig bounds one ingest run.
type IngestConfig struct {
	Days    int `yaml:"days"`
	Pages   int `yaml:"pages"`
	PerPage int `yaml:"per_page"`
}

// FeedConfig holds client-side tuning: quiet periods and page size.
type FeedConfig struct {
	CommitQuietMS  int `yaml:"commit_quiet_ms"`
	SuggestQuietMS int `yaml:"suggest_quiet_ms"`
	PageSize       int `yaml:"page_size"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into
// a Config struct, applies environment variable overrides, and fills
// defaults for unset tuning values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a config with every tuning default filled, for use when
// no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://financialmodelingprep.com/stable"
	}
	if cfg.Upstream.RateLimitPerMin == 0 {
		cfg.Upstream.RateLimitPerMin = 120
	}
	if cfg.Ingest.Days == 0 {
		cfg.Ingest.Days = 30
	}
	if cfg.Ingest.Pages == 0 {
		cfg.Ingest.Pages = 3
	}
	if cfg.Ingest.PerPage == 0 {
		cfg.Ingest.PerPage = 200
	}
	if cfg.Feed.CommitQuietMS == 0 {
		cfg.Feed.CommitQuietMS = 400
	}
	if cfg.Feed.SuggestQuietMS == 0 {
		cfg.Feed.SuggestQuietMS = 150
	}
	if cfg.Feed.PageSize == 0 {
		cfg.Feed.PageSize = 50
	}
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("FMP_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		cfg.Upstream.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
