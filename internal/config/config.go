package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Store types accepted in Config.Store.Type.
const (
	StoreLevelDB  = "leveldb"
	StoreJSON     = "json"
	StorePostgres = "postgres"
)

// StoreConfig selects and configures the catalog storage.
type StoreConfig struct {
	Type string `json:"type"` // leveldb (default), json or postgres
	Path string `json:"path"` // Directory for leveldb, file for json
	DSN  string `json:"dsn"`  // Connection string for postgres
}

// Config is the tsxserve configuration.
type Config struct {
	AssetRoot    string      `json:"asset_root"`    // Root of the asset tree, image sources resolve inside it
	Tilesets     []string    `json:"tilesets"`      // .tsx paths relative to AssetRoot
	Listen       string      `json:"listen"`        // HTTP listen address
	PollInterval Duration    `json:"poll_interval"` // How often tileset files are checked for changes
	CheckImages  bool        `json:"check_images"`  // Open referenced images during validation
	Store        StoreConfig `json:"store"`
}

// Duration is a time.Duration written as a string ("2s") in JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Load reads a JSON config file, applies environment overrides and
// defaults, and validates the result.
func Load(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets the deployment override the listen address and store.
func (c *Config) applyEnv() {
	if v := os.Getenv("TSX_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("TSX_STORE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DSN = v
	}
}

func (c *Config) applyDefaults() {
	if c.AssetRoot == "" {
		c.AssetRoot = "."
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.PollInterval.Duration == 0 {
		c.PollInterval.Duration = 2 * time.Second
	}
	if c.Store.Type == "" {
		c.Store.Type = StoreLevelDB
	}
	if c.Store.Path == "" {
		switch c.Store.Type {
		case StoreLevelDB:
			c.Store.Path = "data/catalog"
		case StoreJSON:
			c.Store.Path = "data/catalog.json"
		}
	}
}

// Validate checks the fields Load cannot default.
func (c *Config) Validate() error {
	if len(c.Tilesets) == 0 {
		return fmt.Errorf("at least one tileset is required")
	}
	for _, ts := range c.Tilesets {
		if ts == "" {
			return fmt.Errorf("tileset path cannot be empty")
		}
	}
	if c.PollInterval.Duration < 0 {
		return fmt.Errorf("poll_interval (%v) cannot be negative", c.PollInterval.Duration)
	}

	switch c.Store.Type {
	case StoreLevelDB, StoreJSON:
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}

	return nil
}

// Save writes the configuration as indented JSON.
func Save(filepath string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
