// Package config reads and writes the per-repository braid settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigVersion is written into new config files.
const ConfigVersion = "1"

// Config represents the flat braid configuration stored in
// .braid/config.json at the repository root.
type Config struct {
	Version   string `json:"version"`
	Backend   string `json:"backend"`             // "file", "branch", or "notes"
	DataDir   string `json:"data_dir,omitempty"`  // overrides the hashed default for the file backend
	GitRef    string `json:"git_ref,omitempty"`   // overrides the default data ref for the branch backend
	SyncAddr  string `json:"sync_addr,omitempty"` // listen address for braid serve
	Retention int    `json:"retention,omitempty"` // catch-up buffer size for the sync hub
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{Version: ConfigVersion, Backend: "file"}
}

// Load reads .braid/config.json from the specified directory.
// Resolution order: dir only, no home fallback. A missing file yields
// the defaults, not an error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ".braid", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Backend == "" {
		cfg.Backend = "file"
	}
	return &cfg, nil
}

// Save writes config.json under .braid in the given directory.
func Save(dir string, cfg *Config) error {
	braidDir := filepath.Join(dir, ".braid")
	if err := os.MkdirAll(braidDir, 0755); err != nil {
		return fmt.Errorf("failed to create .braid dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(braidDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
