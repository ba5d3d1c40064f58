package api

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a launcher config file, sets FilePath, and validates it.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	cfg.FilePath = absPath

	return cfg, nil
}

// Parse unmarshals and validates a raw YAML config payload. It is used for
// both local files and the remote config fetched at startup.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Exists reports whether a config file is already present on disk. The
// pipeline builder uses this to decide where the config-update step runs:
// on a first run (no local file) the bundled config may be stale, so the
// refresh goes first.
func Exists(filename string) bool {
	st, err := os.Stat(filename)
	return err == nil && !st.IsDir()
}
