package api

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store holds the live configuration for one launcher run and persists
// remote updates to a local file so later runs start from the refreshed
// values.
type Store struct {
	mu        sync.RWMutex
	cfg       *Config
	localPath string
}

// NewStore wraps an already loaded config. localPath may be empty, in which
// case applied updates are kept in memory only.
func NewStore(cfg *Config, localPath string) *Store {
	return &Store{cfg: cfg, localPath: localPath}
}

// Current returns the active configuration.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// ApplyRemote merges a fetched config over the current one, swaps the
// result in, and writes it to the local config path.
func (s *Store) ApplyRemote(remote *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := Apply(s.cfg, remote)
	if err != nil {
		return err
	}
	s.cfg = merged

	if s.localPath == "" {
		return nil
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.localPath, data, 0o644); err != nil {
		return fmt.Errorf("writing local config: %w", err)
	}
	return nil
}
