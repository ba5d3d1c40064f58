package api

import (
	"fmt"

	"dario.cat/mergo"
)

// Apply merges a remotely fetched config over the current one and returns a
// new validated value. Neither input is mutated. Non-zero remote fields win;
// zero values (false flags, empty lists) keep the current setting.
func Apply(current, remote *Config) (*Config, error) {
	merged := *current
	if err := mergo.Merge(&merged, *remote, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging remote config: %w", err)
	}
	merged.FilePath = current.FilePath

	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("merged config invalid: %w", err)
	}

	return &merged, nil
}
