package api

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	urls := []struct {
		name  string
		value string
	}{
		{"config_url", c.ConfigURL},
		{"content_url", c.ContentURL},
		{"update_url", c.UpdateURL},
	}

	for _, u := range urls {
		if err := validateURL(u.name, u.value); err != nil {
			return err
		}
	}

	lists := []struct {
		name  string
		items []string
	}{
		{"resources", c.Resources},
		{"engines", c.Engines},
		{"games", c.Games},
		{"maps", c.Maps},
		{"nextgen", c.NextGen},
	}

	for _, l := range lists {
		if err := validateIDs(l.name, l.items); err != nil {
			return err
		}
	}

	return nil
}

func validateURL(name, value string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", name, u.Scheme)
	}
	return nil
}

func validateIDs(list string, items []string) error {
	seen := make(map[string]int)
	for i, id := range items {
		if id == "" {
			return fmt.Errorf("%s[%d]: id is empty", list, i)
		}
		if prev, exists := seen[id]; exists {
			return fmt.Errorf("%s[%d]: duplicate id %q (first at %d)", list, i, id, prev)
		}
		seen[id] = i
	}
	return nil
}
