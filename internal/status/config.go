package status

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadConfig reads and parses the component check configuration file.
// A missing file is an error: without a config there is nothing to monitor.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read check config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse check config: %w", err)
	}

	// Environment overrides win over file values so tokens stay out of the
	// committed config.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHubToken = token
	}
	if repo := os.Getenv("GITHUB_REPO"); repo != "" {
		cfg.GitHubRepo = repo
	}

	return &cfg, nil
}
