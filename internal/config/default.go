package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultYAML returns the built-in defaults every loaded file is layered on
func DefaultYAML() string {
	return string(defaultYAML)
}

// LoadDefault parses the built-in defaults. The result has no stream URL
// and does not pass Validate on its own.
func LoadDefault() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing built-in defaults: %w", err)
	}
	return cfg, nil
}
