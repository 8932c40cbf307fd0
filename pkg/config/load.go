package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	errSeedRequired     = errors.New("config: seed is required")
	errHostnameRequired = errors.New("config: hostname is required")
	errInvalidPort      = errors.New("config: http_port must be between 1 and 65535")
)

// Load reads and parses a Settings document from path, the way the
// teacher's Manager.loadConfig reads its YAML file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &s, nil
}

// Save persists s to path atomically (write to a temp file, then
// rename), matching the teacher's Manager.saveConfig.
func Save(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: rename temp file: %w", err)
	}
	return nil
}
