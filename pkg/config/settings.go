// Package config defines the node's typed configuration and the
// IS-09 system-global merge rule (spec SPEC_FULL.md section 1.3),
// adapted from the teacher's pkg/config.Manager (load/save a YAML
// document under a mutex, atomic temp-file-then-rename save).
package config

import "time"

// InterfaceConfig names one host network interface available to bind
// senders/receivers to.
type InterfaceConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// LogConfig configures internal/logger.
type LogConfig struct {
	Path       string `yaml:"path"`
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Categories string `yaml:"categories"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// AuthConfig mirrors pkg/api.AuthConfig in YAML-friendly form; the
// caller of Load (cmd/nvnmos-example's loadSettings) converts it, so
// pkg/config has no dependency on pkg/api.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Secret    string `yaml:"secret"`
	TokenHash string `yaml:"token_hash"`
}

// SystemGlobal is the subset of an IS-09 system-global resource this
// node consumes (spec section 4.7 "inward side").
type SystemGlobal struct {
	HeartbeatIntervalSeconds    int      `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	DiscoveryIntervalMinSeconds int      `mapstructure:"discovery_interval_min" yaml:"discovery_interval_min"`
	DiscoveryIntervalMaxSeconds int      `mapstructure:"discovery_interval_max" yaml:"discovery_interval_max"`
	BackoffMinSeconds           int      `mapstructure:"backoff_min" yaml:"backoff_min"`
	BackoffMaxSeconds           int      `mapstructure:"backoff_max" yaml:"backoff_max"`
	Tags                        []string `mapstructure:"tags" yaml:"tags"`
}

// Settings is the node's complete typed configuration.
type Settings struct {
	Seed     string `yaml:"seed"`
	Hostname string `yaml:"hostname"`
	HTTPPort int    `yaml:"http_port"`

	Label        string `yaml:"label"`
	Description  string `yaml:"description"`
	Manufacturer string `yaml:"manufacturer"`
	Product      string `yaml:"product"`
	InstanceID   string `yaml:"instance_id"`

	Functions      []string          `yaml:"functions"`
	HostInterfaces []InterfaceConfig `yaml:"host_interfaces"`

	InitialSenders   []string `yaml:"initial_senders"`   // sender SDP file paths
	InitialReceivers []string `yaml:"initial_receivers"` // receiver SDP file paths

	Log  LogConfig  `yaml:"log"`
	Auth AuthConfig `yaml:"auth"`

	System SystemGlobal `yaml:"system"`
}

// HeartbeatInterval is System.HeartbeatIntervalSeconds as a
// time.Duration, defaulting to 5s per BCP-002-01 when unset. Value
// receiver so it can be called directly on Store.Get()'s return value.
func (s Settings) HeartbeatInterval() time.Duration {
	if s.System.HeartbeatIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.System.HeartbeatIntervalSeconds) * time.Second
}

// Validate mirrors the teacher's cfg.Validate() call convention in
// main.go: reject configuration that would make the rest of the
// system misbehave rather than degrading silently.
func (s *Settings) Validate() error {
	if s.Seed == "" {
		return errSeedRequired
	}
	if s.Hostname == "" {
		return errHostnameRequired
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return errInvalidPort
	}
	return nil
}
