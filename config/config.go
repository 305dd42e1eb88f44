// Package config loads the valpas configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPendingState = "pendingAcceptance"
	defaultWorkers      = 4
	defaultInterval     = 5 * time.Minute
	defaultMetricsAddr  = ":9090"
)

// Config represents the main configuration.
type Config struct {
	Version      string `yaml:"version"`
	HubRegion    string `yaml:"hub_region"`
	AssumeRole   string `yaml:"assume_role"`
	PendingState string `yaml:"pending_state,omitempty"`
	IPAM         IPAM   `yaml:"ipam"`
	Scan         Scan   `yaml:"scan,omitempty"`
	Daemon       Daemon `yaml:"daemon,omitempty"`
}

// IPAM points at the centralized address management scope.
type IPAM struct {
	ScopeID string `yaml:"scope_id"`
	Region  string `yaml:"region"`
}

// Scan tunes the per-pass evaluation.
type Scan struct {
	Workers int `yaml:"workers,omitempty"`
}

// Daemon configures the interval runner.
type Daemon struct {
	Interval    time.Duration `yaml:"interval,omitempty"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
}

// Load reads, parses and validates configuration from file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Validate ensures config has required fields.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.HubRegion == "" {
		return fmt.Errorf("hub_region is required")
	}
	if c.AssumeRole == "" {
		return fmt.Errorf("assume_role is required")
	}
	if c.IPAM.ScopeID == "" {
		return fmt.Errorf("ipam.scope_id is required")
	}
	if c.IPAM.Region == "" {
		return fmt.Errorf("ipam.region is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.PendingState == "" {
		c.PendingState = defaultPendingState
	}
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = defaultWorkers
	}
	if c.Daemon.Interval <= 0 {
		c.Daemon.Interval = defaultInterval
	}
	if c.Daemon.MetricsAddr == "" {
		c.Daemon.MetricsAddr = defaultMetricsAddr
	}
}
