// Package config loads NeoSec's root configuration file, following the
// teacher's yaml.v3-based manifest loading pattern (internal/manifest).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/neosec/neosec/internal/model"
)

// Config is NeoSec's root configuration, loaded once at CLI startup and
// passed by value into the orchestrator façade.
type Config struct {
	DataDir            string            `yaml:"data_dir"`
	GlobalTimeout       time.Duration     `yaml:"-"`
	GlobalTimeoutSec    int               `yaml:"global_timeout_seconds"`
	ToolTimeoutsSec     map[string]int    `yaml:"tool_timeouts_seconds"`
	GraceSeconds        int               `yaml:"grace_seconds"`
	StreamCapBytes      int64             `yaml:"stream_cap_bytes"`
	CISeverityThreshold string            `yaml:"ci_severity_threshold"`
	BinaryPaths         map[string]string `yaml:"binary_paths"`
}

// Default returns the built-in defaults used when no config file is
// present, matching the fallbacks spec.md assumes throughout.
func Default() Config {
	return Config{
		DataDir:          "./data",
		GlobalTimeoutSec: 0,
		GraceSeconds:     2,
		StreamCapBytes:   64 << 20,
		ToolTimeoutsSec:  map[string]int{},
		BinaryPaths:      map[string]string{},
	}
}

// Load reads and parses a neosec.yaml configuration file at path, layering
// it over Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.StreamCapBytes <= 0 {
		cfg.StreamCapBytes = 64 << 20
	}
	if cfg.GraceSeconds <= 0 {
		cfg.GraceSeconds = 2
	}
	cfg.GlobalTimeout = time.Duration(cfg.GlobalTimeoutSec) * time.Second
	return cfg, nil
}

// SeverityThreshold resolves the configured CI severity threshold. A nil
// return means "no threshold" -- the spec's Open Question default.
func (c Config) SeverityThreshold() (*model.Severity, error) {
	if c.CISeverityThreshold == "" {
		return nil, nil
	}
	sev, err := model.ParseSeverity(c.CISeverityThreshold)
	if err != nil {
		return nil, err
	}
	return &sev, nil
}

// ToolTimeout resolves the per-tool default timeout, 0 if unconfigured.
func (c Config) ToolTimeout(tool string) time.Duration {
	if secs, ok := c.ToolTimeoutsSec[tool]; ok {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Grace returns the SIGTERM-to-SIGKILL grace period.
func (c Config) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}
