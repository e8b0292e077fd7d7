// Package config provides configuration loading and structs for the Shoko server.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/shoko/internal/vector"
)

// Config holds all configuration for the application.
type Config struct {
	Debug  bool         `yaml:"debug"`
	Server ServerConfig `yaml:"server"`
	Index  IndexConfig  `yaml:"index"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// IndexRateLimit is the number of index rebuilds allowed per second; 0 disables the limit.
	IndexRateLimit float64 `yaml:"index_rate_limit"`
	IndexBurst     int     `yaml:"index_burst"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IndexConfig holds index construction and search settings.
type IndexConfig struct {
	DefaultAlgorithm string        `yaml:"default_algorithm"`
	DefaultMetric    string        `yaml:"default_metric"`
	DefaultK         int           `yaml:"default_k"`
	MaxK             int           `yaml:"max_k"`
	LockTimeout      time.Duration `yaml:"lock_timeout"`
	// ParallelBuildThreshold is the subtree size above which trees build concurrently.
	// Negative disables parallel builds.
	ParallelBuildThreshold int `yaml:"parallel_build_threshold"`
	BallLeafSize           int `yaml:"ball_leaf_size"`
}

// Load reads and parses the config file at path and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting in cfg.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}
	if cfg.Server.IndexRateLimit < 0 {
		errs = append(errs, errors.New("server.index_rate_limit must not be negative"))
	}
	if _, err := vector.ParseAlgorithm(cfg.Index.DefaultAlgorithm); err != nil {
		errs = append(errs, fmt.Errorf("index.default_algorithm: %w", err))
	}
	if _, err := vector.ParseMetric(cfg.Index.DefaultMetric); err != nil {
		errs = append(errs, fmt.Errorf("index.default_metric: %w", err))
	}
	if cfg.Index.DefaultK <= 0 {
		errs = append(errs, errors.New("index.default_k must be positive"))
	}
	if cfg.Index.MaxK < cfg.Index.DefaultK {
		errs = append(errs, fmt.Errorf("index.max_k %d is below default_k %d", cfg.Index.MaxK, cfg.Index.DefaultK))
	}
	if cfg.Index.BallLeafSize < 1 {
		errs = append(errs, errors.New("index.ball_leaf_size must be at least 1"))
	}
	return errors.Join(errs...)
}
