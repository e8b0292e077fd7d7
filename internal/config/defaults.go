package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.IndexBurst == 0 {
		cfg.Server.IndexBurst = 1
	}
	if cfg.Index.DefaultAlgorithm == "" {
		cfg.Index.DefaultAlgorithm = "linear_search"
	}
	if cfg.Index.DefaultMetric == "" {
		cfg.Index.DefaultMetric = "euclidean"
	}
	if cfg.Index.DefaultK == 0 {
		cfg.Index.DefaultK = 5
	}
	if cfg.Index.MaxK == 0 {
		cfg.Index.MaxK = 1000
	}
	if cfg.Index.LockTimeout == 0 {
		cfg.Index.LockTimeout = 5 * time.Second
	}
	if cfg.Index.ParallelBuildThreshold == 0 {
		cfg.Index.ParallelBuildThreshold = 4096
	}
	if cfg.Index.BallLeafSize == 0 {
		cfg.Index.BallLeafSize = 16
	}
}
