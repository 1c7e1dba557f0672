package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Cache.StaticTTL == 0 {
		cfg.Cache.StaticTTL = 24 * time.Hour
	}
	if cfg.Cache.DynamicTTL == 0 {
		cfg.Cache.DynamicTTL = 5 * time.Minute
	}
	if cfg.Cache.TokenURITTL == 0 {
		cfg.Cache.TokenURITTL = time.Hour
	}
	if cfg.Cache.PageTTL == 0 {
		cfg.Cache.PageTTL = 5 * time.Minute
	}
	if cfg.Cache.InflightTTL == 0 {
		cfg.Cache.InflightTTL = 30 * time.Second
	}

	if cfg.Refresh.TokensPerRun == 0 {
		cfg.Refresh.TokensPerRun = 200
	}
	if cfg.Refresh.Concurrency == 0 {
		cfg.Refresh.Concurrency = 5
	}
	if cfg.Refresh.LeaseTTL == 0 {
		cfg.Refresh.LeaseTTL = 2 * time.Minute
	}
	if cfg.Refresh.FetchTimeout == 0 {
		cfg.Refresh.FetchTimeout = 30 * time.Second
	}

	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 10
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.RateLimit.Store == "" {
		cfg.RateLimit.Store = "redis"
	}

	for i := range cfg.Chains {
		for j := range cfg.Chains[i].Providers {
			if cfg.Chains[i].Providers[j].Timeout == 0 {
				cfg.Chains[i].Providers[j].Timeout = 30 * time.Second
			}
		}
	}
}
