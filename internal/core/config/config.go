package config

import (
	"time"

	redisclient "github.com/innovinitylabs/onchain-rug-sub004/internal/infra/redis"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Chains    []ChainConfig      `yaml:"chains"`
	Cache     CacheConfig        `yaml:"cache"`
	Refresh   RefreshConfig      `yaml:"refresh"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int    `yaml:"port"`
	CronSecret string `yaml:"cron_secret"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ChainConfig maps a chain id to the deployed contract and its RPC providers.
type ChainConfig struct {
	ChainID   uint64           `yaml:"id"`
	Contract  string           `yaml:"contract"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds settings for an RPC provider.
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig holds per-sub-record TTLs.
type CacheConfig struct {
	StaticTTL   time.Duration `yaml:"static_ttl"`
	DynamicTTL  time.Duration `yaml:"dynamic_ttl"`
	TokenURITTL time.Duration `yaml:"tokenuri_ttl"`
	PageTTL     time.Duration `yaml:"page_ttl"`
	InflightTTL time.Duration `yaml:"inflight_ttl"`
}

// RefreshConfig controls the batch scheduler.
type RefreshConfig struct {
	TokensPerRun uint64        `yaml:"tokens_per_run"`
	Concurrency  int           `yaml:"concurrency"`
	LeaseTTL     time.Duration `yaml:"lease_ttl"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// RateLimitConfig controls the sliding-window request governor.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Store    string        `yaml:"store"` // redis (shared across replicas), memory
}

// ContractFor returns the chain configuration for the given chain id.
func (c *AppConfig) ContractFor(chainID uint64) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.ChainID == chainID {
			return ch, true
		}
	}
	return ChainConfig{}, false
}
