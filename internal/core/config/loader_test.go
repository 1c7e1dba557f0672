package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
chains:
  - id: 11011
    contract: "0x1234567890abcdef1234567890abcdef12345678"
    providers:
      - name: primary
        url: https://rpc.example.com
redis:
  url: redis://localhost:6379
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Cache.StaticTTL != 24*time.Hour {
		t.Errorf("static ttl = %v, want 24h", cfg.Cache.StaticTTL)
	}
	if cfg.Cache.DynamicTTL != 5*time.Minute {
		t.Errorf("dynamic ttl = %v, want 5m", cfg.Cache.DynamicTTL)
	}
	if cfg.Cache.TokenURITTL != time.Hour {
		t.Errorf("tokenuri ttl = %v, want 1h", cfg.Cache.TokenURITTL)
	}
	if cfg.Refresh.TokensPerRun != 200 {
		t.Errorf("tokens per run = %d, want 200", cfg.Refresh.TokensPerRun)
	}
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("rate limit = %d/%v, want 10/1m", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Store != "redis" {
		t.Errorf("rate limit store = %q, want redis", cfg.RateLimit.Store)
	}
	if cfg.Chains[0].Providers[0].Timeout != 30*time.Second {
		t.Errorf("provider timeout = %v, want 30s", cfg.Chains[0].Providers[0].Timeout)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_RPC_URL", "https://rpc.example.com/key123")
	t.Setenv("TEST_CRON_SECRET", "s3cret")

	path := writeConfig(t, `
server:
  cron_secret: ${TEST_CRON_SECRET}
chains:
  - id: 11011
    contract: "0xabc"
    providers:
      - name: primary
        url: ${TEST_RPC_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chains[0].Providers[0].URL != "https://rpc.example.com/key123" {
		t.Errorf("url = %q, env expansion failed", cfg.Chains[0].Providers[0].URL)
	}
	if cfg.Server.CronSecret != "s3cret" {
		t.Errorf("cron secret = %q, env expansion failed", cfg.Server.CronSecret)
	}
}

func TestLoadExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
cache:
  dynamic_ttl: 90s
refresh:
  tokens_per_run: 50
rate_limit:
  requests: 3
  window: 10s
  store: memory
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Cache.DynamicTTL != 90*time.Second {
		t.Errorf("dynamic ttl = %v, want 90s", cfg.Cache.DynamicTTL)
	}
	if cfg.Refresh.TokensPerRun != 50 {
		t.Errorf("tokens per run = %d, want 50", cfg.Refresh.TokensPerRun)
	}
	if cfg.RateLimit.Requests != 3 || cfg.RateLimit.Store != "memory" {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "chains: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestContractFor(t *testing.T) {
	cfg := &AppConfig{Chains: []ChainConfig{
		{ChainID: 11011, Contract: "0xaaa"},
		{ChainID: 8453, Contract: "0xbbb"},
	}}

	if ch, ok := cfg.ContractFor(8453); !ok || ch.Contract != "0xbbb" {
		t.Errorf("ContractFor(8453) = %+v, %v", ch, ok)
	}
	if _, ok := cfg.ContractFor(1); ok {
		t.Error("ContractFor(1) should miss")
	}
}
