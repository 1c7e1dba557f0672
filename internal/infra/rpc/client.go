package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/metrics"
)

// Client is the high-level interface for making RPC calls against one chain.
// It retries transient failures per provider and fails over across providers
// when one is throttled or down.
type Client struct {
	chainID   uint64
	providers []Provider
	retry     RetryConfig
	log       *slog.Logger
}

// NewClient creates a new RPC client for a chain.
func NewClient(chainID uint64, providers []Provider) *Client {
	return &Client{
		chainID:   chainID,
		providers: providers,
		retry:     DefaultRetryConfig,
		log:       slog.Default().With("component", "rpc", "chain", chainID),
	}
}

// Call makes an RPC call with retry and provider failover.
func (c *Client) Call(ctx context.Context, method string, params []any) (any, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no providers for chain %d", c.chainID)
	}

	var lastErr error
	for _, p := range c.providers {
		start := time.Now()
		result, err := CallWithRetry(ctx, p, method, params, c.retry)
		metrics.RPCLatency.WithLabelValues(p.GetName(), method).Observe(time.Since(start).Seconds())
		metrics.RPCCallsTotal.WithLabelValues(p.GetName(), method).Inc()
		if err == nil {
			return result, nil
		}

		lastErr = err
		metrics.RPCErrorsTotal.WithLabelValues(p.GetName(), method).Inc()

		if ClassifyError(err) == ActionFatal {
			return nil, fmt.Errorf("fatal error from provider %s: %w", p.GetName(), err)
		}

		c.log.Warn("provider failed, trying next", "provider", p.GetName(), "method", method, "error", err)
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
