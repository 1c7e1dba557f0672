package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
)

// InflightMarker is the short-TTL dedupe marker around background refreshes.
type InflightMarker interface {
	TryMarkInflight(ctx context.Context, ct domain.ContractRef, tokenID uint64) (bool, error)
	ClearInflight(ctx context.Context, ct domain.ContractRef, tokenID uint64) error
}

// Trigger launches background refreshes for cold cache reads. At most one
// refresh per token is in flight; concurrent cold reads of the same token
// collapse onto the marker instead of fanning out chain calls.
type Trigger struct {
	refresher *Refresher
	inflight  InflightMarker
	contract  domain.ContractRef
	timeout   time.Duration
	log       *slog.Logger
}

// NewTrigger creates a background refresh trigger.
func NewTrigger(refresher *Refresher, inflight InflightMarker, contract domain.ContractRef, timeout time.Duration) *Trigger {
	return &Trigger{
		refresher: refresher,
		inflight:  inflight,
		contract:  contract,
		timeout:   timeout,
		log:       slog.Default().With("component", "refresh-trigger"),
	}
}

// TriggerAsync starts a detached refresh unless one is already in flight.
// Returns true when a new refresh was launched. The refresh runs on its own
// context; the triggering request does not wait for it.
func (t *Trigger) TriggerAsync(ctx context.Context, tokenID uint64, source string) bool {
	ok, err := t.inflight.TryMarkInflight(ctx, t.contract, tokenID)
	if err != nil {
		t.log.Warn("inflight marker unavailable, refreshing anyway", "token", tokenID, "error", err)
	} else if !ok {
		return false
	}

	go func() {
		bg, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		defer func() {
			if err := t.inflight.ClearInflight(bg, t.contract, tokenID); err != nil {
				t.log.Warn("failed to clear inflight marker", "token", tokenID, "error", err)
			}
		}()

		if _, err := t.refresher.Refresh(bg, tokenID, source); err != nil {
			t.log.Warn("background refresh failed", "token", tokenID, "source", source, "error", err)
		}
	}()
	return true
}
