package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/metrics"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/ratelimit"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/refresh"
)

// DynamicEvictor evicts the dynamic sub-record ahead of the re-fetch.
type DynamicEvictor interface {
	DeleteDynamic(ctx context.Context, ct domain.ContractRef, tokenID uint64) error
}

// Outcome reports how an accepted event was handled.
type Outcome struct {
	Kind      domain.EventKind `json:"kind"`
	TokenID   uint64           `json:"tokenId"`
	Refreshed bool             `json:"refreshed"`
	Ignored   bool             `json:"ignored,omitempty"`
}

// Invalidator handles maintenance webhook events. Known kinds evict the stale
// dynamic record and run a full refresh; unknown kinds are accepted and
// ignored so new contract events never bounce off old deployments.
type Invalidator struct {
	contract  domain.ContractRef
	refresher *refresh.Refresher
	evictor   DynamicEvictor
	log       *slog.Logger
}

// NewInvalidator creates a webhook event invalidator for one contract.
func NewInvalidator(contract domain.ContractRef, refresher *refresh.Refresher, evictor DynamicEvictor) *Invalidator {
	return &Invalidator{
		contract:  contract,
		refresher: refresher,
		evictor:   evictor,
		log:       slog.Default().With("component", "events", "contract", contract.String()),
	}
}

// Handle validates and processes one event. Validation failures return
// ErrValidation; everything structurally sound is accepted, even kinds this
// version does not understand.
func (i *Invalidator) Handle(ctx context.Context, ev *domain.MaintenanceEvent) (*Outcome, error) {
	if err := validate(ev); err != nil {
		metrics.EventsTotal.WithLabelValues(string(ev.EventKind), "invalid").Inc()
		return nil, err
	}

	if !domain.KnownEventKinds[ev.EventKind] {
		metrics.EventsTotal.WithLabelValues(string(ev.EventKind), "ignored").Inc()
		i.log.Info("ignoring unknown event kind", "kind", ev.EventKind, "token", ev.TokenID)
		return &Outcome{Kind: ev.EventKind, TokenID: ev.TokenID, Ignored: true}, nil
	}

	if err := i.evictor.DeleteDynamic(ctx, i.contract, ev.TokenID); err != nil {
		// Eviction is an optimization; the refresh overwrite supersedes it.
		i.log.Warn("dynamic eviction failed", "token", ev.TokenID, "error", err)
	}

	if _, err := i.refresher.Refresh(ctx, ev.TokenID, refresh.SourceEvent); err != nil {
		metrics.EventsTotal.WithLabelValues(string(ev.EventKind), "error").Inc()
		return nil, fmt.Errorf("event refresh token %d: %w", ev.TokenID, err)
	}

	metrics.EventsTotal.WithLabelValues(string(ev.EventKind), "refreshed").Inc()
	i.log.Info("event processed",
		"kind", ev.EventKind,
		"token", ev.TokenID,
		"actor", ev.ActorAddress,
		"tx", ev.TransactionHash,
	)
	return &Outcome{Kind: ev.EventKind, TokenID: ev.TokenID, Refreshed: true}, nil
}

// validate enforces the required event fields. TokenID zero is legal; token
// ids start at zero.
func validate(ev *domain.MaintenanceEvent) error {
	if ev.EventKind == "" {
		return fmt.Errorf("%w: eventKind is required", domain.ErrValidation)
	}
	if ev.ContractAddress == "" {
		return fmt.Errorf("%w: contractAddress is required", domain.ErrValidation)
	}
	if ev.ChainID == 0 {
		return fmt.Errorf("%w: chainId is required", domain.ErrValidation)
	}
	if ev.ActorAddress == "" {
		return fmt.Errorf("%w: actorAddress is required", domain.ErrValidation)
	}
	if _, err := ratelimit.NormalizeIdentity(ev.ActorAddress); err != nil {
		return fmt.Errorf("%w: actorAddress is not a valid address", domain.ErrValidation)
	}
	return nil
}
