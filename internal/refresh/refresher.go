package refresh

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/metrics"
)

// Trigger sources, used for logging and metrics labels only.
const (
	SourceRead   = "read"
	SourceManual = "manual"
	SourceBatch  = "batch"
	SourceEvent  = "event"
)

// Fetcher resolves one token's authoritative state from the chain.
type Fetcher interface {
	FetchRug(ctx context.Context, tokenID uint64) (*domain.Rug, error)
	Contract() domain.ContractRef
}

// Store is the cache write surface the refresher needs.
type Store interface {
	SaveRug(ctx context.Context, rug *domain.Rug) error
	GetHash(ctx context.Context, ct domain.ContractRef, tokenID uint64) (string, error)
}

// Result is the outcome of one single-item refresh.
type Result struct {
	TokenID uint64
	Changed bool
	Hash    string
}

// Refresher performs the unconditional single-item refresh: fetch once, write
// all sub-records. The content hash comparison is informational only; an
// unchanged hash still overwrites so every sub-record TTL restarts.
type Refresher struct {
	fetcher Fetcher
	store   Store
	log     *slog.Logger
}

// NewRefresher creates a single-item refresher.
func NewRefresher(fetcher Fetcher, store Store) *Refresher {
	return &Refresher{
		fetcher: fetcher,
		store:   store,
		log:     slog.Default().With("component", "refresh"),
	}
}

// Refresh fetches token state and overwrites the cache. The fetch happens
// exactly once per call; a NotFound or Transient failure leaves the cache
// untouched.
func (r *Refresher) Refresh(ctx context.Context, tokenID uint64, source string) (*Result, error) {
	rug, err := r.fetcher.FetchRug(ctx, tokenID)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("fetch token %d: %w", tokenID, err)
	}

	prevHash, err := r.store.GetHash(ctx, r.fetcher.Contract(), tokenID)
	if err != nil {
		// Hash read failure downgrades change detection, never blocks the write.
		r.log.Warn("previous hash unavailable", "token", tokenID, "error", err)
		prevHash = ""
	}

	if err := r.store.SaveRug(ctx, rug); err != nil {
		metrics.RefreshTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("save token %d: %w", tokenID, err)
	}

	changed := prevHash == "" || prevHash != rug.ContentHash
	if changed {
		metrics.RefreshChanged.Inc()
	}
	metrics.RefreshTotal.WithLabelValues(source, "success").Inc()

	r.log.Debug("refreshed token", "token", tokenID, "source", source, "changed", changed)
	return &Result{TokenID: tokenID, Changed: changed, Hash: rug.ContentHash}, nil
}
