package serve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/metrics"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/refresh"
)

// ViewStore is the cache read surface for single-item views.
type ViewStore interface {
	GetView(ctx context.Context, ct domain.ContractRef, tokenID uint64) (domain.PartialView, error)
}

// MetadataService is the read-through path: serve whatever the cache holds,
// backfill the rest in the background. It never calls the chain on the
// request path.
type MetadataService struct {
	contract domain.ContractRef
	store    ViewStore
	trigger  *refresh.Trigger
	log      *slog.Logger
}

// NewMetadataService creates a read-through metadata service.
func NewMetadataService(contract domain.ContractRef, store ViewStore, trigger *refresh.Trigger) *MetadataService {
	return &MetadataService{
		contract: contract,
		store:    store,
		trigger:  trigger,
		log:      slog.Default().With("component", "metadata"),
	}
}

// Get returns the cached view of one token. A completely cold item comes back
// with Loading=true; the caller maps that to 202. A partial view is served as
// is while a background refresh fills the gaps.
func (s *MetadataService) Get(ctx context.Context, tokenID uint64) (domain.PartialView, error) {
	view, err := s.store.GetView(ctx, s.contract, tokenID)
	if err != nil {
		return domain.PartialView{TokenID: tokenID}, fmt.Errorf("read view: %w", err)
	}

	if view.Empty() {
		metrics.CacheReads.WithLabelValues("miss").Inc()
		view.Loading = true
		s.trigger.TriggerAsync(ctx, tokenID, refresh.SourceRead)
		return view, nil
	}

	metrics.CacheReads.WithLabelValues("hit").Inc()
	if len(view.Missing) > 0 {
		s.trigger.TriggerAsync(ctx, tokenID, refresh.SourceRead)
	}
	return view, nil
}
