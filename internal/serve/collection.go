package serve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/refresh"
)

// DefaultItemsPerPage is the fixed collection page size.
const DefaultItemsPerPage = 20

// PageStore is the cache surface for collection pages and batched views.
type PageStore interface {
	MGetViews(ctx context.Context, ct domain.ContractRef, ids []uint64) ([]domain.PartialView, error)
	GetPage(ctx context.Context, ct domain.ContractRef, page int) (*domain.Page, error)
	SavePage(ctx context.Context, ct domain.ContractRef, p *domain.Page) error
}

// CollectionService assembles collection pages. Cached rows come straight from
// Redis; cold rows are fetched synchronously on the request path so a page is
// never served with holes.
type CollectionService struct {
	contract    domain.ContractRef
	store       PageStore
	refresher   *refresh.Refresher
	supply      refresh.SupplyReader
	perPage     int
	concurrency int
	log         *slog.Logger
}

// NewCollectionService creates a paginated collection reader.
func NewCollectionService(
	contract domain.ContractRef,
	store PageStore,
	refresher *refresh.Refresher,
	supply refresh.SupplyReader,
	concurrency int,
) *CollectionService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &CollectionService{
		contract:    contract,
		store:       store,
		refresher:   refresher,
		supply:      supply,
		perPage:     DefaultItemsPerPage,
		concurrency: concurrency,
		log:         slog.Default().With("component", "collection"),
	}
}

// GetPage returns one page of the collection. Pages are 1-indexed against the
// live total supply; a page past the end is ErrPageOutOfRange, a page below 1
// is ErrValidation.
func (s *CollectionService) GetPage(ctx context.Context, page int) (*domain.Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}

	totalSupply, err := s.supply.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("read total supply: %w", err)
	}

	totalPages := int((totalSupply + uint64(s.perPage) - 1) / uint64(s.perPage))
	if totalSupply == 0 {
		if page > 1 {
			return nil, fmt.Errorf("%w: page %d of 0", domain.ErrPageOutOfRange, page)
		}
		return &domain.Page{
			Page:         1,
			TotalPages:   0,
			TotalSupply:  0,
			ItemsPerPage: s.perPage,
			Rugs:         []domain.PageEntry{},
		}, nil
	}
	if page > totalPages {
		return nil, fmt.Errorf("%w: page %d of %d", domain.ErrPageOutOfRange, page, totalPages)
	}

	// Short-TTL page cache. Only fully cached pages are stored, so a hit is
	// always hole-free. Supply drift within the TTL is tolerated.
	if cached, err := s.store.GetPage(ctx, s.contract, page); err == nil && cached != nil {
		return cached, nil
	}

	start := uint64(page-1) * uint64(s.perPage)
	end := start + uint64(s.perPage) - 1
	if end >= totalSupply {
		end = totalSupply - 1
	}

	ids := make([]uint64, 0, end-start+1)
	for id := start; id <= end; id++ {
		ids = append(ids, id)
	}

	views, err := s.store.MGetViews(ctx, s.contract, ids)
	if err != nil {
		return nil, fmt.Errorf("batch read views: %w", err)
	}

	entries := make([]domain.PageEntry, len(ids))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, view := range views {
		if view.Static != nil && view.Dynamic != nil {
			entries[i] = domain.PageEntry{
				TokenID:  view.TokenID,
				Static:   view.Static,
				Dynamic:  view.Dynamic,
				TokenURI: view.TokenURI,
				Cached:   true,
			}
			continue
		}

		// Cold row: synchronous fallback so the page ships without holes.
		g.Go(func() error {
			entry := domain.PageEntry{TokenID: view.TokenID}
			if _, err := s.refresher.Refresh(gctx, view.TokenID, refresh.SourceRead); err != nil {
				s.log.Warn("page fallback fetch failed", "token", view.TokenID, "error", err)
			} else if fresh, err := s.store.MGetViews(gctx, s.contract, []uint64{view.TokenID}); err == nil && len(fresh) == 1 {
				entry.Static = fresh[0].Static
				entry.Dynamic = fresh[0].Dynamic
				entry.TokenURI = fresh[0].TokenURI
			}
			mu.Lock()
			entries[i] = entry
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.Page{
		Page:         page,
		TotalPages:   totalPages,
		TotalSupply:  totalSupply,
		ItemsPerPage: s.perPage,
		Rugs:         entries,
		HasMore:      page < totalPages,
	}

	allCached := true
	for _, e := range entries {
		if !e.Cached {
			allCached = false
			break
		}
	}
	if allCached {
		if err := s.store.SavePage(ctx, s.contract, result); err != nil {
			s.log.Warn("page cache write failed", "page", page, "error", err)
		}
	}

	return result, nil
}
