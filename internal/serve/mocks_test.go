package serve

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/refresh"
)

var testContract = domain.NewContractRef(8453, "0x1234567890abcdef1234567890abcdef12345678")

// mockCache backs both the view and page store surfaces plus the refresher's
// write path, mimicking the Redis client's behavior in memory.
type mockCache struct {
	mu         sync.Mutex
	static     map[uint64]*domain.StaticData
	dynamic    map[uint64]*domain.DynamicData
	tokenURIs  map[uint64]string
	hashes     map[uint64]string
	pages      map[int]*domain.Page
	pageSaves  int
	inflight   map[uint64]bool
	inflightMu sync.Mutex
}

func newMockCache() *mockCache {
	return &mockCache{
		static:    make(map[uint64]*domain.StaticData),
		dynamic:   make(map[uint64]*domain.DynamicData),
		tokenURIs: make(map[uint64]string),
		hashes:    make(map[uint64]string),
		pages:     make(map[int]*domain.Page),
		inflight:  make(map[uint64]bool),
	}
}

func (c *mockCache) seed(tokenID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.static[tokenID] = &domain.StaticData{Owner: "0xowner", Name: "Rug"}
	c.dynamic[tokenID] = &domain.DynamicData{DirtLevel: 1, Owner: "0xowner"}
	c.tokenURIs[tokenID] = "data:application/json;base64,e30="
	c.hashes[tokenID] = "h"
}

func (c *mockCache) GetView(ctx context.Context, ct domain.ContractRef, tokenID uint64) (domain.PartialView, error) {
	views, err := c.MGetViews(ctx, ct, []uint64{tokenID})
	if err != nil {
		return domain.PartialView{TokenID: tokenID}, err
	}
	return views[0], nil
}

func (c *mockCache) MGetViews(ctx context.Context, ct domain.ContractRef, ids []uint64) ([]domain.PartialView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	views := make([]domain.PartialView, len(ids))
	for i, id := range ids {
		v := domain.PartialView{TokenID: id}
		v.Static = c.static[id]
		v.Dynamic = c.dynamic[id]
		v.TokenURI = c.tokenURIs[id]
		v.Hash = c.hashes[id]
		if v.Static == nil {
			v.Missing = append(v.Missing, "static")
		}
		if v.Dynamic == nil {
			v.Missing = append(v.Missing, "dynamic")
		}
		if v.TokenURI == "" {
			v.Missing = append(v.Missing, "tokenUri")
		}
		if v.Hash == "" {
			v.Missing = append(v.Missing, "hash")
		}
		views[i] = v
	}
	return views, nil
}

func (c *mockCache) SaveRug(ctx context.Context, rug *domain.Rug) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := rug.Static
	dy := rug.Dynamic
	c.static[rug.TokenID] = &st
	c.dynamic[rug.TokenID] = &dy
	c.tokenURIs[rug.TokenID] = rug.TokenURI
	c.hashes[rug.TokenID] = rug.ContentHash
	return nil
}

func (c *mockCache) GetHash(ctx context.Context, ct domain.ContractRef, tokenID uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hashes[tokenID], nil
}

func (c *mockCache) DeleteDynamic(ctx context.Context, ct domain.ContractRef, tokenID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dynamic, tokenID)
	return nil
}

func (c *mockCache) GetPage(ctx context.Context, ct domain.ContractRef, page int) (*domain.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pages[page], nil
}

func (c *mockCache) SavePage(ctx context.Context, ct domain.ContractRef, p *domain.Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[p.Page] = p
	c.pageSaves++
	return nil
}

func (c *mockCache) TryMarkInflight(ctx context.Context, ct domain.ContractRef, tokenID uint64) (bool, error) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	if c.inflight[tokenID] {
		return false, nil
	}
	c.inflight[tokenID] = true
	return true, nil
}

func (c *mockCache) ClearInflight(ctx context.Context, ct domain.ContractRef, tokenID uint64) error {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	c.inflight[tokenID] = false
	return nil
}

// mockChain plays the fetcher role: tokens below supply exist.
type mockChain struct {
	mu        sync.Mutex
	supply    uint64
	err       error
	tokenErrs map[uint64]error
	hashes    map[uint64]string
}

func newMockChain(supply uint64) *mockChain {
	return &mockChain{supply: supply, hashes: make(map[uint64]string), tokenErrs: make(map[uint64]error)}
}

func (m *mockChain) FetchRug(ctx context.Context, tokenID uint64) (*domain.Rug, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if err, ok := m.tokenErrs[tokenID]; ok {
		return nil, err
	}
	if tokenID >= m.supply {
		return nil, domain.NewFetchError(domain.FetchNotFound, tokenID, errors.New("token does not exist"))
	}
	hash := m.hashes[tokenID]
	if hash == "" {
		hash = "fetched"
	}
	return &domain.Rug{
		Contract:    testContract,
		TokenID:     tokenID,
		Static:      domain.StaticData{Owner: "0xowner", Name: "Rug"},
		Dynamic:     domain.DynamicData{Owner: "0xowner"},
		TokenURI:    "data:application/json;base64,e30=",
		ContentHash: hash,
	}, nil
}

func (m *mockChain) Contract() domain.ContractRef { return testContract }

func (m *mockChain) TotalSupply(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.supply, nil
}

func newTestServices(cache *mockCache, chain *mockChain) (*MetadataService, *CollectionService, *refresh.Refresher) {
	refresher := refresh.NewRefresher(chain, cache)
	trigger := refresh.NewTrigger(refresher, cache, testContract, time.Second)
	meta := NewMetadataService(testContract, cache, trigger)
	coll := NewCollectionService(testContract, cache, refresher, chain, 5)
	return meta, coll, refresher
}
