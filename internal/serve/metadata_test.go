package serve

import (
	"context"
	"testing"
	"time"
)

func TestMetadataGetCachedView(t *testing.T) {
	cache := newMockCache()
	cache.seed(7)
	meta, _, _ := newTestServices(cache, newMockChain(10))

	view, err := meta.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if view.Loading {
		t.Error("expected Loading=false for a warm item")
	}
	if view.Static == nil || view.Dynamic == nil {
		t.Error("expected full view from cache")
	}
	if len(view.Missing) != 0 {
		t.Errorf("missing = %v, want none", view.Missing)
	}
}

func TestMetadataGetColdItemReportsLoading(t *testing.T) {
	cache := newMockCache()
	meta, _, _ := newTestServices(cache, newMockChain(10))

	view, err := meta.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !view.Loading {
		t.Error("expected Loading=true for a cold item")
	}
	if len(view.Missing) != 4 {
		t.Errorf("missing = %v, want all four sub-records", view.Missing)
	}

	// The triggered background refresh eventually warms the cache.
	deadline := time.After(2 * time.Second)
	for {
		v, err := meta.Get(context.Background(), 3)
		if err == nil && !v.Loading {
			return
		}
		select {
		case <-deadline:
			t.Fatal("background refresh never warmed the cache")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestMetadataGetPartialViewServedAsIs(t *testing.T) {
	cache := newMockCache()
	cache.seed(7)
	cache.mu.Lock()
	delete(cache.dynamic, 7)
	cache.mu.Unlock()

	meta, _, _ := newTestServices(cache, newMockChain(10))

	view, err := meta.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if view.Loading {
		t.Error("partial view must be served, not 202'd")
	}
	if view.Static == nil {
		t.Error("expected static present")
	}
	if len(view.Missing) != 1 || view.Missing[0] != "dynamic" {
		t.Errorf("missing = %v, want [dynamic]", view.Missing)
	}
}

func TestMetadataColdReadsDedupe(t *testing.T) {
	cache := newMockCache()
	cache.inflight[3] = true // refresh already in flight
	chain := newMockChain(10)
	meta, _, _ := newTestServices(cache, chain)

	for i := 0; i < 5; i++ {
		view, err := meta.Get(context.Background(), 3)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !view.Loading {
			t.Fatal("expected Loading=true while the marker is held")
		}
	}

	time.Sleep(50 * time.Millisecond)
	chain.mu.Lock()
	defer chain.mu.Unlock()
	// Marker held by someone else: no new fetches may have been launched.
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.static[3] != nil {
		t.Error("no refresh should have run while the marker is held")
	}
}
