package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfmk/wfmk/internal/engine"
	"github.com/wfmk/wfmk/internal/engine/cache"
	"github.com/wfmk/wfmk/internal/engine/ratelimit"
	"github.com/wfmk/wfmk/internal/market"
)

// fakeClock is a manually-advanced freshness clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeFetcher counts calls and serves canned data per item.
type fakeFetcher struct {
	mu           sync.Mutex
	catalog      []market.Item
	catalogCalls int
	catalogErr   error
	orders       map[string][]market.Order
	orderCalls   map[string]int
	orderErrs    map[string]error
	fetchStarts  []time.Time
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		orders:     make(map[string][]market.Order),
		orderCalls: make(map[string]int),
		orderErrs:  make(map[string]error),
	}
}

func (f *fakeFetcher) FetchCatalog(_ context.Context) ([]market.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogCalls++
	f.fetchStarts = append(f.fetchStarts, time.Now())
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeFetcher) FetchOrders(_ context.Context, urlName string) ([]market.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls[urlName]++
	f.fetchStarts = append(f.fetchStarts, time.Now())
	if err := f.orderErrs[urlName]; err != nil {
		return nil, err
	}
	return f.orders[urlName], nil
}

func (f *fakeFetcher) catalogCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.catalogCalls
}

func (f *fakeFetcher) orderCallCount(urlName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderCalls[urlName]
}

func (f *fakeFetcher) lastFetchStart() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last time.Time
	for _, ts := range f.fetchStarts {
		if ts.After(last) {
			last = ts
		}
	}
	return last
}

func sellOrder(user string, price float64) market.Order {
	return market.Order{
		User:      market.OrderUser{IngameName: user, Status: "ingame"},
		Platform:  "pc",
		Region:    "en",
		OrderType: market.OrderTypeSell,
		Platinum:  price,
		Quantity:  1,
	}
}

// testResolver builds a resolver over a memory store with an
// effectively unlimited request rate.
func testResolver(t *testing.T, store cache.Store, fetcher *fakeFetcher, clock *fakeClock, catalogTTL, ordersTTL time.Duration) *engine.Resolver {
	t.Helper()
	limiter, err := ratelimit.New(6_000_000)
	require.NoError(t, err)

	resolver, err := engine.NewResolver(engine.ResolverConfig{
		Store:      store,
		Limiter:    limiter,
		Fetcher:    fetcher,
		Platform:   market.PlatformPC,
		Language:   "en",
		CatalogTTL: catalogTTL,
		OrdersTTL:  ordersTTL,
		Logger:     zerolog.Nop(),
		Clock:      clock.Now,
	})
	require.NoError(t, err)
	return resolver
}

// TestNewResolver_Validation verifies required collaborators are
// checked at construction.
func TestNewResolver_Validation(t *testing.T) {
	limiter, err := ratelimit.New(180)
	require.NoError(t, err)
	fetcher := newFakeFetcher()
	store := cache.NewMemoryStore()

	tests := []struct {
		name string
		cfg  engine.ResolverConfig
	}{
		{"missing store", engine.ResolverConfig{Limiter: limiter, Fetcher: fetcher}},
		{"missing limiter", engine.ResolverConfig{Store: store, Fetcher: fetcher}},
		{"missing fetcher", engine.ResolverConfig{Store: store, Limiter: limiter}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.NewResolver(tt.cfg)
			require.Error(t, err)
		})
	}
}

// TestResolveCatalog_FreshnessScenario: a 60-second TTL entry serves
// lookups at t+30 from cache and is refetched and overwritten at t+61.
func TestResolveCatalog_FreshnessScenario(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher()
	fetcher.catalog = []market.Item{{ID: "1", Name: "X", URLName: "x"}}
	store := cache.NewMemoryStore()
	resolver := testResolver(t, store, fetcher, clock, time.Minute, time.Minute)

	ctx := context.Background()

	items, err := resolver.ResolveCatalog(ctx)
	require.NoError(t, err)
	require.Equal(t, fetcher.catalog, items)
	assert.Equal(t, 1, fetcher.catalogCallCount())

	clock.Advance(30 * time.Second)
	items, err = resolver.ResolveCatalog(ctx)
	require.NoError(t, err)
	require.Equal(t, fetcher.catalog, items)
	assert.Equal(t, 1, fetcher.catalogCallCount(), "fresh entry must not reach the fetcher")

	clock.Advance(31 * time.Second)
	_, err = resolver.ResolveCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.catalogCallCount(), "stale entry must be refetched")

	entry, err := store.Get(cache.CatalogKey("pc", "en"))
	require.NoError(t, err)
	assert.True(t, entry.StoredAt.Equal(clock.Now()), "refetch must overwrite the entry")
}

// TestResolveOrders_CacheHit verifies a second lookup within the TTL is
// served from cache.
func TestResolveOrders_CacheHit(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher()
	fetcher.orders["ember_prime_set"] = []market.Order{sellOrder("alice", 100)}
	resolver := testResolver(t, cache.NewMemoryStore(), fetcher, clock, time.Hour, 10*time.Minute)

	item := market.Item{ID: "1", Name: "Ember Prime Set", URLName: "ember_prime_set"}
	ctx := context.Background()

	orders, err := resolver.ResolveOrders(ctx, item)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	clock.Advance(5 * time.Minute)
	orders, err = resolver.ResolveOrders(ctx, item)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "alice", orders[0].User.IngameName)
	assert.Equal(t, 1, fetcher.orderCallCount("ember_prime_set"))
}

// TestResolver_DisabledCacheEquivalence verifies the null store sends
// every resolve to the fetcher, with no special-casing in the resolver.
func TestResolver_DisabledCacheEquivalence(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher()
	fetcher.catalog = []market.Item{{ID: "1", Name: "X", URLName: "x"}}
	resolver := testResolver(t, cache.NullStore{}, fetcher, clock, time.Hour, time.Hour)

	ctx := context.Background()
	for range 3 {
		_, err := resolver.ResolveCatalog(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fetcher.catalogCallCount())
}

// TestResolveOrders_NoStaleFallback verifies a fetch failure is
// returned as-is even when an expired entry exists.
func TestResolveOrders_NoStaleFallback(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher()
	fetchErr := errors.New("boom")
	fetcher.orderErrs["xiphos_set"] = fetchErr

	store := cache.NewMemoryStore()
	stalePayload, err := json.Marshal([]market.Order{sellOrder("stale-user", 5)})
	require.NoError(t, err)
	require.NoError(t, store.Put(cache.OrdersKey("xiphos_set", "pc", "en"), stalePayload, clock.Now()))
	clock.Advance(time.Hour)

	resolver := testResolver(t, store, fetcher, clock, time.Hour, 10*time.Minute)

	orders, err := resolver.ResolveOrders(context.Background(), market.Item{URLName: "xiphos_set"})
	require.ErrorIs(t, err, fetchErr)
	assert.Nil(t, orders, "stale payload must not be substituted for a failed fetch")
}

// TestResolveCatalog_CorruptCachedPayload verifies an undecodable
// cached payload is treated as a miss, not a failure.
func TestResolveCatalog_CorruptCachedPayload(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher()
	fetcher.catalog = []market.Item{{ID: "1", Name: "X", URLName: "x"}}

	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(cache.CatalogKey("pc", "en"), json.RawMessage(`{"not":"a list"}`), clock.Now()))

	resolver := testResolver(t, store, fetcher, clock, time.Hour, time.Hour)

	items, err := resolver.ResolveCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, fetcher.catalog, items)
	assert.Equal(t, 1, fetcher.catalogCallCount())
}

// TestResolveOrdersBatch verifies results come back in input order with
// per-item failures isolated.
func TestResolveOrdersBatch(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher()
	fetcher.orders["a"] = []market.Order{sellOrder("ua", 1)}
	fetcher.orders["c"] = []market.Order{sellOrder("uc", 3)}
	fetchErr := errors.New("orders unavailable")
	fetcher.orderErrs["b"] = fetchErr

	resolver := testResolver(t, cache.NewMemoryStore(), fetcher, clock, time.Hour, time.Hour)

	items := []market.Item{
		{ID: "1", Name: "A", URLName: "a"},
		{ID: "2", Name: "B", URLName: "b"},
		{ID: "3", Name: "C", URLName: "c"},
	}

	results := resolver.ResolveOrdersBatch(context.Background(), items)
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, items[i], res.Item, "results must stay in caller order")
	}

	require.NoError(t, results[0].Err)
	assert.Equal(t, "ua", results[0].Orders[0].User.IngameName)

	require.ErrorIs(t, results[1].Err, fetchErr)

	require.NoError(t, results[2].Err, "one failure must not abort the rest")
	assert.Equal(t, "uc", results[2].Orders[0].User.IngameName)
}

// TestResolveOrdersBatch_Pacing verifies concurrent cold fetches are
// spaced by the shared limiter: three fetches at a 100ms interval span
// at least 200ms.
func TestResolveOrdersBatch_Pacing(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher()
	for _, name := range []string{"a", "b", "c"} {
		fetcher.orders[name] = []market.Order{sellOrder("u", 1)}
	}

	limiter, err := ratelimit.New(600) // 100ms interval
	require.NoError(t, err)

	resolver, err := engine.NewResolver(engine.ResolverConfig{
		Store:    cache.NullStore{},
		Limiter:  limiter,
		Fetcher:  fetcher,
		Platform: market.PlatformPC,
		Language: "en",
		Logger:   zerolog.Nop(),
		Clock:    clock.Now,
	})
	require.NoError(t, err)

	items := []market.Item{{URLName: "a"}, {URLName: "b"}, {URLName: "c"}}

	start := time.Now()
	results := resolver.ResolveOrdersBatch(context.Background(), items)
	for _, res := range results {
		require.NoError(t, res.Err)
	}

	spacing := fetcher.lastFetchStart().Sub(start)
	assert.GreaterOrEqual(t, spacing, 2*limiter.Interval())
}

// TestClearCache delegates to the store.
func TestClearCache(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher()
	fetcher.catalog = []market.Item{{ID: "1", Name: "X", URLName: "x"}}
	store := cache.NewMemoryStore()
	resolver := testResolver(t, store, fetcher, clock, time.Hour, time.Hour)

	ctx := context.Background()
	_, err := resolver.ResolveCatalog(ctx)
	require.NoError(t, err)

	require.NoError(t, resolver.ClearCache())

	_, err = store.Get(cache.CatalogKey("pc", "en"))
	require.ErrorIs(t, err, cache.ErrNotFound)

	_, err = resolver.ResolveCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.catalogCallCount())
}
