// Package engine orchestrates catalog and order lookups through the
// cache store and the shared rate limiter.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wfmk/wfmk/internal/engine/cache"
	"github.com/wfmk/wfmk/internal/engine/ratelimit"
	"github.com/wfmk/wfmk/internal/market"
)

// Default validity windows for the two cached resource kinds.
const (
	DefaultCatalogTTL = 24 * time.Hour
	DefaultOrdersTTL  = 10 * time.Minute
)

// Fetcher is the network boundary the resolver drives. market.Client
// implements it; tests substitute fakes.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]market.Item, error)
	FetchOrders(ctx context.Context, urlName string) ([]market.Order, error)
}

// ResolverConfig wires a Resolver's collaborators. Store, Limiter and
// Fetcher are required; zero TTLs fall back to the defaults above.
type ResolverConfig struct {
	Store    cache.Store
	Limiter  *ratelimit.Limiter
	Fetcher  Fetcher
	Platform market.Platform
	Language string

	CatalogTTL time.Duration
	OrdersTTL  time.Duration

	Logger zerolog.Logger

	// Clock overrides the freshness clock in tests.
	Clock func() time.Time
}

// Resolver is the public entry point of the access layer: it consults
// the cache store, falls through to the rate-limited fetcher on miss or
// stale, repopulates the cache, and returns structured results. It is
// constructed once per invocation and shared by every fetch path.
type Resolver struct {
	store      cache.Store
	limiter    *ratelimit.Limiter
	fetcher    Fetcher
	platform   market.Platform
	lang       string
	catalogTTL time.Duration
	ordersTTL  time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewResolver validates cfg and builds a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, errors.New("resolver requires a cache store")
	}
	if cfg.Limiter == nil {
		return nil, errors.New("resolver requires a rate limiter")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("resolver requires a fetcher")
	}

	r := &Resolver{
		store:      cfg.Store,
		limiter:    cfg.Limiter,
		fetcher:    cfg.Fetcher,
		platform:   cfg.Platform,
		lang:       cfg.Language,
		catalogTTL: cfg.CatalogTTL,
		ordersTTL:  cfg.OrdersTTL,
		log:        cfg.Logger,
		now:        cfg.Clock,
	}
	if r.catalogTTL <= 0 {
		r.catalogTTL = DefaultCatalogTTL
	}
	if r.ordersTTL <= 0 {
		r.ordersTTL = DefaultOrdersTTL
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// ResolveCatalog returns the full item listing for the resolver's
// platform/language pair, from cache when fresh.
func (r *Resolver) ResolveCatalog(ctx context.Context) ([]market.Item, error) {
	var items []market.Item
	err := r.resolve(ctx,
		cache.CatalogKey(string(r.platform), r.lang),
		r.catalogTTL,
		func(payload json.RawMessage) error {
			return json.Unmarshal(payload, &items)
		},
		func(ctx context.Context) (json.RawMessage, error) {
			fetched, err := r.fetcher.FetchCatalog(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(fetched)
		},
	)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ResolveOrders returns the current order book for one item, from
// cache when fresh.
func (r *Resolver) ResolveOrders(ctx context.Context, item market.Item) ([]market.Order, error) {
	var orders []market.Order
	err := r.resolve(ctx,
		cache.OrdersKey(item.URLName, string(r.platform), r.lang),
		r.ordersTTL,
		func(payload json.RawMessage) error {
			return json.Unmarshal(payload, &orders)
		},
		func(ctx context.Context) (json.RawMessage, error) {
			fetched, err := r.fetcher.FetchOrders(ctx, item.URLName)
			if err != nil {
				return nil, err
			}
			return json.Marshal(fetched)
		},
	)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderResult is one item's outcome in a batch resolution.
type OrderResult struct {
	Item   market.Item
	Orders []market.Order
	Err    error
}

// ResolveOrdersBatch resolves order books for several items
// concurrently. All fetches funnel through the shared rate limiter, so
// fan-out reduces wall-clock waiting without changing request spacing.
// Results are reported in input order, one per item; a failed item
// never aborts the others.
func (r *Resolver) ResolveOrdersBatch(ctx context.Context, items []market.Item) []OrderResult {
	results := make([]OrderResult, len(items))

	g := &errgroup.Group{}
	g.SetLimit(runtime.NumCPU())
	for i, item := range items {
		g.Go(func() error {
			orders, err := r.ResolveOrders(ctx, item)
			results[i] = OrderResult{Item: item, Orders: orders, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ClearCache deletes every cached entry.
func (r *Resolver) ClearCache() error {
	return r.store.Clear()
}

// resolve is the shared cache-then-fetch path. decode must consume the
// payload; a cached payload that fails to decode is treated as a miss.
// Fetch failures propagate untouched: a stale entry is never
// substituted for fresh data.
func (r *Resolver) resolve(
	ctx context.Context,
	key string,
	ttl time.Duration,
	decode func(json.RawMessage) error,
	fetch func(context.Context) (json.RawMessage, error),
) error {
	entry, err := r.store.Get(key)
	switch {
	case err == nil:
		if entry.Fresh(r.now(), ttl) {
			if decodeErr := decode(entry.Payload); decodeErr == nil {
				r.log.Debug().Str("key", key).Dur("age", entry.Age(r.now())).Msg("cache hit")
				return nil
			}
			r.log.Debug().Str("key", key).Msg("cached payload undecodable, refetching")
		} else {
			r.log.Debug().Str("key", key).Dur("age", entry.Age(r.now())).Msg("cache entry stale")
		}
	case errors.Is(err, cache.ErrNotFound):
		r.log.Debug().Str("key", key).Msg("cache miss")
	default:
		// Store implementations fold I/O failures into ErrNotFound,
		// but guard against ones that do not.
		r.log.Debug().Str("key", key).Err(err).Msg("cache read failed, treating as miss")
	}

	if err := r.limiter.Acquire(ctx); err != nil {
		return err
	}

	payload, err := fetch(ctx)
	if err != nil {
		return err
	}

	if err := r.store.Put(key, payload, r.now()); err != nil {
		// A failed cache write degrades to an uncached result.
		r.log.Debug().Str("key", key).Err(err).Msg("cache write failed")
	}

	return decode(payload)
}

// String describes the resolver's scope, for log context.
func (r *Resolver) String() string {
	return fmt.Sprintf("resolver(%s/%s)", r.platform, r.lang)
}
