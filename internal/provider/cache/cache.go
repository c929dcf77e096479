package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"stocktracker/internal/provider"
)

// DefaultTTL is how long a fetched quote is served without asking upstream.
const DefaultTTL = 5 * time.Minute

// DefaultFlightTimeout bounds a shared fetch when FlightTimeout is unset.
const DefaultFlightTimeout = 30 * time.Second

// entry stores the cached quote for a single symbol and when it was fetched.
type entry struct {
	fetchedAt time.Time
	quote     provider.Quote
}

// Provider caches quotes per symbol for a TTL.
// Expired entries are not purged; they are treated as missing and overwritten
// on the next successful fetch. Failed fetches never touch the cache.
type Provider struct {
	P   provider.Fetcher
	TTL time.Duration
	// MaxItems caps the number of symbols kept. 0 means unbounded.
	MaxItems int
	// Coalesce merges concurrent misses for the same symbol into one upstream call.
	// When false, each miss fetches on its own and the last write wins.
	// The shared fetch is detached from every caller's cancellation; each caller
	// stops waiting when its own context ends.
	Coalesce bool
	// FlightTimeout bounds a shared fetch. Defaults to DefaultFlightTimeout.
	FlightTimeout time.Duration
	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time

	mu    sync.RWMutex
	items map[string]entry // key: upper-case symbol
	sf    singleflight.Group
}

func (c *Provider) Name() string { return c.P.Name() }

// Fetch returns the cached quote for symbol when it is younger than TTL,
// otherwise asks the wrapped fetcher and stores the result.
func (c *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	symbol = provider.NormalizeSymbol(symbol)
	if c.TTL <= 0 {
		return c.P.Fetch(ctx, symbol)
	}

	if q, ok := c.lookup(symbol, c.now()); ok {
		return q, nil
	}
	if !c.Coalesce {
		return c.refresh(ctx, symbol)
	}

	ch := c.sf.DoChan(symbol, func() (any, error) {
		// a previous flight may have filled the entry while this caller waited
		if q, ok := c.lookup(symbol, c.now()); ok {
			return q, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout())
		defer cancel()
		return c.refresh(fctx, symbol)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return provider.Quote{}, res.Err
		}
		return res.Val.(provider.Quote), nil
	case <-ctx.Done():
		return provider.Quote{}, fmt.Errorf("%s: waiting for shared fetch: %w: %w", symbol, ctx.Err(), provider.ErrUpstreamUnavailable)
	}
}

func (c *Provider) flightTimeout() time.Duration {
	if c.FlightTimeout > 0 {
		return c.FlightTimeout
	}
	return DefaultFlightTimeout
}

// Len reports how many symbols currently have an entry, expired or not.
func (c *Provider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Provider) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Provider) lookup(symbol string, now time.Time) (provider.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[symbol]
	if !ok || now.Sub(e.fetchedAt) >= c.TTL {
		return provider.Quote{}, false
	}
	return e.quote, true
}

func (c *Provider) refresh(ctx context.Context, symbol string) (provider.Quote, error) {
	fetchedAt := c.now()
	q, err := c.P.Fetch(ctx, symbol)
	if err != nil {
		return provider.Quote{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	if _, exists := c.items[symbol]; !exists && c.MaxItems > 0 && len(c.items) >= c.MaxItems {
		c.evictLocked(fetchedAt)
	}
	c.items[symbol] = entry{fetchedAt: fetchedAt, quote: q}
	return q, nil
}

// evictLocked makes room for one more entry: expired entries go first, then the
// oldest fetch. Caller holds c.mu.
func (c *Provider) evictLocked(now time.Time) {
	for k, v := range c.items {
		if now.Sub(v.fetchedAt) >= c.TTL {
			delete(c.items, k)
		}
	}
	for len(c.items) >= c.MaxItems {
		var oldestKey string
		var oldest time.Time
		for k, v := range c.items {
			if oldestKey == "" || v.fetchedAt.Before(oldest) {
				oldestKey, oldest = k, v.fetchedAt
			}
		}
		delete(c.items, oldestKey)
	}
}
