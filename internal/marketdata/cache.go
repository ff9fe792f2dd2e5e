package marketdata

import (
	"context"
	"strings"
	"sync"
	"time"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/types"
)

type cacheEntry struct {
	bars      []types.Bar
	fetchedAt time.Time
}

// CachedSource keeps the last successful result per (ticker, period, interval)
// for ttl. Failures are never cached.
type CachedSource struct {
	src     interfaces.BarSource
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

var _ interfaces.BarSource = (*CachedSource)(nil)

func NewCachedSource(src interfaces.BarSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		src:     src,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(ticker, period, interval string) string {
	return NormalizeTicker(ticker) + "|" + period + "|" + interval
}

// Fetch returns a copy of the cached bars when fresh.
func (c *CachedSource) Fetch(ctx context.Context, ticker, period, interval string) ([]types.Bar, error) {
	key := cacheKey(ticker, period, interval)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		logger.Debug(ctx, "Bar cache hit", "ticker", ticker, "age", c.now().Sub(e.fetchedAt).String())
		return cloneBars(e.bars), nil
	}

	return c.fetchAndStore(ctx, key, ticker, period, interval)
}

func (c *CachedSource) fetchAndStore(ctx context.Context, key, ticker, period, interval string) ([]types.Bar, error) {
	bars, err := c.src.Fetch(ctx, ticker, period, interval)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		c.mu.Lock()
		c.entries[key] = cacheEntry{bars: cloneBars(bars), fetchedAt: c.now()}
		c.mu.Unlock()
	}
	return bars, nil
}

// Refresh refetches the given tickers regardless of age. A failed refresh
// keeps the previous entry. It returns how many tickers were refreshed.
func (c *CachedSource) Refresh(ctx context.Context, tickers []string, period, interval string) int {
	n := 0
	for _, t := range tickers {
		if _, err := c.fetchAndStore(ctx, cacheKey(t, period, interval), NormalizeTicker(t), period, interval); err != nil {
			logger.ErrorWithErr(ctx, "Bar cache refresh failed", err, "ticker", t)
			continue
		}
		n++
	}
	return n
}

func (c *CachedSource) Invalidate(ticker string) {
	prefix := NormalizeTicker(ticker) + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

func (c *CachedSource) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
