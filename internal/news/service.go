package news

import (
	"context"
	"strings"
	"sync"
	"time"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/types"
)

// Service combines a primary source, an optional fallback used when the
// primary returns nothing, and a TTL cache of non-empty results.
type Service struct {
	primary  interfaces.NewsSource
	fallback interfaces.NewsSource
	cache    *articleCache
	cfg      *ServiceConfig
}

var _ interfaces.NewsSource = (*Service)(nil)

type ServiceConfig struct {
	MaxArticles   int           // upper bound applied to every request
	CacheDuration time.Duration // zero disables caching
	Enabled       bool
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxArticles:   5,
		CacheDuration: 10 * time.Minute,
		Enabled:       true,
	}
}

type articleCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type cacheEntry struct {
	articles  []types.NewsArticle
	limit     int
	timestamp time.Time
}

func newArticleCache(ttl time.Duration) *articleCache {
	c := &articleCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop()
	}
	return c
}

// get returns a hit only when the cached request asked for at least limit articles.
func (c *articleCache) get(ticker string, limit int) ([]types.NewsArticle, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[ticker]
	if !ok || c.now().Sub(entry.timestamp) > c.ttl || entry.limit < limit {
		return nil, false
	}
	return truncate(entry.articles, limit), true
}

func (c *articleCache) set(ticker string, limit int, articles []types.NewsArticle) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[ticker] = &cacheEntry{
		articles:  append([]types.NewsArticle(nil), articles...),
		limit:     limit,
		timestamp: c.now(),
	}
}

func (c *articleCache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *articleCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.data {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
}

func (c *articleCache) close() {
	c.once.Do(func() { close(c.stop) })
}

// NewService wires the sources. fallback may be nil.
func NewService(primary, fallback interfaces.NewsSource, cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		cache:    newArticleCache(cfg.CacheDuration),
		cfg:      cfg,
	}
}

// Fetch never fails; the result holds at most min(limit, MaxArticles) articles.
func (s *Service) Fetch(ctx context.Context, ticker string, limit int) []types.NewsArticle {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !s.cfg.Enabled || ticker == "" {
		return nil
	}
	if limit <= 0 || (s.cfg.MaxArticles > 0 && limit > s.cfg.MaxArticles) {
		limit = s.cfg.MaxArticles
	}
	if limit <= 0 {
		return nil
	}

	if cached, ok := s.cache.get(ticker, limit); ok {
		logger.Debug(ctx, "Using cached news", "ticker", ticker, "count", len(cached))
		return cached
	}

	articles := s.fetchFresh(ctx, ticker, limit)
	if len(articles) > 0 {
		s.cache.set(ticker, limit, articles)
	}
	return articles
}

func (s *Service) fetchFresh(ctx context.Context, ticker string, limit int) []types.NewsArticle {
	var articles []types.NewsArticle
	if s.primary != nil {
		articles = s.primary.Fetch(ctx, ticker, limit)
	}
	if len(articles) == 0 && s.fallback != nil {
		logger.Info(ctx, "No articles from primary source, trying fallback", "ticker", ticker)
		articles = s.fallback.Fetch(ctx, ticker, limit)
	}
	logger.Info(ctx, "News fetched", "ticker", ticker, "articles", len(articles))
	return truncate(articles, limit)
}

// Refresh bypasses the cache.
func (s *Service) Refresh(ctx context.Context, ticker string, limit int) []types.NewsArticle {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	articles := s.fetchFresh(ctx, ticker, limit)
	if len(articles) > 0 {
		s.cache.set(ticker, limit, articles)
	}
	return articles
}

func (s *Service) ClearCache() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	s.cache.data = make(map[string]*cacheEntry)
}

func (s *Service) CachedTickers() []string {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	out := make([]string, 0, len(s.cache.data))
	for t := range s.cache.data {
		out = append(out, t)
	}
	return out
}

// Close stops the cache janitor.
func (s *Service) Close() {
	s.cache.close()
}

func truncate(articles []types.NewsArticle, limit int) []types.NewsArticle {
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return append([]types.NewsArticle(nil), articles...)
}
