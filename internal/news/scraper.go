package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/types"
)

// ArticleSelectors are the CSS selectors used to pull one article out of a results page.
type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	URL              string
	Publisher        string
	PublishedAt      string // element whose datetime attribute (or text) is the timestamp
}

// ScraperConfig describes a search results page to scrape.
type ScraperConfig struct {
	Name        string
	BaseURL     string
	SearchPath  string // {query} is replaced by the escaped query
	QuerySuffix string
	Selectors   ArticleSelectors
	Timeout     time.Duration
}

// GoogleNewsConfig is the default fallback page.
func GoogleNewsConfig() ScraperConfig {
	return ScraperConfig{
		Name:        "GoogleNews",
		BaseURL:     "https://news.google.com",
		SearchPath:  "/search?q={query}&hl=en-US&gl=US&ceid=US:en",
		QuerySuffix: " stock",
		Selectors: ArticleSelectors{
			ArticleContainer: "article",
			Title:            "h3, h4, a.JtKRv",
			URL:              "a[href]",
			Publisher:        "div.vr1PYe, .wEwyrc, [data-n-tid]",
			PublishedAt:      "time",
		},
		Timeout: 15 * time.Second,
	}
}

// Scraper is a NewsSource backed by an HTML results page.
type Scraper struct {
	cfg ScraperConfig
}

var _ interfaces.NewsSource = (*Scraper)(nil)

func NewScraper(cfg ScraperConfig) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Scraper{cfg: cfg}
}

func (s *Scraper) Fetch(ctx context.Context, ticker string, limit int) []types.NewsArticle {
	articles, err := s.Scrape(ctx, ticker, limit)
	if err != nil {
		logger.ErrorWithErr(ctx, "News scrape failed", err, "source", s.cfg.Name, "ticker", ticker)
		return nil
	}
	return articles
}

// Scrape visits the search page for ticker and returns at most limit articles.
func (s *Scraper) Scrape(ctx context.Context, ticker string, limit int) ([]types.NewsArticle, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" || limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", s.cfg.BaseURL, err)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var articles []types.NewsArticle
	sel := s.cfg.Selectors
	c.OnHTML(sel.ArticleContainer, func(e *colly.HTMLElement) {
		if len(articles) >= limit {
			return
		}
		title := strings.TrimSpace(e.DOM.Find(sel.Title).First().Text())
		link, _ := e.DOM.Find(sel.URL).First().Attr("href")
		if title == "" || link == "" {
			return
		}

		published := ""
		if t := e.DOM.Find(sel.PublishedAt).First(); t.Length() > 0 {
			published, _ = t.Attr("datetime")
			if published == "" {
				published = strings.TrimSpace(t.Text())
			}
		}
		publisher := strings.TrimSpace(e.DOM.Find(sel.Publisher).First().Text())

		articles = append(articles, types.NewsArticle{
			Title:     CleanText(title),
			Publisher: orDefault(publisher, s.cfg.Name),
			Link:      absoluteURL(base, link),
			Published: published,
			Ticker:    ticker,
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("scrape %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	query := url.QueryEscape(ticker + s.cfg.QuerySuffix)
	searchURL := strings.TrimRight(s.cfg.BaseURL, "/") + strings.ReplaceAll(s.cfg.SearchPath, "{query}", query)
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", searchURL, err)
	}
	c.Wait()
	if visitErr != nil {
		return nil, visitErr
	}

	logger.Debug(ctx, "News scrape completed", "source", s.cfg.Name, "ticker", ticker, "articles", len(articles))
	return articles, nil
}

// absoluteURL resolves relative links such as Google's "./articles/..." against base.
func absoluteURL(base *url.URL, link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(u).String()
}
