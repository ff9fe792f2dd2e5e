package news

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finchat/internal/api"
	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/types"
)

const marketAuxBaseURL = "https://api.marketaux.com"

// MarketAuxConfig configures the MarketAux /v1/news/all client.
type MarketAuxConfig struct {
	BaseURL           string
	APIKey            string
	Language          string
	LookbackDays      int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// MarketAuxSource fetches entity-filtered headlines for one ticker.
type MarketAuxSource struct {
	client   *api.Client
	apiKey   string
	language string
	lookback int
	now      func() time.Time
}

var _ interfaces.NewsSource = (*MarketAuxSource)(nil)

func NewMarketAuxSource(cfg MarketAuxConfig) *MarketAuxSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = marketAuxBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 3
	}
	return &MarketAuxSource{
		client: api.NewClient(
			api.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
			api.WithTimeout(cfg.Timeout),
			api.WithRateLimit(cfg.RequestsPerSecond, 1),
			api.WithHeader("Accept", "application/json"),
			api.WithLogging(true),
		),
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		lookback: cfg.LookbackDays,
		now:      time.Now,
	}
}

type marketAuxResponse struct {
	Data []struct {
		UUID        string `json:"uuid"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Snippet     string `json:"snippet"`
		URL         string `json:"url"`
		Source      string `json:"source"`
		PublishedAt string `json:"published_at"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Fetch returns at most limit articles, or none on any failure.
func (m *MarketAuxSource) Fetch(ctx context.Context, ticker string, limit int) []types.NewsArticle {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if m.apiKey == "" {
		logger.Warn(ctx, "MarketAux API key not configured", "ticker", ticker)
		return nil
	}
	if ticker == "" || limit <= 0 {
		return nil
	}

	q := url.Values{
		"symbols":         {ticker},
		"language":        {m.language},
		"filter_entities": {"true"},
		"published_after": {m.now().UTC().AddDate(0, 0, -m.lookback).Format("2006-01-02")},
		"limit":           {strconv.Itoa(limit)},
	}
	var resp marketAuxResponse
	err := m.client.GetJSON(ctx, "/v1/news/all", q, &resp, map[string]string{
		"Authorization": "Bearer " + m.apiKey,
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "MarketAux request failed", err, "ticker", ticker)
		return nil
	}
	if resp.Error != nil {
		logger.Error(ctx, "MarketAux returned an error", "ticker", ticker, "code", resp.Error.Code, "message", resp.Error.Message)
		return nil
	}

	articles := make([]types.NewsArticle, 0, len(resp.Data))
	for _, item := range resp.Data {
		if len(articles) == limit {
			break
		}
		snippet := item.Snippet
		if snippet == "" {
			snippet = item.Description
		}
		articles = append(articles, types.NewsArticle{
			Title:     orDefault(CleanText(item.Title), "Untitled"),
			Publisher: orDefault(item.Source, "Unknown source"),
			Link:      item.URL,
			Published: item.PublishedAt,
			Snippet:   CleanText(snippet),
			Ticker:    ticker,
		})
	}
	logger.Debug(ctx, "MarketAux articles fetched", "ticker", ticker, "count", len(articles))
	return articles
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
