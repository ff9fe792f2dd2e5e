package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"finchat/internal/api"
	"finchat/internal/interfaces"
	"finchat/internal/types"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource reads the public v8 chart endpoint.
type YahooSource struct {
	client *api.Client
	// symbols maps an internal ticker to its Yahoo symbol, e.g. SPX to ^GSPC.
	symbols map[string]string
}

var _ interfaces.BarSource = (*YahooSource)(nil)

type YahooOption func(*yahooOptions)

type yahooOptions struct {
	baseURL string
	timeout time.Duration
	rps     float64
}

func WithYahooBaseURL(u string) YahooOption {
	return func(o *yahooOptions) { o.baseURL = u }
}

func WithYahooTimeout(d time.Duration) YahooOption {
	return func(o *yahooOptions) { o.timeout = d }
}

func WithYahooRateLimit(rps float64) YahooOption {
	return func(o *yahooOptions) { o.rps = rps }
}

func NewYahooSource(opts ...YahooOption) *YahooSource {
	o := yahooOptions{baseURL: yahooBaseURL, timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return &YahooSource{
		client: api.NewClient(
			api.WithBaseURL(o.baseURL),
			api.WithTimeout(o.timeout),
			api.WithHeaders(api.YahooFinanceHeaders()),
			api.WithRateLimit(o.rps, 1),
			api.WithLogging(true),
		),
		symbols: map[string]string{
			"SPX":   "^GSPC",
			"SP500": "^GSPC",
			"NDX":   "^NDX",
			"VIX":   "^VIX",
		},
	}
}

// yahooChart is the subset of the chart response we read. Quote values are
// null on holidays and halted sessions.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooSource) yahooSymbol(ticker string) string {
	if mapped, ok := y.symbols[ticker]; ok {
		return mapped
	}
	return ticker
}

func (y *YahooSource) Fetch(ctx context.Context, ticker, period, interval string) ([]types.Bar, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("yahoo: empty ticker")
	}
	if interval == "" {
		interval = "1d"
	}

	var chart yahooChart
	path := "/v8/finance/chart/" + url.PathEscape(y.yahooSymbol(ticker))
	q := url.Values{"interval": {interval}, "range": {period}}
	if err := y.client.GetJSON(ctx, path, q, &chart); err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: api error: %s", ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	loc := time.UTC
	if tz := result.Meta.ExchangeTimezoneName; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	bars := make([]types.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == nil {
			continue
		}
		b := types.Bar{
			Date:  time.Unix(ts, 0).In(loc),
			Open:  deref(at(quote.Open, i), *c),
			High:  deref(at(quote.High, i), *c),
			Low:   deref(at(quote.Low, i), *c),
			Close: *c,
		}
		if v := at(quote.Volume, i); v != nil {
			b.Volume = int64(*v)
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, ErrNoData)
	}
	return normalizeBars(bars), nil
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

func deref(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
