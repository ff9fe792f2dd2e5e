package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"

	"finchat/internal/types"
)

const chartJSON = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "exchangeTimezoneName": "America/New_York"},
      "timestamp": [1704378600, 1704205800, 1704292200, 1704465000],
      "indicators": {"quote": [{
        "open":   [183.0, 187.15, 184.2, null],
        "high":   [183.1, 188.44, 185.9, null],
        "low":    [180.9, 183.89, 183.4, null],
        "close":  [181.9, 185.64, 184.25, null],
        "volume": [62000000, 82488700, 58414500, null]
      }]}
    }],
    "error": null
  }
}`

func TestYahooSourceFetch(t *testing.T) {
	var gotPath, gotRange, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	src := NewYahooSource(WithYahooBaseURL(srv.URL))
	bars, err := src.Fetch(context.Background(), "aapl", "1y", "1d")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1y", gotRange)
	assert.Equal(t, "1d", gotInterval)

	require.Len(t, bars, 3, "null bar dropped")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[1].Date)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), bars[2].Date)
	assert.Equal(t, 185.64, bars[0].Close)
	assert.Equal(t, int64(82488700), bars[0].Volume)
}

func TestYahooSourceMapsIndexSymbols(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	_, err := NewYahooSource(WithYahooBaseURL(srv.URL)).Fetch(context.Background(), "SPX", "1mo", "")
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/%5EGSPC", gotPath)
}

func TestYahooSourceErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"api error": {200, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		"empty":     {200, `{"chart":{"result":[],"error":null}}`},
		"http 404":  {404, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`},
		"bad json":  {200, `<html>`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			bars, err := NewYahooSource(WithYahooBaseURL(srv.URL)).Fetch(context.Background(), "ZZZZ", "1y", "1d")
			assert.Error(t, err)
			assert.Nil(t, bars)
		})
	}
}

type fakeKite struct {
	token    int
	interval string
	from, to time.Time
	candles  []kiteconnect.HistoricalData
	err      error
}

func (f *fakeKite) GetHistoricalData(token int, interval string, from, to time.Time, continuous, oi bool) ([]kiteconnect.HistoricalData, error) {
	f.token, f.interval, f.from, f.to = token, interval, from, to
	return f.candles, f.err
}

func TestKiteSourceFetch(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	fk := &fakeKite{candles: []kiteconnect.HistoricalData{
		{Date: models.Time{Time: time.Date(2024, 5, 3, 0, 0, 0, 0, ist)}, Open: 1400, High: 1420, Low: 1395, Close: 1410, Volume: 1000},
		{Date: models.Time{Time: time.Date(2024, 5, 2, 0, 0, 0, 0, ist)}, Open: 1390, High: 1405, Low: 1385, Close: 1400, Volume: 900},
	}}
	src := newKiteSource(fk, map[string]int{"infy": 408065})
	now := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return now }

	bars, err := src.Fetch(context.Background(), "INFY", "3mo", "1d")
	require.NoError(t, err)
	assert.Equal(t, 408065, fk.token)
	assert.Equal(t, "day", fk.interval)
	assert.Equal(t, now.AddDate(0, -3, 0), fk.from)
	assert.Equal(t, now, fk.to)

	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 1410.0, bars[1].Close)
	assert.Equal(t, int64(1000), bars[1].Volume)
}

func TestKiteSourceErrors(t *testing.T) {
	src := newKiteSource(&fakeKite{}, map[string]int{"INFY": 1})
	_, err := src.Fetch(context.Background(), "TCS", "1y", "1d")
	assert.Error(t, err, "unknown instrument")

	_, err = src.Fetch(context.Background(), "INFY", "1y", "1wk")
	assert.Error(t, err, "unsupported interval")

	_, err = src.Fetch(context.Background(), "INFY", "1y", "1d")
	assert.ErrorIs(t, err, ErrNoData)

	boom := errors.New("token expired")
	_, err = newKiteSource(&fakeKite{err: boom}, map[string]int{"INFY": 1}).Fetch(context.Background(), "INFY", "1y", "1d")
	assert.ErrorIs(t, err, boom)
}

func TestSyntheticSourceDeterministic(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.End = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	src := NewSyntheticSource(cfg)

	a, err := src.Fetch(context.Background(), "AAPL", "1y", "1d")
	require.NoError(t, err)
	b, err := src.Fetch(context.Background(), "aapl", "1y", "1d")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := src.Fetch(context.Background(), "MSFT", "1y", "1d")
	require.NoError(t, err)
	assert.NotEqual(t, a[len(a)-1].Close, other[len(other)-1].Close)

	assert.InDelta(t, 262, len(a), 3)
	for i, bar := range a {
		assert.NotEqual(t, time.Saturday, bar.Date.Weekday())
		assert.NotEqual(t, time.Sunday, bar.Date.Weekday())
		assert.GreaterOrEqual(t, bar.High, bar.Low)
		assert.Greater(t, bar.Close, 0.0)
		if i > 0 {
			assert.True(t, bar.Date.After(a[i-1].Date))
		}
	}
	assert.Equal(t, cfg.End, a[len(a)-1].Date)
}

func TestSyntheticSourceRejects(t *testing.T) {
	src := NewSyntheticSource(DefaultSyntheticConfig())
	_, err := src.Fetch(context.Background(), "AAPL", "forever", "1d")
	assert.Error(t, err)
	_, err = src.Fetch(context.Background(), "AAPL", "1y", "1h")
	assert.Error(t, err)
}

type countingSource struct {
	calls map[string]int
	fail  map[string]error
	bars  []types.Bar
}

func (c *countingSource) Fetch(_ context.Context, ticker, _, _ string) ([]types.Bar, error) {
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[ticker]++
	if err := c.fail[ticker]; err != nil {
		return nil, err
	}
	if ticker == "EMPTY" {
		return nil, nil
	}
	return append([]types.Bar(nil), c.bars...), nil
}

func sampleBars() []types.Bar {
	return []types.Bar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 100},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 101},
	}
}

func TestFetchAllSkipsFailures(t *testing.T) {
	src := &countingSource{
		bars: sampleBars(),
		fail: map[string]error{"BAD": errors.New("invalid ticker")},
	}
	got := FetchAll(context.Background(), src, []string{"spy", "BAD", "EMPTY", " aapl ", ""}, "1y", "1d")

	assert.Len(t, got, 2)
	assert.Contains(t, got, "SPY")
	assert.Contains(t, got, "AAPL")
	assert.NotContains(t, got, "BAD")
	assert.NotContains(t, got, "EMPTY")
	assert.Equal(t, 1, src.calls["BAD"])
}

func TestFetchAllEverythingFails(t *testing.T) {
	src := &countingSource{fail: map[string]error{"A": errors.New("x"), "B": errors.New("y")}}
	assert.Empty(t, FetchAll(context.Background(), src, []string{"A", "B"}, "1y", "1d"))
}

func TestCachedSource(t *testing.T) {
	inner := &countingSource{bars: sampleBars()}
	cache := NewCachedSource(inner, time.Minute)
	now := time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := cache.Fetch(ctx, "AAPL", "1y", "1d")
	require.NoError(t, err)
	first[0].Close = -1 // callers may not corrupt the cache

	second, err := cache.Fetch(ctx, "aapl", "1y", "1d")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls["AAPL"])
	assert.Equal(t, 100.0, second[0].Close)

	now = now.Add(2 * time.Minute)
	_, err = cache.Fetch(ctx, "AAPL", "1y", "1d")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["AAPL"], "expired entry refetched")

	assert.Equal(t, 1, cache.Refresh(ctx, []string{"AAPL"}, "1y", "1d"))
	assert.Equal(t, 3, inner.calls["AAPL"])

	cache.Invalidate("AAPL")
	assert.Equal(t, 0, cache.Len())
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	inner := &countingSource{fail: map[string]error{"BAD": errors.New("down")}}
	cache := NewCachedSource(inner, time.Hour)

	_, err := cache.Fetch(context.Background(), "BAD", "1y", "1d")
	assert.Error(t, err)
	_, err = cache.Fetch(context.Background(), "BAD", "1y", "1d")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls["BAD"])
	assert.Equal(t, 0, cache.Refresh(context.Background(), []string{"BAD"}, "1y", "1d"))
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"1y":  time.Date(2023, 8, 15, 0, 0, 0, 0, time.UTC),
		"6mo": time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		"5d":  time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC),
		"2wk": time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		"YTD": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParsePeriod(in, now)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "y", "0d", "-1y", "1fortnight"} {
		_, err := ParsePeriod(bad, now)
		assert.Error(t, err, bad)
	}
}
