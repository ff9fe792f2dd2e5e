package marketdata

import (
	"context"
	"fmt"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"finchat/internal/interfaces"
	"finchat/internal/types"
)

// historicalClient is the part of the Kite Connect client KiteSource needs.
type historicalClient interface {
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

// KiteSource reads historical candles from Zerodha Kite Connect. Tickers are
// resolved to instrument tokens through a static map from configuration.
type KiteSource struct {
	kc          historicalClient
	instruments map[string]int
	now         func() time.Time
}

var _ interfaces.BarSource = (*KiteSource)(nil)

func NewKiteSource(apiKey, accessToken string, instruments map[string]int) *KiteSource {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return newKiteSource(kc, instruments)
}

func newKiteSource(kc historicalClient, instruments map[string]int) *KiteSource {
	m := make(map[string]int, len(instruments))
	for k, v := range instruments {
		m[NormalizeTicker(k)] = v
	}
	return &KiteSource{kc: kc, instruments: m, now: time.Now}
}

func (k *KiteSource) Fetch(ctx context.Context, ticker, period, interval string) ([]types.Bar, error) {
	ticker = NormalizeTicker(ticker)
	token, ok := k.instruments[ticker]
	if !ok {
		return nil, fmt.Errorf("kite: no instrument token for %s", ticker)
	}
	kiv, err := kiteInterval(interval)
	if err != nil {
		return nil, fmt.Errorf("kite %s: %w", ticker, err)
	}
	to := k.now()
	from, err := ParsePeriod(period, to)
	if err != nil {
		return nil, fmt.Errorf("kite %s: %w", ticker, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candles, err := k.kc.GetHistoricalData(token, kiv, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("kite %s: %w", ticker, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("kite %s: %w", ticker, ErrNoData)
	}

	bars := make([]types.Bar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, types.Bar{
			Date:   c.Date.Time,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: int64(c.Volume),
		})
	}
	return normalizeBars(bars), nil
}
