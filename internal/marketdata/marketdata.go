// Package marketdata provides daily bar sources: Yahoo Finance, Zerodha
// Kite, a deterministic synthetic generator, and an in-memory TTL cache
// that can sit in front of any of them.
package marketdata

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/types"
)

// ErrNoData is returned when a source answers but has no usable bars.
var ErrNoData = errors.New("no market data")

// FetchAll fetches each ticker independently. Failed and empty tickers are
// logged and left out, so the result may be partial or empty.
func FetchAll(ctx context.Context, src interfaces.BarSource, tickers []string, period, interval string) map[string][]types.Bar {
	out := make(map[string][]types.Bar, len(tickers))
	for _, t := range tickers {
		ticker := NormalizeTicker(t)
		if ticker == "" {
			continue
		}
		bars, err := src.Fetch(ctx, ticker, period, interval)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to fetch bars", err, "ticker", ticker, "period", period)
			continue
		}
		if len(bars) == 0 {
			logger.Warn(ctx, "No bars returned", "ticker", ticker, "period", period)
			continue
		}
		out[ticker] = bars
	}
	logger.Info(ctx, "Market data batch fetched", "requested", len(tickers), "loaded", len(out))
	return out
}

func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// normalizeBars truncates dates to the calendar day, sorts ascending and keeps
// the last bar for a duplicated date.
func normalizeBars(bars []types.Bar) []types.Bar {
	for i := range bars {
		d := bars[i].Date
		bars[i].Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func cloneBars(bars []types.Bar) []types.Bar {
	if bars == nil {
		return nil
	}
	return append([]types.Bar(nil), bars...)
}
