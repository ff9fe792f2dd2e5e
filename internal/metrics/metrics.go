// Package metrics derives returns, volatility, momentum, intraday range and
// seasonality from an ascending daily bar series. Nothing here mutates the
// input or returns an error: insufficient history is reported as a missing
// types.NullFloat, an invalid Intraday, or an empty table.
package metrics

import (
	"math"

	"finchat/internal/ta"
	"finchat/internal/types"
)

const (
	DefaultVolatilityWindow = 20
	DefaultMomentumWindow   = 10
	TradingDaysPerYear      = 252
)

// ComputeReturns returns close-to-close simple returns, one per bar after the
// first. A return is NaN when either close is NaN or the previous close is zero.
func ComputeReturns(bars []types.Bar) types.ReturnSeries {
	if len(bars) < 2 {
		return types.ReturnSeries{}
	}
	out := make(types.ReturnSeries, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		out = append(out, types.Return{
			Date:  bars[i].Date,
			Value: simpleReturn(bars[i-1].Close, bars[i].Close),
		})
	}
	return out
}

func simpleReturn(prev, cur float64) float64 {
	if prev == 0 || math.IsNaN(prev) || math.IsNaN(cur) {
		return math.NaN()
	}
	return cur/prev - 1
}

// TrailingValid returns the last n valid values of rs. It returns fewer than n
// when the series is shorter; callers decide whether that is enough.
func TrailingValid(rs types.ReturnSeries, n int) []float64 {
	if n <= 0 {
		return nil
	}
	valid := rs.Valid()
	if len(valid) > n {
		valid = valid[len(valid)-n:]
	}
	return valid
}

// ComputeVolatility is the sample standard deviation of the last window valid
// returns, scaled by sqrt(252) when annualize is set. It is missing when fewer
// than window valid returns exist, and for window 1 where the deviation is
// undefined.
func ComputeVolatility(bars []types.Bar, window int, annualize bool) types.NullFloat {
	if window <= 0 {
		return types.None()
	}
	sample := TrailingValid(ComputeReturns(bars), window)
	if len(sample) < window {
		return types.None()
	}
	sd := ta.SampleStdDev(sample)
	if math.IsNaN(sd) {
		return types.None()
	}
	if annualize {
		sd *= math.Sqrt(TradingDaysPerYear)
	}
	return types.Some(sd)
}

// ComputeMomentum is the window-bar rate of change of the close.
func ComputeMomentum(bars []types.Bar, window int) types.NullFloat {
	if window <= 0 || len(bars) < window+1 {
		return types.None()
	}
	last := bars[len(bars)-1].Close
	base := bars[len(bars)-1-window].Close
	if !(base > 0) || math.IsNaN(last) {
		return types.None()
	}
	return types.Some(last/base - 1)
}

func IntradaySnapshot(bars []types.Bar) types.Intraday {
	if len(bars) == 0 {
		return types.Intraday{}
	}
	b := bars[len(bars)-1]
	return types.Intraday{
		Date:  b.Date,
		Open:  b.Open,
		High:  b.High,
		Low:   b.Low,
		Close: b.Close,
		Valid: true,
	}
}
