package ta

import (
	"math"

	"finchat/internal/types"
)

// All indicators use the trailing end of the input and return NaN when the
// input is shorter than the requested window.

func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// SampleStdDev uses the n-1 denominator. Fewer than two values gives NaN.
func SampleStdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	m := Mean(vals)
	s := 0.0
	for _, v := range vals {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(vals)-1))
}

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	return Mean(closes[len(closes)-n:])
}

// RSI is the simple-average variant over the last period changes.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}

// StdDev is the population deviation of the last n values.
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	window := vals[len(vals)-n:]
	m := Mean(window)
	s := 0.0
	for _, v := range window {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) || period <= 0 {
		return math.NaN()
	}
	if len(closes) < period+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		sum += tr
	}
	return sum / float64(period)
}

// Columns splits bars into parallel high/low/close slices.
func Columns(bars []types.Bar) (highs, lows, closes []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		highs[i], lows[i], closes[i] = b.High, b.Low, b.Close
	}
	return
}

// Indicators is the technical block shown in a ticker snapshot.
type Indicators struct {
	SMA20 types.NullFloat `json:"sma20"`
	SMA50 types.NullFloat `json:"sma50"`
	RSI14 types.NullFloat `json:"rsi14"`
	ATR14 types.NullFloat `json:"atr14"`
}

func Compute(bars []types.Bar) Indicators {
	h, l, c := Columns(bars)
	return Indicators{
		SMA20: types.FromFloat(SMA(c, 20)),
		SMA50: types.FromFloat(SMA(c, 50)),
		RSI14: types.FromFloat(RSI(c, 14)),
		ATR14: types.FromFloat(ATR(h, l, c, 14)),
	}
}
