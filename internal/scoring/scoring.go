// Package scoring flags unusual daily moves, labels momentum and folds
// volatility and momentum into a single score in [0, 1].
package scoring

import (
	"math"

	"finchat/internal/metrics"
	"finchat/internal/ta"
	"finchat/internal/types"
)

const (
	AnomalyWindow     = 20
	AnomalyMinSamples = 5
	AnomalyThreshold  = 2.0
)

// Normalization bands and weights of the overall score.
const (
	VolatilityLow    = 0.10
	VolatilityHigh   = 0.40
	MomentumLow      = -0.05
	MomentumHigh     = 0.05
	VolatilityWeight = 0.4
	MomentumWeight   = 0.6
)

// DetectReturnAnomaly z-scores the latest valid return against the trailing
// AnomalyWindow valid returns, itself included. With fewer than
// AnomalyMinSamples returns the result is not anomalous and LastReturn is
// missing. A flat window scores z = 0.
func DetectReturnAnomaly(bars []types.Bar) types.AnomalyResult {
	window := metrics.TrailingValid(metrics.ComputeReturns(bars), AnomalyWindow)
	if len(window) < AnomalyMinSamples {
		return types.AnomalyResult{Samples: len(window)}
	}

	last := window[len(window)-1]
	mu := ta.Mean(window)
	sigma := ta.SampleStdDev(window)

	z := 0.0
	if sigma > 0 {
		z = (last - mu) / sigma
	}
	return types.AnomalyResult{
		IsAnomalous: math.Abs(z) >= AnomalyThreshold,
		ZScore:      z,
		LastReturn:  types.Some(last),
		Samples:     len(window),
	}
}

// ClassifyMomentum buckets a rate of change. NaN is neutral.
func ClassifyMomentum(v float64) types.MomentumLabel {
	switch {
	case math.IsNaN(v):
		return types.Neutral
	case v > 0.05:
		return types.StronglyBullish
	case v > 0.01:
		return types.ModeratelyBullish
	case v >= -0.01:
		return types.Neutral
	case v >= -0.05:
		return types.ModeratelyBearish
	default:
		return types.StronglyBearish
	}
}

// NormalizeScore scales v linearly from [low, high] onto [0, 1], clamped.
// A missing value or a degenerate band scores the midpoint.
func NormalizeScore(v types.NullFloat, low, high float64) float64 {
	if !v.Valid || math.IsNaN(v.Value) || !(high > low) {
		return 0.5
	}
	s := (v.Value - low) / (high - low)
	return math.Max(0, math.Min(1, s))
}

// OverallScore weighs annualized volatility and momentum, rounded to three decimals.
func OverallScore(volatility, momentum types.NullFloat) float64 {
	s := VolatilityWeight*NormalizeScore(volatility, VolatilityLow, VolatilityHigh) +
		MomentumWeight*NormalizeScore(momentum, MomentumLow, MomentumHigh)
	return math.Round(s*1000) / 1000
}
