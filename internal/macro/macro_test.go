package macro

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finchat/internal/types"
)

// trendingBars produces n bars from 2024-01-01 with a mild uptrend and a
// small alternating wiggle.
func trendingBars(n int) []types.Bar {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, n)
	c := 100.0
	for i := 0; i < n; i++ {
		if i > 0 {
			if i%2 == 0 {
				c *= 1.006
			} else {
				c *= 0.998
			}
		}
		bars[i] = types.Bar{
			Date:  start.AddDate(0, 0, i),
			Open:  c * 0.999,
			High:  c * 1.01,
			Low:   c * 0.99,
			Close: c,
		}
	}
	return bars
}

func withShock(bars []types.Bar, r float64) []types.Bar {
	last := bars[len(bars)-1]
	c := last.Close * (1 + r)
	return append(bars, types.Bar{
		Date:  last.Date.AddDate(0, 0, 1),
		Open:  last.Close,
		High:  math.Max(c, last.Close),
		Low:   math.Min(c, last.Close),
		Close: c,
	})
}

func TestBuildContextDeterministic(t *testing.T) {
	bars := trendingBars(60)
	a := BuildContext("aapl", bars)
	b := BuildContext("AAPL", bars)
	assert.Equal(t, a, b)
	assert.Equal(t, RenderHuman(a), RenderHuman(b))
	assert.Equal(t, RenderForPrompt(a), RenderForPrompt(b))
}

func TestBuildContextFields(t *testing.T) {
	bars := trendingBars(60)
	c := BuildContext("MSFT", bars)

	assert.Equal(t, "MSFT", c.Ticker)
	assert.Equal(t, bars[59].Date, c.AsOf)
	assert.Equal(t, 20, c.VolatilityWindow)
	assert.Equal(t, 10, c.MomentumWindow)
	require.True(t, c.Volatility.Valid)
	require.True(t, c.Momentum.Valid)
	assert.Greater(t, c.Momentum.Value, 0.0)
	assert.True(t, c.Intraday.Valid)
	assert.False(t, c.Anomaly.IsAnomalous)
	assert.GreaterOrEqual(t, c.OverallScore, 0.0)
	assert.LessOrEqual(t, c.OverallScore, 1.0)

	// last bar is 2024-02-29, February has 29 returns in the series
	require.True(t, c.SeasonalAvgReturn.Valid)
	assert.Equal(t, 29, c.SeasonalSamples)
}

func TestBuildContextEmptyInput(t *testing.T) {
	c := BuildContext("SPY", nil)
	assert.False(t, c.Volatility.Valid)
	assert.False(t, c.Momentum.Valid)
	assert.Equal(t, types.Neutral, c.MomentumLabel)
	assert.False(t, c.Intraday.Valid)
	assert.False(t, c.Anomaly.IsAnomalous)
	assert.False(t, c.SeasonalAvgReturn.Valid)
	assert.True(t, c.AsOf.IsZero())
	assert.Equal(t, 0.5, c.OverallScore)

	human := RenderHuman(c)
	assert.Contains(t, human, "volatility (20d): N/A")
	assert.Contains(t, human, "Momentum (10d): N/A\n")
	assert.NotContains(t, human, "neutral")
	assert.Contains(t, human, "Last day range: N/A")
	assert.NotContains(t, human, "NaN")

	prompt := RenderForPrompt(c)
	assert.NotContains(t, prompt, "NaN")
	assert.NotContains(t, prompt, "Last range")
	assert.NotContains(t, prompt, "seasonality")
	assert.NotContains(t, prompt, "anomaly")
	assert.Contains(t, prompt, "Momentum label: N/A\n")
	assert.NotContains(t, prompt, "neutral")
	assert.Contains(t, prompt, "Overall score (0-1): 0.500")
}

func TestBuildContextShortInput(t *testing.T) {
	c := BuildContext("NVDA", trendingBars(3))
	assert.False(t, c.Momentum.Valid)
	assert.False(t, c.Volatility.Valid)
	assert.Equal(t, 0.5, c.OverallScore)

	prompt := RenderForPrompt(c)
	assert.Contains(t, prompt, "Volatility 20d (annualized): N/A\n")
	assert.Contains(t, prompt, "Momentum 10d: N/A\nMomentum label: N/A\n")
	assert.False(t, c.Anomaly.LastReturn.Valid)
	assert.True(t, c.Intraday.Valid)
}

func TestBuildContextFlagsShock(t *testing.T) {
	c := BuildContext("TSLA", withShock(trendingBars(40), -0.12))
	require.True(t, c.Anomaly.IsAnomalous)
	assert.Less(t, c.Anomaly.ZScore, -2.0)
	assert.Equal(t, types.StronglyBearish, c.MomentumLabel)

	human := RenderHuman(c)
	assert.Contains(t, human, "Anomaly detected")
	assert.Contains(t, human, "-12.00%")

	prompt := RenderForPrompt(c)
	assert.Contains(t, prompt, "Return anomaly: z-score -")
	assert.Contains(t, prompt, "last return -12.00%")
}

func TestRenderOmitsAnomalyWhenQuiet(t *testing.T) {
	c := BuildContext("GOOGL", trendingBars(60))
	assert.NotContains(t, RenderHuman(c), "Anomaly")
	assert.NotContains(t, RenderForPrompt(c), "anomaly")
}

func TestRenderFormatting(t *testing.T) {
	c := types.MacroContext{
		Ticker:            "AMZN",
		AsOf:              time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Volatility:        types.Some(0.23456),
		VolatilityWindow:  20,
		Momentum:          types.Some(0.0321),
		MomentumWindow:    10,
		MomentumLabel:     types.ModeratelyBullish,
		Intraday:          types.Intraday{High: 182.104, Low: 179.5, Close: 181, Valid: true},
		SeasonalAvgReturn: types.Some(0.012),
		SeasonalSamples:   21,
		OverallScore:      0.7,
	}

	prompt := RenderForPrompt(c)
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	assert.Equal(t, []string{
		"Ticker: AMZN",
		"As of: 2024-03-15",
		"Volatility 20d (annualized): 23.46%",
		"Momentum 10d: 3.21%",
		"Momentum label: moderately bullish",
		"Last range: High 182.10, Low 179.50, Close 181.00",
		"Month seasonality: 1.20% (n=21)",
		"Overall score (0-1): 0.700",
	}, lines)

	human := RenderHuman(c)
	assert.Contains(t, human, "Macro analysis for AMZN (2024-03-15):")
	assert.Contains(t, human, "- Annualized volatility (20d): 23.46%")
	assert.Contains(t, human, "- Momentum (10d): 3.21%, moderately bullish")
	assert.Contains(t, human, "- Month seasonality: average return 1.20% over 21 sessions")
}

func TestNewBuilderParams(t *testing.T) {
	b := NewBuilder(Params{VolatilityWindow: 5, MomentumWindow: 0, Annualize: false})
	assert.Equal(t, 5, b.Params().VolatilityWindow)
	assert.Equal(t, 10, b.Params().MomentumWindow)

	bars := trendingBars(30)
	daily := b.BuildContext("META", bars)
	annual := NewBuilder(Params{VolatilityWindow: 5, Annualize: true}).BuildContext("META", bars)
	require.True(t, daily.Volatility.Valid)
	assert.InDelta(t, daily.Volatility.Value*math.Sqrt(252), annual.Volatility.Value, 1e-12)
	assert.Contains(t, RenderForPrompt(daily), "Volatility 5d")
}
