// Package macro assembles the per-ticker MacroContext from the metrics and
// scoring packages and renders it for people and for LLM prompts.
package macro

import (
	"strings"

	"finchat/internal/metrics"
	"finchat/internal/scoring"
	"finchat/internal/types"
)

// Params are the trailing windows used by BuildContext.
type Params struct {
	VolatilityWindow int  `yaml:"volatility_window" json:"volatility_window"`
	MomentumWindow   int  `yaml:"momentum_window" json:"momentum_window"`
	Annualize        bool `yaml:"annualize" json:"annualize"`
}

func DefaultParams() Params {
	return Params{
		VolatilityWindow: metrics.DefaultVolatilityWindow,
		MomentumWindow:   metrics.DefaultMomentumWindow,
		Annualize:        true,
	}
}

type Builder struct {
	params Params
}

// NewBuilder falls back to the default window for any non-positive window.
func NewBuilder(p Params) *Builder {
	d := DefaultParams()
	if p.VolatilityWindow <= 0 {
		p.VolatilityWindow = d.VolatilityWindow
	}
	if p.MomentumWindow <= 0 {
		p.MomentumWindow = d.MomentumWindow
	}
	return &Builder{params: p}
}

func (b *Builder) Params() Params { return b.params }

// BuildContext is deterministic in its inputs. AsOf is the date of the last bar.
func (b *Builder) BuildContext(ticker string, bars []types.Bar) types.MacroContext {
	vol := metrics.ComputeVolatility(bars, b.params.VolatilityWindow, b.params.Annualize)
	mom := metrics.ComputeMomentum(bars, b.params.MomentumWindow)
	intraday := metrics.IntradaySnapshot(bars)

	ctx := types.MacroContext{
		Ticker:           strings.ToUpper(strings.TrimSpace(ticker)),
		Volatility:       vol,
		VolatilityWindow: b.params.VolatilityWindow,
		Momentum:         mom,
		MomentumWindow:   b.params.MomentumWindow,
		MomentumLabel:    scoring.ClassifyMomentum(mom.Float()),
		Intraday:         intraday,
		Anomaly:          scoring.DetectReturnAnomaly(bars),
		OverallScore:     scoring.OverallScore(vol, mom),
	}

	if intraday.Valid {
		ctx.AsOf = intraday.Date
		month := metrics.ByMonth(intraday.Date)
		if row, ok := metrics.SeasonalityBy(bars, metrics.ByMonth).Lookup(month); ok {
			ctx.SeasonalAvgReturn = types.Some(row.AverageReturn)
			ctx.SeasonalSamples = row.Count
		}
	}
	return ctx
}

var defaultBuilder = NewBuilder(DefaultParams())

// BuildContext uses DefaultParams.
func BuildContext(ticker string, bars []types.Bar) types.MacroContext {
	return defaultBuilder.BuildContext(ticker, bars)
}
