package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"finchat/internal/interfaces"
	"finchat/internal/types"
)

// SyntheticConfig shapes the generated random walk.
type SyntheticConfig struct {
	Seed       int64
	BasePrice  float64 // starting close
	Drift      float64 // mean daily return
	Volatility float64 // daily standard deviation of returns
	// End is the last session generated; zero means today.
	End time.Time
}

func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Seed:       42,
		BasePrice:  100,
		Drift:      0.0004,
		Volatility: 0.015,
	}
}

// SyntheticSource generates weekday bars with a seeded geometric random walk.
// The same config, ticker and period always give the same series.
type SyntheticSource struct {
	cfg SyntheticConfig
	now func() time.Time
}

var _ interfaces.BarSource = (*SyntheticSource)(nil)

func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	d := DefaultSyntheticConfig()
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = d.BasePrice
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = d.Volatility
	}
	return &SyntheticSource{cfg: cfg, now: time.Now}
}

func (s *SyntheticSource) Fetch(ctx context.Context, ticker, period, interval string) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("synthetic: empty ticker")
	}
	if interval != "" && interval != "1d" {
		return nil, fmt.Errorf("synthetic: unsupported interval '%s'", interval)
	}

	end := s.cfg.End
	if end.IsZero() {
		end = s.now()
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	start, err := ParsePeriod(period, end)
	if err != nil {
		return nil, fmt.Errorf("synthetic: %w", err)
	}
	if period == "max" {
		start = end.AddDate(-10, 0, 0)
	}

	h := fnv.New64a()
	h.Write([]byte(ticker))
	rng := rand.New(rand.NewSource(s.cfg.Seed ^ int64(h.Sum64())))

	// the base price differs per ticker so the universe does not move in lockstep
	price := s.cfg.BasePrice * (0.5 + rng.Float64()*2)

	var bars []types.Bar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		r := s.cfg.Drift + s.cfg.Volatility*rng.NormFloat64()
		open := price
		price *= 1 + r
		spread := math.Abs(rng.NormFloat64()) * s.cfg.Volatility / 2
		bars = append(bars, types.Bar{
			Date:   d,
			Open:   round2(open),
			High:   round2(math.Max(open, price) * (1 + spread)),
			Low:    round2(math.Min(open, price) * (1 - spread)),
			Close:  round2(price),
			Volume: 1_000_000 + rng.Int63n(4_000_000),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("synthetic %s: %w", ticker, ErrNoData)
	}
	return bars, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
