package marketdataobs

import (
	"context"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/trace"
	"finchat/internal/types"
)

// observableSource wraps a BarSource with logging & tracing
type observableSource struct {
	name string
	src  interfaces.BarSource
}

var _ interfaces.BarSource = (*observableSource)(nil)

// Wrap wraps a bar source with observability middleware
func Wrap(name string, src interfaces.BarSource) interfaces.BarSource {
	return &observableSource{name: name, src: src}
}

func (o *observableSource) Fetch(ctx context.Context, ticker, period, interval string) ([]types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.Fetch")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching bars", "source", o.name, "ticker", ticker, "period", period, "interval", interval)

	bars, err := o.src.Fetch(ctx, ticker, period, interval)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch bars", err, "source", o.name, "ticker", ticker)
		return nil, err
	}

	fields := []any{"source", o.name, "ticker", ticker, "count", len(bars)}
	if len(bars) > 0 {
		fields = append(fields,
			"first", bars[0].Date.Format("2006-01-02"),
			"last", bars[len(bars)-1].Date.Format("2006-01-02"))
	}
	logger.DebugSkip(ctx, 1, "Bars fetched", fields...)
	return bars, nil
}
