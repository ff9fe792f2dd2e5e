package interfaces

import (
	"context"

	"finchat/internal/types"
)

// BarSource returns daily bars for one ticker, ascending by date.
type BarSource interface {
	Fetch(ctx context.Context, ticker, period, interval string) ([]types.Bar, error)
}

// NewsSource never fails: errors are logged and reported as an empty list.
type NewsSource interface {
	Fetch(ctx context.Context, ticker string, limit int) []types.NewsArticle
}
