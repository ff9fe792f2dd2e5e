package newsobs

import (
	"context"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/trace"
	"finchat/internal/types"
)

// observableNews wraps a NewsSource with logging & tracing
type observableNews struct {
	name string
	src  interfaces.NewsSource
}

var _ interfaces.NewsSource = (*observableNews)(nil)

func Wrap(name string, src interfaces.NewsSource) interfaces.NewsSource {
	return &observableNews{name: name, src: src}
}

func (o *observableNews) Fetch(ctx context.Context, ticker string, limit int) []types.NewsArticle {
	ctx, span := trace.StartSpan(ctx, "news.Fetch")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching news", "source", o.name, "ticker", ticker, "limit", limit)

	articles := o.src.Fetch(ctx, ticker, limit)
	if len(articles) == 0 {
		logger.WarnSkip(ctx, 1, "No news returned", "source", o.name, "ticker", ticker)
		return articles
	}

	logger.DebugSkip(ctx, 1, "News fetched", "source", o.name, "ticker", ticker, "count", len(articles))
	return articles
}
