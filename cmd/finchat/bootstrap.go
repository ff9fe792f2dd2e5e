package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"finchat/internal/chat"
	"finchat/internal/digest"
	"finchat/internal/digest/digestobs"
	"finchat/internal/interfaces"
	"finchat/internal/llm"
	"finchat/internal/logger"
	"finchat/internal/macro"
	"finchat/internal/marketdata"
	"finchat/internal/marketdata/marketdataobs"
	"finchat/internal/news"
	"finchat/internal/news/newsobs"
	"finchat/internal/store"
	"finchat/internal/trace"
	"finchat/internal/transcript"
)

// app holds the wired collaborators shared by every command.
type app struct {
	cfg        *store.Config
	bars       *marketdata.CachedSource
	news       *news.Service
	completer  interfaces.Completer
	assistant  *chat.Assistant
	transcript *transcript.Writer
	digest     interfaces.DigestWriter
}

// initializeSystem loads .env and initializes logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeBarSource picks the configured market data source, wraps it with
// observability and puts the TTL cache in front of it.
func initializeBarSource(ctx context.Context, cfg *store.Config) *marketdata.CachedSource {
	md := cfg.MarketData
	var src interfaces.BarSource
	switch md.Source {
	case "YAHOO":
		src = marketdataobs.Wrap("yahoo", marketdata.NewYahooSource(
			marketdata.WithYahooTimeout(md.Timeout),
			marketdata.WithYahooRateLimit(md.RequestsPerSecond),
		))
		logger.Info(ctx, "Using Yahoo Finance market data")
	case "KITE":
		src = marketdataobs.Wrap("kite", marketdata.NewKiteSource(md.Kite.APIKey, md.Kite.AccessToken, md.Kite.Instruments))
		logger.Info(ctx, "Using Kite Connect market data", "instruments", len(md.Kite.Instruments))
	default:
		sc := marketdata.DefaultSyntheticConfig()
		sc.Seed = md.Seed
		src = marketdataobs.Wrap("synthetic", marketdata.NewSyntheticSource(sc))
		logger.Warn(ctx, "Using STATIC synthetic market data", "seed", md.Seed)
	}
	return marketdata.NewCachedSource(src, md.CacheTTL)
}

func initializeNews(ctx context.Context, cfg *store.Config) *news.Service {
	nc := cfg.News
	var primary, fallback interfaces.NewsSource
	switch nc.Provider {
	case "MARKETAUX":
		if nc.APIKey == "" {
			logger.Warn(ctx, "MARKETAUX_API_KEY not set, MarketAux news disabled")
		} else {
			primary = newsobs.Wrap("marketaux", news.NewMarketAuxSource(news.MarketAuxConfig{
				BaseURL:           nc.BaseURL,
				APIKey:            nc.APIKey,
				Language:          nc.Language,
				LookbackDays:      nc.LookbackDays,
				Timeout:           nc.Timeout,
				RequestsPerSecond: nc.RequestsPerSecond,
			}))
		}
		if nc.ScrapeFallback {
			fallback = newsobs.Wrap("scraper", news.NewScraper(news.GoogleNewsConfig()))
		}
	case "SCRAPER":
		primary = newsobs.Wrap("scraper", news.NewScraper(news.GoogleNewsConfig()))
	}

	return news.NewService(primary, fallback, &news.ServiceConfig{
		MaxArticles:   nc.Limit,
		CacheDuration: nc.CacheTTL,
		Enabled:       nc.Provider != "NONE",
	})
}

func buildApp(ctx context.Context, cfg *store.Config) *app {
	a := &app{
		cfg:       cfg,
		bars:      initializeBarSource(ctx, cfg),
		news:      initializeNews(ctx, cfg),
		completer: llm.New(ctx, cfg.LLM),
		digest:    digestobs.Wrap(digest.New(cfg.Digest.Dir)),
	}

	opts := []chat.Option{
		chat.WithBuilder(macro.NewBuilder(macro.Params{
			VolatilityWindow: cfg.Analytics.VolatilityWindow,
			MomentumWindow:   cfg.Analytics.MomentumWindow,
			Annualize:        cfg.AnnualizeVolatility(),
		})),
	}
	if cfg.Transcript.Enabled {
		a.transcript = transcript.New(cfg.Transcript.Dir)
		opts = append(opts, chat.WithTranscript(a.transcript))
	}

	a.assistant = chat.New(chat.Config{
		Benchmark: cfg.Universe.Benchmark,
		Tickers:   cfg.Tickers(),
		Period:    cfg.MarketData.Period,
		Interval:  cfg.MarketData.Interval,
		NewsLimit: cfg.News.Limit,
		Language:  cfg.LLM.Language,
	}, a.bars, a.news, a.completer, opts...)
	return a
}

func (a *app) close(ctx context.Context) {
	a.news.Close()
	if err := trace.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown tracer: %v\n", err)
	}
}
