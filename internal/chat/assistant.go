package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finchat/internal/interfaces"
	"finchat/internal/llm"
	"finchat/internal/logger"
	"finchat/internal/macro"
	"finchat/internal/marketdata"
	"finchat/internal/metrics"
	"finchat/internal/ta"
	"finchat/internal/types"
)

var (
	ErrUnknownTicker = errors.New("ticker is not in the tracked universe")
	ErrNoMarketData  = errors.New("no market data loaded")
	ErrEmptyMessage  = errors.New("empty message")
)

// Config is the slice of application config the assistant needs.
type Config struct {
	Benchmark string
	Tickers   []string // benchmark first
	Period    string
	Interval  string
	NewsLimit int
	Language  string
}

// Assistant runs chat actions against a Session. Every action appends exactly
// one assistant message to the session and returns it; collaborator failures
// are reported in that message rather than as errors.
type Assistant struct {
	cfg        Config
	bars       interfaces.BarSource
	news       interfaces.NewsSource
	llm        interfaces.Completer
	builder    *macro.Builder
	transcript interfaces.TranscriptWriter
	now        func() time.Time
}

type Option func(*Assistant)

// WithTranscript records every assistant message to w.
func WithTranscript(w interfaces.TranscriptWriter) Option {
	return func(a *Assistant) { a.transcript = w }
}

func WithBuilder(b *macro.Builder) Option {
	return func(a *Assistant) { a.builder = b }
}

func New(cfg Config, bars interfaces.BarSource, news interfaces.NewsSource, completer interfaces.Completer, opts ...Option) *Assistant {
	if cfg.Language == "" {
		cfg.Language = "English"
	}
	if cfg.NewsLimit <= 0 {
		cfg.NewsLimit = 5
	}
	cfg.Benchmark = marketdata.NormalizeTicker(cfg.Benchmark)
	tickers := make([]string, len(cfg.Tickers))
	for i, t := range cfg.Tickers {
		tickers[i] = marketdata.NormalizeTicker(t)
	}
	cfg.Tickers = tickers
	a := &Assistant{
		cfg:     cfg,
		bars:    bars,
		news:    news,
		llm:     completer,
		builder: macro.NewBuilder(macro.DefaultParams()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewSession starts a conversation with the greeting message.
func (a *Assistant) NewSession() *Session {
	s := NewSession()
	others := make([]string, 0, len(a.cfg.Tickers))
	for _, t := range a.cfg.Tickers {
		if t != a.cfg.Benchmark {
			others = append(others, t)
		}
	}
	s.append(types.RoleAssistant, fmt.Sprintf("Hi! I'm FinChat.\n\n"+
		"I can help you with %s and %s: volatility, momentum, daily highs/lows, "+
		"seasonality and news.\n\n"+
		"Download market data first, then ask for a snapshot, news or a macro analysis.",
		a.cfg.Benchmark, strings.Join(others, ", ")))
	return s
}

func (a *Assistant) Tickers() []string {
	out := make([]string, len(a.cfg.Tickers))
	copy(out, a.cfg.Tickers)
	return out
}

// ResolveTicker normalizes t and checks it belongs to the universe.
func (a *Assistant) ResolveTicker(t string) (string, error) {
	t = marketdata.NormalizeTicker(t)
	for _, known := range a.cfg.Tickers {
		if known == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%q: %w", t, ErrUnknownTicker)
}

// Download fetches tickers (the whole universe when none are given) into the
// session, replacing what was loaded before.
func (a *Assistant) Download(ctx context.Context, s *Session, tickers ...string) types.Message {
	if len(tickers) == 0 {
		tickers = a.cfg.Tickers
	} else {
		norm := make([]string, len(tickers))
		for i, t := range tickers {
			norm[i] = marketdata.NormalizeTicker(t)
		}
		tickers = norm
	}
	op := logger.StartOperation(ctx, "chat.Download", "session", s.ID, "tickers", len(tickers))
	ctx = op.Context()

	data := marketdata.FetchAll(ctx, a.bars, tickers, a.cfg.Period, a.cfg.Interval)
	s.setBars(data)
	op.End("loaded", len(data))

	var text string
	switch {
	case len(data) == 0:
		text = "Could not download market data for any ticker. Check the data source and try again."
	case len(data) < len(tickers):
		var missing []string
		for _, t := range tickers {
			if _, ok := data[t]; !ok {
				missing = append(missing, t)
			}
		}
		text = fmt.Sprintf("Historical data downloaded for %d of %d tickers. Missing: %s.",
			len(data), len(tickers), strings.Join(missing, ", "))
	default:
		text = fmt.Sprintf("Historical data for %s downloaded successfully.", strings.Join(tickers, ", "))
	}
	return a.reply(s, "download", "", text)
}

// Snapshot reports the last session, volatility, momentum, indicators and
// the month seasonality table for ticker.
func (a *Assistant) Snapshot(ctx context.Context, s *Session, ticker string) (types.Message, error) {
	ticker, err := a.ResolveTicker(ticker)
	if err != nil {
		return types.Message{}, err
	}
	bars := s.Bars(ticker)
	if len(bars) == 0 {
		return a.reply(s, "snapshot", ticker, noDataText(ticker)), nil
	}

	p := a.builder.Params()
	snap := snapshot{
		ticker:           ticker,
		intraday:         metrics.IntradaySnapshot(bars),
		volatility:       metrics.ComputeVolatility(bars, p.VolatilityWindow, p.Annualize),
		volatilityWindow: p.VolatilityWindow,
		momentum:         metrics.ComputeMomentum(bars, p.MomentumWindow),
		momentumWindow:   p.MomentumWindow,
		indicators:       ta.Compute(bars),
		seasonality:      metrics.SeasonalityBy(bars, metrics.ByMonth),
	}
	logger.Debug(ctx, "Snapshot computed", "ticker", ticker, "bars", len(bars))
	return a.reply(s, "snapshot", ticker, formatSnapshot(snap)), nil
}

// LoadNews fetches recent articles for ticker into the session.
func (a *Assistant) LoadNews(ctx context.Context, s *Session, ticker string) (types.Message, error) {
	ticker, err := a.ResolveTicker(ticker)
	if err != nil {
		return types.Message{}, err
	}
	articles := a.news.Fetch(ctx, ticker, a.cfg.NewsLimit)
	s.setNews(ticker, articles)
	return a.reply(s, "news", ticker, FormatNewsList(ticker, articles)), nil
}

// SummarizeNews asks the LLM for a short trader-oriented summary of the
// articles previously loaded for ticker.
func (a *Assistant) SummarizeNews(ctx context.Context, s *Session, ticker string) (types.Message, error) {
	ticker, err := a.ResolveTicker(ticker)
	if err != nil {
		return types.Message{}, err
	}
	articles := s.News(ticker)
	if len(articles) == 0 {
		return a.reply(s, "news_summary", ticker, fmt.Sprintf(
			"I haven't loaded news for %s yet.\n\nLoad the ticker's news first.", ticker)), nil
	}

	summary, err := a.llm.Complete(ctx, newsSummaryPrompt(a.cfg.Language), []types.Message{
		{Role: types.RoleUser, Content: FormatNewsForPrompt(ticker, articles)},
	})
	if err != nil {
		return a.reply(s, "news_summary", ticker, llmFailureText(err, "summarize news")), nil
	}
	s.setNewsSummary(ticker, summary)
	return a.reply(s, "news_summary", ticker, fmt.Sprintf("News summary for %s:\n\n%s", ticker, summary)), nil
}

// Macro builds the quantitative context for ticker and, when an LLM is
// configured, asks it to interpret the context for a day trader. Without an
// LLM the prompt block itself is the answer.
func (a *Assistant) Macro(ctx context.Context, s *Session, ticker string) (types.Message, error) {
	ticker, err := a.ResolveTicker(ticker)
	if err != nil {
		return types.Message{}, err
	}
	bars := s.Bars(ticker)
	if len(bars) == 0 {
		return a.reply(s, "macro", ticker, noDataText(ticker)), nil
	}

	mc, err := a.buildContext(ticker, bars)
	if err != nil {
		logger.ErrorWithErr(ctx, "Macro context failed", err, "ticker", ticker)
		return a.reply(s, "macro", ticker, fmt.Sprintf("Could not build the macro context for %s: %v", ticker, err)), nil
	}
	block := macro.RenderForPrompt(mc)
	s.setMacroContext(mc, block)
	logger.Analysis(ctx, ticker, mc.OverallScore, mc.MomentumText(), mc.Anomaly.IsAnomalous, "session", s.ID)

	explanation, err := a.llm.Complete(ctx, macroPrompt(a.cfg.Language), []types.Message{
		{Role: types.RoleUser, Content: block},
	})
	if errors.Is(err, llm.ErrUnavailable) {
		return a.reply(s, "macro", ticker, fmt.Sprintf("Quantitative context for %s:\n\n```\n%s```", ticker, block)), nil
	}
	if err != nil {
		return a.reply(s, "macro", ticker, macro.RenderHuman(mc)+"\n"+llmFailureText(err, "interpret the context")), nil
	}
	return a.reply(s, "macro", ticker, fmt.Sprintf("%s\nMacro interpretation for %s:\n\n%s",
		macro.RenderHuman(mc), ticker, explanation)), nil
}

// Ask appends the user's text and answers it with the free-chat assistant.
// The benchmark's context is added to the system prompt when its data is loaded.
func (a *Assistant) Ask(ctx context.Context, s *Session, text string) (types.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Message{}, ErrEmptyMessage
	}
	s.append(types.RoleUser, text)
	a.record(s, "user", "", text)

	system := assistantPrompt(a.cfg.Language, a.cfg.Tickers, a.cfg.Benchmark)
	if bars := s.Bars(a.cfg.Benchmark); len(bars) > 0 {
		mc, err := a.buildContext(a.cfg.Benchmark, bars)
		if err != nil {
			logger.ErrorWithErr(ctx, "Benchmark context failed", err, "ticker", a.cfg.Benchmark)
			system += fmt.Sprintf("\n\n(The quantitative context could not be built because of an internal error: %v)", err)
		} else {
			system += benchmarkContext(a.cfg.Benchmark, macro.RenderForPrompt(mc))
		}
	}

	var history []types.Message
	for _, m := range s.Messages() {
		if m.Role == types.RoleUser || m.Role == types.RoleAssistant {
			history = append(history, m)
		}
	}

	answer, err := a.llm.Complete(ctx, system, history)
	if err != nil {
		answer = llmFailureText(err, "answer")
	}
	return a.reply(s, "ask", "", answer), nil
}

// Analyze fetches fresh bars for ticker and builds its context outside any
// session. Used by the HTTP API, the CLI and the digest job.
func (a *Assistant) Analyze(ctx context.Context, ticker string) (types.MacroContext, error) {
	ticker, err := a.ResolveTicker(ticker)
	if err != nil {
		return types.MacroContext{}, err
	}
	bars, err := a.bars.Fetch(ctx, ticker, a.cfg.Period, a.cfg.Interval)
	if err != nil {
		return types.MacroContext{}, fmt.Errorf("%s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return types.MacroContext{}, fmt.Errorf("%s: %w", ticker, ErrNoMarketData)
	}
	mc, err := a.buildContext(ticker, bars)
	if err != nil {
		return types.MacroContext{}, err
	}
	logger.Analysis(ctx, ticker, mc.OverallScore, mc.MomentumText(), mc.Anomaly.IsAnomalous)
	return mc, nil
}

// AnalyzeAll runs Analyze for the universe and skips tickers that fail.
func (a *Assistant) AnalyzeAll(ctx context.Context) []types.MacroContext {
	out := make([]types.MacroContext, 0, len(a.cfg.Tickers))
	for _, t := range a.cfg.Tickers {
		mc, err := a.Analyze(ctx, t)
		if err != nil {
			logger.ErrorWithErr(ctx, "Skipping ticker", err, "ticker", t)
			continue
		}
		out = append(out, mc)
	}
	return out
}

func (a *Assistant) buildContext(ticker string, bars []types.Bar) (mc types.MacroContext, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("macro context for %s: %v", ticker, r)
		}
	}()
	return a.builder.BuildContext(ticker, bars), nil
}

func (a *Assistant) reply(s *Session, action, ticker, text string) types.Message {
	m := s.append(types.RoleAssistant, text)
	a.record(s, action, ticker, text)
	return m
}

func (a *Assistant) record(s *Session, action, ticker, text string) {
	if a.transcript == nil {
		return
	}
	err := a.transcript.Append(types.TranscriptEntry{
		Time:      a.now(),
		SessionID: s.ID,
		Action:    action,
		Ticker:    ticker,
		Content:   text,
	})
	if err != nil {
		logger.ErrorWithErr(context.Background(), "Failed to write transcript", err, "session", s.ID)
	}
}

func noDataText(ticker string) string {
	return fmt.Sprintf("I don't have market data for %s yet.\n\nDownload the market data first.", ticker)
}

func llmFailureText(err error, what string) string {
	if errors.Is(err, llm.ErrUnavailable) {
		return fmt.Sprintf("No language model API key is configured, so I can't %s. "+
			"Snapshots and macro analysis still work.", what)
	}
	return fmt.Sprintf("There was an error calling the model: %v", err)
}
