package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/types"
)

// Refresher reloads bars for the universe into a cache.
type Refresher interface {
	Refresh(ctx context.Context, tickers []string, period, interval string) int
}

// Analyzer builds contexts for the whole universe.
type Analyzer interface {
	AnalyzeAll(ctx context.Context) []types.MacroContext
}

// Compressor archives stale transcript files.
type Compressor interface {
	CompressOlder(retentionDays int) (int, error)
}

type Config struct {
	RefreshCron   string
	DigestCron    string
	Tickers       []string
	Period        string
	Interval      string
	RetentionDays int
}

// Scheduler runs the background jobs: cache refresh and the end-of-day digest.
type Scheduler struct {
	cron       *cron.Cron
	cfg        Config
	refresher  Refresher
	analyzer   Analyzer
	digest     interfaces.DigestWriter
	compressor Compressor
	ctx        context.Context
	now        func() time.Time
}

// New creates a scheduler. compressor may be nil when transcripts are disabled.
func New(ctx context.Context, cfg Config, refresher Refresher, analyzer Analyzer, digest interfaces.DigestWriter, compressor Compressor) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:        cfg,
		refresher:  refresher,
		analyzer:   analyzer,
		digest:     digest,
		compressor: compressor,
		ctx:        ctx,
		now:        time.Now,
	}
}

// RegisterAll adds the configured jobs. An empty spec disables that job.
func (s *Scheduler) RegisterAll() error {
	if s.cfg.RefreshCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.RefreshCron, s.RunRefresh); err != nil {
			return fmt.Errorf("register refresh job: %w", err)
		}
	}
	if s.cfg.DigestCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.DigestCron, s.RunDigest); err != nil {
			return fmt.Errorf("register digest job: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(s.ctx, "Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

// RunRefresh reloads the universe into the bar cache.
func (s *Scheduler) RunRefresh() {
	op := logger.StartOperation(s.ctx, "scheduler.Refresh", "tickers", len(s.cfg.Tickers))
	n := s.refresher.Refresh(op.Context(), s.cfg.Tickers, s.cfg.Period, s.cfg.Interval)
	op.End("refreshed", n)
}

// RunDigest writes the day's digest once the market has closed and archives
// old transcripts.
func (s *Scheduler) RunDigest() {
	ctx := s.ctx
	now := s.now()
	if s.digest.ShouldRunNow(now) {
		contexts := s.analyzer.AnalyzeAll(ctx)
		if _, err := s.digest.WriteDay(now, contexts); err != nil {
			logger.ErrorWithErr(ctx, "Digest job failed", err)
		}
	} else {
		logger.Debug(ctx, "Digest not due")
	}

	if s.compressor != nil {
		n, err := s.compressor.CompressOlder(s.cfg.RetentionDays)
		if err != nil {
			logger.ErrorWithErr(ctx, "Transcript compression failed", err)
			return
		}
		if n > 0 {
			logger.Info(ctx, "Transcripts compressed", "files", n)
		}
	}
}
