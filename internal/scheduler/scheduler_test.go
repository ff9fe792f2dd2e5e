package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finchat/internal/types"
)

type fakeRefresher struct {
	calls   int
	tickers []string
}

func (f *fakeRefresher) Refresh(ctx context.Context, tickers []string, period, interval string) int {
	f.calls++
	f.tickers = tickers
	return len(tickers)
}

type fakeAnalyzer struct{ calls int }

func (f *fakeAnalyzer) AnalyzeAll(ctx context.Context) []types.MacroContext {
	f.calls++
	return []types.MacroContext{{Ticker: "SPY"}}
}

type fakeDigest struct {
	due     bool
	written [][]types.MacroContext
}

func (f *fakeDigest) WriteDay(t time.Time, contexts []types.MacroContext) (string, error) {
	f.written = append(f.written, contexts)
	return "x.csv", nil
}

func (f *fakeDigest) ShouldRunNow(now time.Time) bool { return f.due }

type fakeCompressor struct{ days []int }

func (f *fakeCompressor) CompressOlder(days int) (int, error) {
	f.days = append(f.days, days)
	return 0, nil
}

func newScheduler(cfg Config, d *fakeDigest) (*Scheduler, *fakeRefresher, *fakeAnalyzer, *fakeCompressor) {
	r, a, c := &fakeRefresher{}, &fakeAnalyzer{}, &fakeCompressor{}
	return New(context.Background(), cfg, r, a, d, c), r, a, c
}

func TestRunRefresh(t *testing.T) {
	s, r, _, _ := newScheduler(Config{Tickers: []string{"SPY", "AAPL"}, Period: "1y", Interval: "1d"}, &fakeDigest{})
	s.RunRefresh()
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []string{"SPY", "AAPL"}, r.tickers)
}

func TestRunDigest(t *testing.T) {
	d := &fakeDigest{}
	s, _, a, c := newScheduler(Config{RetentionDays: 7}, d)

	s.RunDigest()
	assert.Zero(t, a.calls)
	assert.Empty(t, d.written)
	assert.Equal(t, []int{7}, c.days)

	d.due = true
	s.RunDigest()
	assert.Equal(t, 1, a.calls)
	require.Len(t, d.written, 1)
	assert.Equal(t, "SPY", d.written[0][0].Ticker)
}

func TestRegisterAll(t *testing.T) {
	s, _, _, _ := newScheduler(Config{RefreshCron: "0 */15 * * * 1-5", DigestCron: "0 30 16 * * 1-5"}, &fakeDigest{})
	require.NoError(t, s.RegisterAll())
	assert.Len(t, s.cron.Entries(), 2)

	bad, _, _, _ := newScheduler(Config{RefreshCron: "not a cron"}, &fakeDigest{})
	assert.Error(t, bad.RegisterAll())

	none, _, _, _ := newScheduler(Config{}, &fakeDigest{})
	require.NoError(t, none.RegisterAll())
	assert.Empty(t, none.cron.Entries())
}

func TestStartStop(t *testing.T) {
	s, _, _, _ := newScheduler(Config{DigestCron: "0 30 16 * * 1-5"}, &fakeDigest{})
	require.NoError(t, s.RegisterAll())
	s.Start()
	s.Stop()
}
