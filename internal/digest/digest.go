package digest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"finchat/internal/interfaces"
	"finchat/internal/types"
)

// Writer writes one CSV per trading day under Dir.
type Writer struct {
	dir string
	loc *time.Location
	// cutoff is the local wall-clock time after which the day's digest is due.
	cutoffHour, cutoffMinute int
}

var _ interfaces.DigestWriter = (*Writer)(nil)

// New returns a writer keyed on the US equity session (16:10 America/New_York).
func New(dir string) *Writer {
	if dir == "" {
		dir = filepath.Join("logs", "digest")
	}
	return &Writer{dir: dir, loc: marketLocation(), cutoffHour: 16, cutoffMinute: 10}
}

func marketLocation() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*3600)
}

// Path is where the digest for the market date of t is written.
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.dir, t.In(w.loc).Format("2006-01-02")+".csv")
}

var header = []string{
	"ticker", "as_of", "volatility", "momentum", "momentum_label",
	"z_score", "anomalous", "seasonal_avg_return", "seasonal_samples", "overall_score",
}

func (w *Writer) WriteDay(t time.Time, contexts []types.MacroContext) (path string, err error) {
	if len(contexts) == 0 {
		return "", nil
	}
	rows := make([]types.MacroContext, len(contexts))
	copy(rows, contexts)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })

	outPath := w.Path(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			path, err = "", cerr
		}
	}()

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return "", err
	}
	var scoreSum float64
	for _, c := range rows {
		asOf := ""
		if !c.AsOf.IsZero() {
			asOf = c.AsOf.Format("2006-01-02")
		}
		rec := []string{
			c.Ticker,
			asOf,
			c.Volatility.Fixed(6),
			c.Momentum.Fixed(6),
			c.MomentumText(),
			fmt.Sprintf("%.4f", c.Anomaly.ZScore),
			strconv.FormatBool(c.Anomaly.IsAnomalous),
			c.SeasonalAvgReturn.Fixed(6),
			strconv.Itoa(c.SeasonalSamples),
			fmt.Sprintf("%.3f", c.OverallScore),
		}
		if err := cw.Write(rec); err != nil {
			return "", err
		}
		scoreSum += c.OverallScore
	}
	mean := []string{"MEAN", "", "", "", "", "", "", "", "", fmt.Sprintf("%.3f", scoreSum/float64(len(rows)))}
	if err := cw.Write(mean); err != nil {
		return "", err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

// ShouldRunNow is true on weekdays after the cutoff when today's file is missing.
func (w *Writer) ShouldRunNow(now time.Time) bool {
	local := now.In(w.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), w.cutoffHour, w.cutoffMinute, 0, 0, w.loc)
	if !local.After(cutoff) {
		return false
	}
	_, err := os.Stat(w.Path(local))
	return errors.Is(err, os.ErrNotExist)
}
