package transcript

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"finchat/internal/interfaces"
	"finchat/internal/types"
)

// Writer appends chat actions as JSON lines to one file per day.
type Writer struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

var _ interfaces.TranscriptWriter = (*Writer)(nil)

func New(dir string) *Writer {
	if dir == "" {
		dir = "logs"
	}
	return &Writer{dir: dir, now: time.Now}
}

func (w *Writer) dailyFilepath(t time.Time) string {
	return filepath.Join(w.dir, t.Format("2006-01-02")+".txt")
}

// Append writes e to today's file. A zero Time is stamped with the current time.
func (w *Writer) Append(e types.TranscriptEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e.Time.IsZero() {
		e.Time = w.now()
	}
	p := w.dailyFilepath(e.Time)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal transcript entry: %w", err)
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips daily files last modified more than retentionDays ago
// and removes the originals. retentionDays <= 0 disables it. It returns the
// number of files compressed.
func (w *Writer) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().AddDate(0, 0, -retentionDays)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, d := range entries {
		if d.IsDir() || filepath.Ext(d.Name()) != ".txt" {
			continue
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(w.dir, d.Name())
		gz := p + ".gz"
		// an earlier run already compressed it
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			continue
		}
		if err := gzipFile(p, gz); err != nil {
			return n, fmt.Errorf("compress %s: %w", p, err)
		}
		_ = os.Remove(p)
		n++
	}
	return n, nil
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
