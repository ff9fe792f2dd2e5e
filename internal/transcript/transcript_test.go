package transcript

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finchat/internal/types"
)

func TestAppendWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	day := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, w.Append(types.TranscriptEntry{Time: day, SessionID: "s1", Action: "macro", Ticker: "SPY", Content: "a"}))
	require.NoError(t, w.Append(types.TranscriptEntry{Time: day.Add(time.Minute), SessionID: "s1", Action: "ask", Content: "b"}))

	f, err := os.Open(filepath.Join(dir, "2024-03-15.txt"))
	require.NoError(t, err)
	defer f.Close()

	var got []types.TranscriptEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e types.TranscriptEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "SPY", got[0].Ticker)
	assert.Equal(t, "ask", got[1].Action)
}

func TestAppendStampsTime(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	w.now = func() time.Time { return time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, w.Append(types.TranscriptEntry{Action: "download"}))
	_, err := os.Stat(filepath.Join(dir, "2024-01-02.txt"))
	assert.NoError(t, err)
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	old := filepath.Join(dir, "2024-05-01.txt")
	fresh := filepath.Join(dir, "2024-05-19.txt")
	require.NoError(t, os.WriteFile(old, []byte("{\"action\":\"ask\"}\n"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("{}\n"), 0o644))
	require.NoError(t, os.Chtimes(old, now.AddDate(0, 0, -19), now.AddDate(0, 0, -19)))
	require.NoError(t, os.Chtimes(fresh, now.AddDate(0, 0, -1), now.AddDate(0, 0, -1)))

	n, err := w.CompressOlder(7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)

	gz, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer gz.Close()
	r, err := gzip.NewReader(gz)
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "{\"action\":\"ask\"}\n", string(b))
}

func TestCompressOlderDisabledAndMissingDir(t *testing.T) {
	n, err := New(t.TempDir()).CompressOlder(0)
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = New(filepath.Join(t.TempDir(), "missing")).CompressOlder(3)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
