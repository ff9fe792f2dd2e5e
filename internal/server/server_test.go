package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finchat/internal/chat"
	"finchat/internal/llm"
	"finchat/internal/marketdata"
	"finchat/internal/types"
)

type stubNews struct{}

func (stubNews) Fetch(ctx context.Context, ticker string, limit int) []types.NewsArticle {
	return []types.NewsArticle{{Title: ticker + " rallies", Publisher: "Wire", Link: "https://n/1"}}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := marketdata.DefaultSyntheticConfig()
	cfg.End = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	a := chat.New(chat.Config{
		Benchmark: "SPY",
		Tickers:   []string{"SPY", "AAPL"},
		Period:    "6mo",
		Interval:  "1d",
	}, marketdata.NewSyntheticSource(cfg), stubNews{}, llm.NewNoop())

	srv := httptest.NewServer(New(a, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	var out map[string]any
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/healthz", "", &out))
	assert.Equal(t, "ok", out["status"])
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)

	var created sessionResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/sessions", "", &created))
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Messages, 1)
	base := srv.URL + "/api/sessions/" + created.ID

	var msg messageResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/download", "", &msg))
	assert.Contains(t, msg.Message.Content, "downloaded successfully")

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/snapshot/spy", "", &msg))
	assert.Contains(t, msg.Message.Content, "Quick snapshot of SPY")

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/news/AAPL", "", &msg))
	assert.Contains(t, msg.Message.Content, "AAPL rallies")

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/news/AAPL/summary", "", &msg))
	assert.Contains(t, msg.Message.Content, "No language model API key")

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/macro/AAPL", "", &msg))
	assert.Contains(t, msg.Message.Content, "Quantitative context for AAPL")

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/messages", `{"content":"hello"}`, &msg))
	assert.Equal(t, types.RoleAssistant, msg.Message.Role)

	var hist sessionResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/messages", "", &hist))
	// greeting, download, snapshot, news, summary, macro, user, answer
	assert.Len(t, hist.Messages, 8)
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)

	var errOut map[string]string
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/api/sessions/nope/messages", "", &errOut))

	var created sessionResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/sessions", "", &created))
	base := srv.URL + "/api/sessions/" + created.ID

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/macro/ZZZZ", "", &errOut))
	assert.Contains(t, errOut["error"], "ZZZZ")
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/messages", `{"content":""}`, &errOut))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/messages", `not json`, &errOut))
}

func TestContextEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var out contextResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/context/aapl", "", &out))
	assert.Equal(t, "AAPL", out.Context.Ticker)
	assert.True(t, strings.HasPrefix(out.Prompt, "Ticker: AAPL\n"))
	assert.Contains(t, out.Human, "Macro analysis for AAPL")

	var tickers map[string][]string
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/tickers", "", &tickers))
	assert.Equal(t, []string{"SPY", "AAPL"}, tickers["tickers"])
}
