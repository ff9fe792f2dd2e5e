package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finchat/internal/store"
	"finchat/internal/types"
)

func TestToMessagesSplitsSystem(t *testing.T) {
	msgs, system := toMessages([]types.Message{
		{Role: types.RoleSystem, Content: "context block"},
		{Role: types.RoleUser, Content: "q1"},
		{Role: types.RoleAssistant, Content: "a1"},
		{Role: types.RoleUser, Content: "q2"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"context block"}, system)
}

func TestNewDefaultsMaxTokens(t *testing.T) {
	c := New(storeConfig(0))
	assert.Equal(t, 600, c.maxTokens)
	assert.Equal(t, 1024, New(storeConfig(1024)).maxTokens)
}

func storeConfig(maxTokens int) store.LLMConfig {
	return store.LLMConfig{Provider: "CLAUDE", Model: "claude-3-5-haiku-latest", MaxTokens: maxTokens, APIKey: "ak"}
}

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "ak", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Neutral, watch earnings."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := New(storeConfig(600), option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	out, err := c.Complete(context.Background(), "You are FinChat.", []types.Message{{Role: types.RoleUser, Content: "AAPL?"}})
	require.NoError(t, err)
	assert.Equal(t, "Neutral, watch earnings.", out)
	assert.Equal(t, "claude-3-5-haiku-latest", body["model"])
	assert.NotNil(t, body["system"])
}

func TestCompleteWithoutUserMessage(t *testing.T) {
	_, err := New(storeConfig(600)).Complete(context.Background(), "sys", nil)
	assert.Error(t, err)
}
