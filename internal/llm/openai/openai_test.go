package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finchat/internal/store"
	"finchat/internal/types"
)

func TestComplete(t *testing.T) {
	var got goopenai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4.1-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Bullish bias.  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer srv.Close()

	c := New(store.LLMConfig{APIKey: "sk-test", Model: "gpt-4.1-mini", MaxTokens: 600, Temperature: 0.7}, WithBaseURL(srv.URL+"/v1"))
	out, err := c.Complete(context.Background(), "You are FinChat.", []types.Message{
		{Role: types.RoleUser, Content: "How is SPY?"},
		{Role: types.RoleAssistant, Content: "Calm."},
		{Role: types.RoleUser, Content: "And AAPL?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bullish bias.", out)

	require.Len(t, got.Messages, 4)
	assert.Equal(t, goopenai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, goopenai.ChatMessageRoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "gpt-4.1-mini", got.Model)
	assert.Equal(t, 600, got.MaxTokens)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	c := New(store.LLMConfig{APIKey: "k", Model: "m"}, WithBaseURL(srv.URL+"/v1"))
	_, err := c.Complete(context.Background(), "", []types.Message{{Role: types.RoleUser, Content: "hi"}})
	assert.Error(t, err)
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := New(store.LLMConfig{APIKey: "k", Model: "m"}, WithBaseURL(srv.URL+"/v1"))
	_, err := c.Complete(context.Background(), "", []types.Message{{Role: types.RoleUser, Content: "hi"}})
	assert.Error(t, err)
}
