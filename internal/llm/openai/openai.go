package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"finchat/internal/interfaces"
	"finchat/internal/store"
	"finchat/internal/types"
)

// Completer talks to the OpenAI chat completions endpoint.
type Completer struct {
	client      *goopenai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

var _ interfaces.Completer = (*Completer)(nil)

type Option func(*goopenai.ClientConfig)

// WithBaseURL points the client at a compatible endpoint, e.g. a proxy.
func WithBaseURL(u string) Option {
	return func(c *goopenai.ClientConfig) { c.BaseURL = u }
}

func New(cfg store.LLMConfig, opts ...Option) *Completer {
	cc := goopenai.DefaultConfig(cfg.APIKey)
	for _, opt := range opts {
		opt(&cc)
	}
	return &Completer{
		client:      goopenai.NewClientWithConfig(cc),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

func (c *Completer) Complete(ctx context.Context, systemPrompt string, history []types.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toMessages(systemPrompt, history),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toMessages(systemPrompt string, history []types.Message) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case types.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		case types.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}
