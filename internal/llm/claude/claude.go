package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"finchat/internal/interfaces"
	"finchat/internal/store"
	"finchat/internal/types"
)

// Completer implements interfaces.Completer on the Anthropic Messages API.
type Completer struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

var _ interfaces.Completer = (*Completer)(nil)

// New builds a Claude completer. Extra request options (base URL, retries)
// are passed to the SDK client as is.
func New(cfg store.LLMConfig, opts ...option.RequestOption) *Completer {
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return &Completer{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
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

	msgs, system := toMessages(history)
	if systemPrompt != "" {
		system = append([]string{systemPrompt}, system...)
	}
	if len(msgs) == 0 {
		return "", errors.New("claude: no user message to send")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  msgs,
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.temperature))
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("claude: empty response")
	}
	return strings.TrimSpace(out.String()), nil
}

// toMessages splits system messages out of history; Claude takes them as a
// separate field.
func toMessages(history []types.Message) ([]anthropic.MessageParam, []string) {
	var system []string
	msgs := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case types.RoleSystem:
			system = append(system, m.Content)
		case types.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return msgs, system
}
