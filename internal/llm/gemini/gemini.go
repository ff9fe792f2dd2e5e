package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"finchat/internal/interfaces"
	"finchat/internal/store"
	"finchat/internal/types"
)

type Completer struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

var _ interfaces.Completer = (*Completer)(nil)

func New(ctx context.Context, cfg store.LLMConfig) (*Completer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Completer{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

func (c *Completer) Complete(ctx context.Context, systemPrompt string, history []types.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents, system := toContents(history)
	if systemPrompt != "" {
		system = append([]string{systemPrompt}, system...)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = int32(c.maxTokens)
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := firstText(resp)
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// toContents maps history to Gemini roles. System messages go to the
// system instruction instead.
func toContents(history []types.Message) ([]*genai.Content, []string) {
	var system []string
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := string(genai.RoleUser)
		switch m.Role {
		case types.RoleSystem:
			system = append(system, m.Content)
			continue
		case types.RoleAssistant:
			role = string(genai.RoleModel)
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	return contents, system
}

// firstText returns the text of the first candidate that has any.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if b.Len() > 0 {
			return strings.TrimSpace(b.String())
		}
	}
	return ""
}
