package llm

import (
	"context"
	"errors"
	"strings"

	"finchat/internal/interfaces"
	"finchat/internal/llm/claude"
	"finchat/internal/llm/gemini"
	"finchat/internal/llm/llmobs"
	"finchat/internal/llm/openai"
	"finchat/internal/logger"
	"finchat/internal/store"
)

// ErrUnavailable is returned when no language model is configured.
var ErrUnavailable = errors.New("llm unavailable: no provider configured")

// New returns the completer for cfg.Provider wrapped with logging and tracing.
// A missing API key or provider NONE selects the noop completer, which never
// makes a network call.
func New(ctx context.Context, cfg store.LLMConfig) interfaces.Completer {
	provider := strings.ToUpper(cfg.Provider)
	if provider == "NONE" || cfg.APIKey == "" {
		logger.Warn(ctx, "LLM disabled, using noop completer", "provider", provider)
		return llmobs.Wrap("noop", NewNoop())
	}

	switch provider {
	case "CLAUDE":
		return llmobs.Wrap("claude", claude.New(cfg))
	case "GEMINI":
		c, err := gemini.New(ctx, cfg)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to create Gemini client, using noop completer", err)
			return llmobs.Wrap("noop", NewNoop())
		}
		return llmobs.Wrap("gemini", c)
	default:
		return llmobs.Wrap("openai", openai.New(cfg))
	}
}
