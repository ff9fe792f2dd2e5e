package llmobs

import (
	"context"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/trace"
	"finchat/internal/types"
)

// observableCompleter wraps a Completer with observability (logging & tracing)
type observableCompleter struct {
	name      string
	completer interfaces.Completer
}

// Compile-time interface check
var _ interfaces.Completer = (*observableCompleter)(nil)

// Wrap wraps a completer with observability middleware
func Wrap(name string, completer interfaces.Completer) interfaces.Completer {
	return &observableCompleter{name: name, completer: completer}
}

func (o *observableCompleter) Complete(ctx context.Context, systemPrompt string, history []types.Message) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"provider", o.name,
		"messages", len(history),
		"system_chars", len(systemPrompt),
	)

	if logger.IsDebugEnabled() && len(history) > 0 {
		logger.DebugSkip(ctx, 1, "Completion prompt", "provider", o.name, "last_message", preview(history[len(history)-1].Content))
	}

	out, err := o.completer.Complete(ctx, systemPrompt, history)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err, "provider", o.name)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Completion received", "provider", o.name, "chars", len(out))
	return out, nil
}

const previewChars = 200

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewChars {
		return s
	}
	return string(r[:previewChars]) + "..."
}
