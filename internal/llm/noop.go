package llm

import (
	"context"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/types"
)

// Noop is the completer used when no LLM credentials are configured.
type Noop struct{}

var _ interfaces.Completer = (*Noop)(nil)

func NewNoop() *Noop {
	return &Noop{}
}

// Complete always fails with ErrUnavailable.
func (n *Noop) Complete(ctx context.Context, systemPrompt string, history []types.Message) (string, error) {
	logger.Debug(ctx, "Noop completer called", "messages", len(history))
	return "", ErrUnavailable
}
