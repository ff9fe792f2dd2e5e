package interfaces

import (
	"context"

	"finchat/internal/types"
)

type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []types.Message) (string, error)
}
