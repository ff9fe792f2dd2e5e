package interfaces

import "finchat/internal/types"

type TranscriptWriter interface {
	Append(entry types.TranscriptEntry) error
}
