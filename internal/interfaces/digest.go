package interfaces

import (
	"time"

	"finchat/internal/types"
)

// DigestWriter persists the daily table of macro contexts.
type DigestWriter interface {
	// WriteDay writes the digest for the date of t. An empty contexts slice
	// writes nothing and returns an empty path.
	WriteDay(t time.Time, contexts []types.MacroContext) (csvPath string, err error)

	// ShouldRunNow reports whether the market has closed for the day and no
	// digest exists yet.
	ShouldRunNow(now time.Time) bool
}
