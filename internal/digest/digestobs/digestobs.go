package digestobs

import (
	"context"
	"time"

	"finchat/internal/interfaces"
	"finchat/internal/logger"
	"finchat/internal/trace"
	"finchat/internal/types"
)

type observableDigest struct {
	writer interfaces.DigestWriter
}

var _ interfaces.DigestWriter = (*observableDigest)(nil)

func Wrap(writer interfaces.DigestWriter) interfaces.DigestWriter {
	return &observableDigest{writer: writer}
}

func (o *observableDigest) WriteDay(t time.Time, contexts []types.MacroContext) (string, error) {
	ctx := context.Background()
	ctx, span := trace.StartSpan(ctx, "digest.WriteDay")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting daily digest",
		"date", t.Format("2006-01-02"),
		"tickers", len(contexts),
	)

	csvPath, err := o.writer.WriteDay(t, contexts)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Daily digest failed", err,
			"date", t.Format("2006-01-02"),
		)
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No contexts for daily digest",
			"date", t.Format("2006-01-02"),
		)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "Daily digest written",
		"date", t.Format("2006-01-02"),
		"csv_path", csvPath,
	)
	return csvPath, nil
}

func (o *observableDigest) ShouldRunNow(now time.Time) bool {
	ctx, span := trace.StartSpan(context.Background(), "digest.ShouldRunNow")
	defer span.End()

	run := o.writer.ShouldRunNow(now)
	logger.DebugSkip(ctx, 1, "Digest check completed", "should_run", run)
	return run
}
