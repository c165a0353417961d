package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TypingClearer resets stale typing flags.
type TypingClearer interface {
	ClearStaleTyping(ctx context.Context, maxAge time.Duration) (int, error)
}

// StartTypingSweeper clears stale typing flags every interval until ctx ends.
func StartTypingSweeper(ctx context.Context, clearer TypingClearer, interval, maxAge time.Duration, logger *zap.Logger) {
	if clearer == nil || interval <= 0 {
		return
	}
	logger = logger.With(zap.String("component", "typing_sweeper"))
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepOnce(ctx, clearer, maxAge, logger)
			}
		}
	}()
}

func sweepOnce(ctx context.Context, clearer TypingClearer, maxAge time.Duration, logger *zap.Logger) {
	n, err := clearer.ClearStaleTyping(ctx, maxAge)
	if err != nil {
		logger.Warn("typing sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Debug("cleared stale typing flags", zap.Int("count", n))
	}
}
