package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LikePruner drops likes whose identity is no longer a registered user.
type LikePruner interface {
	PruneLikes(ctx context.Context) (int64, error)
}

// StartOrphanLikeCleaner prunes likes of deleted users with interval until ctx is done.
// A non-positive interval disables the cleaner.
func StartOrphanLikeCleaner(
	ctx context.Context,
	pruner LikePruner,
	interval time.Duration,
	log *zap.Logger,
) {
	if interval <= 0 {
		log.Info("orphan like cleaner disabled")
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				changed, err := pruner.PruneLikes(ctx)
				if err != nil {
					log.Error("failed to prune orphan likes", zap.Error(err))
					continue
				}
				if changed > 0 {
					log.Info("pruned orphan likes", zap.Int64("cards", changed))
				}
			}
		}
	}()
}
