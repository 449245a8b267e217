package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/showring/notify/internal/repository"
)

// Cleaner is the scheduled housekeeping job: it purges succeeded queue items
// past the retention window, deactivates subscriptions unused beyond the
// staleness window, and prunes rate-counter buckets that have aged out.
type Cleaner struct {
	subs     repository.SubscriptionRepository
	queue    repository.QueueRepository
	counters repository.RateCounterRepository

	succeededRetention time.Duration
	staleAfter         time.Duration
	counterRetention   time.Duration

	logger *zap.Logger
}

func NewCleaner(
	subs repository.SubscriptionRepository,
	queue repository.QueueRepository,
	counters repository.RateCounterRepository,
	succeededRetention, staleAfter, counterRetention time.Duration,
	logger *zap.Logger,
) *Cleaner {
	return &Cleaner{
		subs:               subs,
		queue:              queue,
		counters:           counters,
		succeededRetention: succeededRetention,
		staleAfter:         staleAfter,
		counterRetention:   counterRetention,
		logger:             logger,
	}
}

// Run executes one cleanup pass. Each step is independent; a failing step is
// logged and the rest still run. Dead letters are deliberately untouched.
func (c *Cleaner) Run(ctx context.Context) {
	now := time.Now().UTC()

	if n, err := c.queue.PurgeSucceeded(ctx, now.Add(-c.succeededRetention)); err != nil {
		c.logger.Error("purge of succeeded queue items failed", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("purged succeeded queue items", zap.Int64("count", n))
	}

	if n, err := c.subs.DeactivateStale(ctx, now.Add(-c.staleAfter)); err != nil {
		c.logger.Error("stale subscription sweep failed", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("deactivated stale subscriptions", zap.Int64("count", n))
	}

	if n, err := c.counters.Prune(ctx, now.Add(-c.counterRetention)); err != nil {
		c.logger.Error("rate counter prune failed", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("pruned rate counter buckets", zap.Int64("count", n))
	}
}
