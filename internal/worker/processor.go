package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/showring/notify/internal/dispatch"
	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/repository"
	"github.com/showring/notify/internal/retryq"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the processor constructor signature clean.
type MetricHooks struct {
	OnDelivered    func(category domain.Category, latency time.Duration)
	OnFailed       func(category domain.Category)
	OnDeadLettered func(category domain.Category)
	OnBatch        func(due int)
}

func (h *MetricHooks) fillNoops() {
	if h.OnDelivered == nil {
		h.OnDelivered = func(domain.Category, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Category) {}
	}
	if h.OnDeadLettered == nil {
		h.OnDeadLettered = func(domain.Category) {}
	}
	if h.OnBatch == nil {
		h.OnBatch = func(int) {}
	}
}

// Processor drains due retry items. It is the single place where queued
// deliveries get attempted again, invoked on a schedule (or on demand via
// the process endpoint). Each run selects a bounded batch oldest-due-first
// and spreads the attempts over a small worker pool; per-item state
// transitions are item-scoped, so items in a batch are independent.
type Processor struct {
	queue      repository.QueueRepository
	subs       repository.SubscriptionRepository
	retry      *retryq.Service
	dispatcher dispatch.Dispatcher
	limiter    *rate.Limiter
	batchSize  int
	workers    int
	hooks      MetricHooks
	logger     *zap.Logger
}

func NewProcessor(
	queue repository.QueueRepository,
	subs repository.SubscriptionRepository,
	retry *retryq.Service,
	dispatcher dispatch.Dispatcher,
	dispatchPerSec int,
	batchSize int,
	workers int,
	hooks MetricHooks,
	logger *zap.Logger,
) *Processor {
	hooks.fillNoops()
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		queue:      queue,
		subs:       subs,
		retry:      retry,
		dispatcher: dispatcher,
		limiter:    rate.NewLimiter(rate.Limit(dispatchPerSec), dispatchPerSec),
		batchSize:  batchSize,
		workers:    workers,
		hooks:      hooks,
		logger:     logger,
	}
}

// ProcessDue runs one drain pass. A failing pass logs and returns; the next
// scheduled tick simply tries again, so there is nothing to crash-loop.
func (p *Processor) ProcessDue(ctx context.Context) error {
	items, err := p.queue.FindDue(ctx, time.Now().UTC(), p.batchSize)
	if err != nil {
		p.logger.Error("retry batch selection failed", zap.Error(err))
		return err
	}
	p.hooks.OnBatch(len(items))
	if len(items) == 0 {
		return nil
	}

	jobs := make(chan *domain.QueueItem)
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				p.processItem(ctx, item)
			}
		}()
	}

	// Items are already oldest-due-first from the repository; feeding a
	// single channel preserves that order into the pool.
	for _, item := range items {
		select {
		case jobs <- item:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	p.logger.Info("retry batch processed", zap.Int("count", len(items)))
	return nil
}

func (p *Processor) processItem(ctx context.Context, item *domain.QueueItem) {
	log := p.logger.With(
		zap.String("queue_item_id", item.ID),
		zap.String("category", string(item.Category)),
		zap.Int("retry_count", item.RetryCount),
	)

	// Claim before act: only the run that wins the pending->retrying flip
	// may attempt delivery.
	claimed, err := p.queue.Claim(ctx, item.ID)
	if err != nil {
		log.Error("failed to claim queue item", zap.Error(err))
		return
	}
	if !claimed {
		log.Debug("queue item claimed by a concurrent run, skipping")
		return
	}

	payload, err := retryq.ParsePayload(item)
	if err != nil {
		// The payload will never deliver; quarantine it for an operator.
		log.Error("unparseable queue payload, dead-lettering", zap.Error(err))
		if dlErr := p.queue.MoveToDeadLetter(ctx, item, err.Error(), time.Now().UTC()); dlErr != nil {
			log.Error("failed to dead-letter unparseable item", zap.Error(dlErr))
		}
		p.hooks.OnDeadLettered(item.Category)
		return
	}

	if err := p.limiter.Wait(ctx); err != nil {
		// ctx cancelled while waiting — shutting down; put the item back.
		if relErr := p.retry.Release(ctx, item); relErr != nil {
			log.Error("failed to release claimed item on shutdown", zap.Error(relErr))
		}
		return
	}

	start := time.Now()
	target := dispatch.Target{
		SubscriptionID: payload.SubscriptionID,
		Endpoint:       payload.Endpoint,
		Keys:           payload.EndpointKeys,
	}
	sendErr := p.dispatcher.Send(ctx, target, &payload.Event)

	if sendErr == nil {
		if err := p.retry.RecordSuccess(ctx, item); err != nil {
			log.Error("failed to mark item succeeded", zap.Error(err))
			return
		}
		if err := p.subs.Touch(ctx, payload.SubscriptionID, time.Now().UTC()); err != nil {
			log.Warn("failed to update subscription last-used", zap.Error(err))
		}
		p.hooks.OnDelivered(item.Category, time.Since(start))
		log.Info("retry delivered", zap.Duration("latency", time.Since(start)))
		return
	}

	if errors.Is(sendErr, domain.ErrSecretUnset) {
		// Config error: retrying will not help until rotation, and burning
		// the retry budget on it would dead-letter healthy items.
		log.Warn("gateway secrets not configured, deferring item")
		if relErr := p.retry.Release(ctx, item); relErr != nil {
			log.Error("failed to defer item", zap.Error(relErr))
		}
		return
	}

	deadLettered, err := p.retry.RecordFailure(ctx, item, sendErr)
	if err != nil {
		log.Error("failed to record delivery failure", zap.Error(err))
		return
	}
	if deadLettered {
		p.hooks.OnDeadLettered(item.Category)
	} else {
		p.hooks.OnFailed(item.Category)
	}
}
