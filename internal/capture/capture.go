// Package capture observes domain state transitions and turns the ones worth
// announcing into notification events, then fans them out to matching
// subscriptions. Capture runs inline with the triggering transition but is
// strictly best-effort: its own failures are logged and swallowed so a
// notification problem can never roll back a score.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/showring/notify/internal/dispatch"
	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/repository"
	"github.com/showring/notify/internal/resolver"
	"github.com/showring/notify/internal/retryq"
)

// announcementGate is the throttle consulted before an announcement is
// accepted. Satisfied by ratelimiter.AnnouncementLimiter.
type announcementGate interface {
	Allow(ctx context.Context, tenantID string) (allowed bool, retryAfter time.Duration, err error)
}

// MetricHooks carries the metric callback functions injected by main.
type MetricHooks struct {
	OnDelivered   func(category domain.Category, latency time.Duration)
	OnFailed      func(category domain.Category)
	OnRateLimited func(surface string)
}

func (h *MetricHooks) fillNoops() {
	if h.OnDelivered == nil {
		h.OnDelivered = func(domain.Category, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Category) {}
	}
	if h.OnRateLimited == nil {
		h.OnRateLimited = func(string) {}
	}
}

// Service is the event-capture entry point.
type Service struct {
	subs       repository.SubscriptionRepository
	dispatcher dispatch.Dispatcher
	retry      *retryq.Service
	gate       announcementGate
	upSoonSpan int
	hooks      MetricHooks
	logger     *zap.Logger
}

func New(
	subs repository.SubscriptionRepository,
	dispatcher dispatch.Dispatcher,
	retry *retryq.Service,
	gate announcementGate,
	upSoonSpan int,
	hooks MetricHooks,
	logger *zap.Logger,
) *Service {
	hooks.fillNoops()
	return &Service{
		subs:       subs,
		dispatcher: dispatcher,
		retry:      retry,
		gate:       gate,
		upSoonSpan: upSoonSpan,
		hooks:      hooks,
		logger:     logger,
	}
}

// HandleChange processes one record from the domain state-change feed.
//
// The only errors it returns are a validation failure and the announcement
// rate-limit rejection (a *domain.RateLimitError); every downstream failure
// — resolution, dispatch, queueing — is logged and swallowed.
func (s *Service) HandleChange(ctx context.Context, ch *domain.StateChange) error {
	if err := ch.Validate(); err != nil {
		return err
	}

	switch ch.Kind {
	case domain.ChangeAnnouncement:
		return s.handleAnnouncement(ctx, ch)
	case domain.ChangeEntryScored:
		s.handleEntryScored(ctx, ch)
	case domain.ChangeEntryStatus:
		s.handleEntryStatus(ctx, ch)
	case domain.ChangeClassStatus:
		s.handleClassStatus(ctx, ch)
	}
	return nil
}

func (s *Service) handleAnnouncement(ctx context.Context, ch *domain.StateChange) error {
	allowed, retryAfter, err := s.gate.Allow(ctx, ch.TenantID)
	if err != nil {
		// Fail open: a broken counter store should not silence the show.
		s.logger.Warn("announcement limiter unavailable, allowing",
			zap.String("tenant_id", ch.TenantID), zap.Error(err))
	} else if !allowed {
		s.hooks.OnRateLimited("announcements")
		return &domain.RateLimitError{RetryAfter: retryAfter}
	}

	a := ch.Announcement
	s.fanOut(ctx, &domain.Event{
		Category:       domain.CategoryAnnouncement,
		TenantID:       ch.TenantID,
		AnnouncementID: a.ID,
		Title:          a.Title,
		Body:           a.Body,
		OccurredAt:     time.Now().UTC(),
	})
	return nil
}

func (s *Service) handleEntryScored(ctx context.Context, ch *domain.StateChange) {
	snap := ch.Snapshot
	coming := downstreamOf(snap, ch.EntryID, s.upSoonSpan)
	if coming == nil {
		s.logger.Warn("scored entry missing from class snapshot",
			zap.String("entry_id", ch.EntryID), zap.String("class_id", snap.ClassID))
		return
	}

	for _, u := range coming {
		s.fanOut(ctx, &domain.Event{
			Category:      domain.CategoryUpSoon,
			TenantID:      ch.TenantID,
			EntryID:       u.entry.EntryID,
			Title:         fmt.Sprintf("Up soon: armband %d", u.entry.Armband),
			Body:          fmt.Sprintf("Armband %d is %d dog(s) away in %s", u.entry.Armband, u.distance, snap.ClassName),
			Armband:       u.entry.Armband,
			ClassID:       snap.ClassID,
			ClassName:     snap.ClassName,
			PositionsAway: u.distance,
			OccurredAt:    time.Now().UTC(),
		})
	}
}

func (s *Service) handleEntryStatus(ctx context.Context, ch *domain.StateChange) {
	// Re-entering the same status is not a transition; never re-notify.
	if ch.NewStatus == ch.OldStatus {
		return
	}
	if ch.NewStatus != domain.EntryStatusGateCall {
		return
	}

	s.fanOut(ctx, &domain.Event{
		Category:   domain.CategoryGateCall,
		TenantID:   ch.TenantID,
		EntryID:    ch.EntryID,
		Title:      "Gate call",
		Body:       fmt.Sprintf("Armband %d to the gate for %s", ch.Armband, ch.ClassName),
		Armband:    ch.Armband,
		ClassID:    ch.ClassID,
		ClassName:  ch.ClassName,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *Service) handleClassStatus(ctx context.Context, ch *domain.StateChange) {
	if ch.NewStatus == ch.OldStatus || ch.NewStatus != domain.ClassStatusActive {
		return
	}

	s.fanOut(ctx, &domain.Event{
		Category:   domain.CategoryClassStart,
		TenantID:   ch.TenantID,
		Title:      fmt.Sprintf("%s is underway", ch.ClassName),
		Body:       fmt.Sprintf("%s has started", ch.ClassName),
		ClassID:    ch.ClassID,
		ClassName:  ch.ClassName,
		OccurredAt: time.Now().UTC(),
	})
}

// fanOut resolves recipients for one event and attempts delivery to each.
// A resolution failure degrades to zero recipients.
func (s *Service) fanOut(ctx context.Context, ev *domain.Event) {
	subs, err := s.subs.ListActive(ctx, ev.TenantID)
	if err != nil {
		s.logger.Error("subscription lookup failed, skipping event",
			zap.String("category", string(ev.Category)), zap.Error(err))
		return
	}

	for _, sub := range resolver.Resolve(ev, subs) {
		s.deliver(ctx, sub, ev)
	}
}

// deliver performs the inline first attempt for one (subscription, event)
// pair. Transient failures hand off to the retry queue; an unusable secret
// is a hard stop for the attempt and creates no queue item.
func (s *Service) deliver(ctx context.Context, sub *domain.Subscription, ev *domain.Event) {
	start := time.Now()
	target := dispatch.TargetFor(sub)

	err := s.dispatcher.Send(ctx, target, ev)
	if err == nil {
		if touchErr := s.subs.Touch(ctx, sub.ID, time.Now().UTC()); touchErr != nil {
			s.logger.Warn("failed to update subscription last-used",
				zap.String("subscription_id", sub.ID), zap.Error(touchErr))
		}
		s.hooks.OnDelivered(ev.Category, time.Since(start))
		return
	}

	if errors.Is(err, domain.ErrSecretUnset) {
		s.logger.Warn("gateway secrets not configured, dropping delivery",
			zap.String("subscription_id", sub.ID),
			zap.String("category", string(ev.Category)),
		)
		return
	}

	s.logger.Warn("first delivery attempt failed",
		zap.String("subscription_id", sub.ID),
		zap.String("category", string(ev.Category)),
		zap.Error(err),
	)
	s.hooks.OnFailed(ev.Category)

	if qErr := s.retry.EnqueueFailure(ctx, ev, target, err); qErr != nil {
		s.logger.Error("failed to queue delivery for retry",
			zap.String("subscription_id", sub.ID), zap.Error(qErr))
	}
}
