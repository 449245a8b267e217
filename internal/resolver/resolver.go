// Package resolver maps one event to the set of subscriptions that should
// receive it. Resolution is a pure function of the event and the
// subscription snapshot, so re-running it over the same inputs always yields
// the same delivery set.
package resolver

import "github.com/showring/notify/internal/domain"

// Resolve filters the given subscriptions down to those that want the event:
// the category preference must be on; subject-scoped categories additionally
// require the subject to be favorited; up-soon additionally requires the
// distance to be within the recipient's threshold.
//
// Zero matches is a normal outcome, not an error.
func Resolve(ev *domain.Event, subs []*domain.Subscription) []*domain.Subscription {
	var matched []*domain.Subscription
	for _, s := range subs {
		if !s.Active || s.TenantID != ev.TenantID {
			continue
		}
		if wants(ev, s) {
			matched = append(matched, s)
		}
	}
	return matched
}

func wants(ev *domain.Event, s *domain.Subscription) bool {
	p := s.Prefs
	switch ev.Category {
	case domain.CategoryAnnouncement:
		return p.Announcements
	case domain.CategoryClassStart:
		return p.ClassStarts
	case domain.CategoryGateCall:
		return p.GateCalls && p.HasFavorite(ev.EntryID)
	case domain.CategoryUpSoon:
		return p.UpSoon &&
			p.HasFavorite(ev.EntryID) &&
			ev.PositionsAway <= p.EffectiveThreshold()
	}
	return false
}
