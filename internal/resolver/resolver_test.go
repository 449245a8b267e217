package resolver_test

import (
	"testing"

	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/resolver"
)

func sub(id, tenant string, prefs domain.Preferences) *domain.Subscription {
	return &domain.Subscription{
		ID:       id,
		TenantID: tenant,
		Endpoint: "https://push.example.com/ep/" + id,
		Prefs:    prefs,
		Active:   true,
	}
}

func ids(subs []*domain.Subscription) map[string]bool {
	set := make(map[string]bool, len(subs))
	for _, s := range subs {
		set[s.ID] = true
	}
	return set
}

func TestResolve_AnnouncementByPreference(t *testing.T) {
	ev := &domain.Event{Category: domain.CategoryAnnouncement, TenantID: "show-1"}
	subs := []*domain.Subscription{
		sub("on", "show-1", domain.Preferences{Announcements: true}),
		sub("off", "show-1", domain.Preferences{Announcements: false}),
		sub("other-tenant", "show-2", domain.Preferences{Announcements: true}),
	}

	got := ids(resolver.Resolve(ev, subs))
	if len(got) != 1 || !got["on"] {
		t.Fatalf("expected exactly {on}, got %v", got)
	}
}

func TestResolve_InactiveExcluded(t *testing.T) {
	ev := &domain.Event{Category: domain.CategoryAnnouncement, TenantID: "show-1"}
	inactive := sub("gone", "show-1", domain.Preferences{Announcements: true})
	inactive.Active = false

	if got := resolver.Resolve(ev, []*domain.Subscription{inactive}); len(got) != 0 {
		t.Fatalf("inactive subscription resolved: %v", ids(got))
	}
}

func TestResolve_GateCallRequiresFavorite(t *testing.T) {
	ev := &domain.Event{Category: domain.CategoryGateCall, TenantID: "show-1", EntryID: "e42"}
	subs := []*domain.Subscription{
		sub("fan", "show-1", domain.Preferences{GateCalls: true, Favorites: []string{"e42"}}),
		sub("opted-in-no-favorite", "show-1", domain.Preferences{GateCalls: true}),
		sub("favorite-no-opt-in", "show-1", domain.Preferences{Favorites: []string{"e42"}}),
	}

	got := ids(resolver.Resolve(ev, subs))
	if len(got) != 1 || !got["fan"] {
		t.Fatalf("expected exactly {fan}, got %v", got)
	}
}

func TestResolve_UpSoonThreshold(t *testing.T) {
	base := domain.Preferences{UpSoon: true, Favorites: []string{"e42"}}

	within := base
	within.UpSoonThreshold = 3
	beyond := base
	beyond.UpSoonThreshold = 1

	ev := &domain.Event{
		Category:      domain.CategoryUpSoon,
		TenantID:      "show-1",
		EntryID:       "e42",
		PositionsAway: 2,
	}
	subs := []*domain.Subscription{
		sub("within", "show-1", within),
		sub("beyond", "show-1", beyond),
		sub("default", "show-1", base), // unset threshold defaults to 3
	}

	got := ids(resolver.Resolve(ev, subs))
	if len(got) != 2 || !got["within"] || !got["default"] {
		t.Fatalf("expected {within, default}, got %v", got)
	}
}

// Resolution is pure: the same inputs always produce the same delivery set.
func TestResolve_Deterministic(t *testing.T) {
	ev := &domain.Event{Category: domain.CategoryClassStart, TenantID: "show-1"}
	subs := []*domain.Subscription{
		sub("a", "show-1", domain.Preferences{ClassStarts: true}),
		sub("b", "show-1", domain.Preferences{ClassStarts: true}),
		sub("c", "show-1", domain.Preferences{}),
	}

	first := ids(resolver.Resolve(ev, subs))
	for i := 0; i < 10; i++ {
		again := ids(resolver.Resolve(ev, subs))
		if len(again) != len(first) {
			t.Fatalf("run %d: delivery set changed: %v vs %v", i, again, first)
		}
		for id := range first {
			if !again[id] {
				t.Fatalf("run %d: missing %s", i, id)
			}
		}
	}
}

func TestResolve_NoMatchesIsNormal(t *testing.T) {
	ev := &domain.Event{Category: domain.CategoryUpSoon, TenantID: "show-1", EntryID: "e1", PositionsAway: 1}
	if got := resolver.Resolve(ev, nil); got != nil {
		t.Fatalf("expected nil for no subscriptions, got %v", got)
	}
}
