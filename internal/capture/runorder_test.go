package capture

import (
	"testing"

	"github.com/showring/notify/internal/domain"
)

func entry(id string, armband, runOrder int, scored bool) domain.RunEntry {
	return domain.RunEntry{EntryID: id, Armband: armband, RunOrder: runOrder, Scored: scored}
}

func TestDownstreamOf_RunOrder(t *testing.T) {
	snap := &domain.ClassSnapshot{
		ClassID: "c1",
		Entries: []domain.RunEntry{
			entry("e3", 30, 3, false),
			entry("e1", 10, 1, true),
			entry("e4", 40, 4, false),
			entry("e2", 20, 2, false),
		},
	}

	got := downstreamOf(snap, "e2", 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming entries, got %d", len(got))
	}
	if got[0].entry.EntryID != "e3" || got[0].distance != 1 {
		t.Fatalf("first upcoming: got %s at %d, want e3 at 1", got[0].entry.EntryID, got[0].distance)
	}
	if got[1].entry.EntryID != "e4" || got[1].distance != 2 {
		t.Fatalf("second upcoming: got %s at %d, want e4 at 2", got[1].entry.EntryID, got[1].distance)
	}
}

// Already-scored entries take no position: distance counts only entries
// still waiting to run.
func TestDownstreamOf_SkipsScored(t *testing.T) {
	snap := &domain.ClassSnapshot{
		ClassID: "c1",
		Entries: []domain.RunEntry{
			entry("e1", 10, 1, true),
			entry("e2", 20, 2, true),
			entry("e3", 30, 3, false),
		},
	}

	got := downstreamOf(snap, "e1", 5)
	if len(got) != 1 {
		t.Fatalf("expected 1 upcoming entry, got %d", len(got))
	}
	if got[0].entry.EntryID != "e3" || got[0].distance != 1 {
		t.Fatalf("got %s at %d, want e3 at 1", got[0].entry.EntryID, got[0].distance)
	}
}

func TestDownstreamOf_SpanBounds(t *testing.T) {
	snap := &domain.ClassSnapshot{ClassID: "c1"}
	for i := 1; i <= 10; i++ {
		snap.Entries = append(snap.Entries, entry(string(rune('a'+i)), i*10, i, i == 1))
	}

	got := downstreamOf(snap, snap.Entries[0].EntryID, 3)
	if len(got) != 3 {
		t.Fatalf("expected span to cap at 3 entries, got %d", len(got))
	}
}

// Entries without a run order fall back to armband-number ordering, so a
// mixed snapshot still produces a single consistent sequence.
func TestDownstreamOf_ArmbandFallback(t *testing.T) {
	snap := &domain.ClassSnapshot{
		ClassID: "c1",
		Entries: []domain.RunEntry{
			entry("e7", 7, 0, false),
			entry("e3", 3, 0, true),
			entry("e5", 5, 0, false),
		},
	}

	got := downstreamOf(snap, "e3", 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming entries, got %d", len(got))
	}
	if got[0].entry.EntryID != "e5" || got[1].entry.EntryID != "e7" {
		t.Fatalf("expected armband order e5,e7; got %s,%s", got[0].entry.EntryID, got[1].entry.EntryID)
	}
}

// A paired sibling section shares the ring: its entries interleave into one
// combined order.
func TestDownstreamOf_PairedClassInterleaved(t *testing.T) {
	snap := &domain.ClassSnapshot{
		ClassID:       "c1",
		PairedClassID: "c2",
		Entries: []domain.RunEntry{
			entry("own-1", 10, 1, true),
			entry("pair-1", 15, 2, false),
			entry("own-2", 20, 3, false),
		},
	}

	got := downstreamOf(snap, "own-1", 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming entries, got %d", len(got))
	}
	if got[0].entry.EntryID != "pair-1" || got[1].entry.EntryID != "own-2" {
		t.Fatalf("expected pair-1,own-2; got %s,%s", got[0].entry.EntryID, got[1].entry.EntryID)
	}
}

func TestDownstreamOf_ScoredEntryAbsent(t *testing.T) {
	snap := &domain.ClassSnapshot{
		ClassID: "c1",
		Entries: []domain.RunEntry{entry("e1", 10, 1, false)},
	}

	if got := downstreamOf(snap, "ghost", 5); got != nil {
		t.Fatalf("expected nil for an entry missing from the snapshot, got %v", got)
	}
}

func TestDownstreamOf_LastEntryScored(t *testing.T) {
	snap := &domain.ClassSnapshot{
		ClassID: "c1",
		Entries: []domain.RunEntry{
			entry("e1", 10, 1, true),
			entry("e2", 20, 2, true),
		},
	}

	if got := downstreamOf(snap, "e2", 5); len(got) != 0 {
		t.Fatalf("expected no upcoming entries after the last run, got %d", len(got))
	}
}
