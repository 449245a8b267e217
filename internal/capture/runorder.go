package capture

import (
	"sort"

	"github.com/showring/notify/internal/domain"
)

// upcoming is one not-yet-scored entry downstream of a just-scored one,
// with its distance in positions (1 = runs next).
type upcoming struct {
	entry    domain.RunEntry
	distance int
}

// orderKey is the position of an entry in run-order space. The run order is
// the primary key; when it is unset the armband number stands in for it.
func orderKey(e domain.RunEntry) int {
	if e.RunOrder > 0 {
		return e.RunOrder
	}
	return e.Armband
}

// downstreamOf computes, across the combined run order of a class and its
// paired section, the next span not-yet-scored entries after the entry that
// was just scored. Ties on the ordering key are broken by armband number.
//
// Returns nil when the scored entry is not in the snapshot.
func downstreamOf(snap *domain.ClassSnapshot, scoredID string, span int) []upcoming {
	entries := make([]domain.RunEntry, len(snap.Entries))
	copy(entries, snap.Entries)
	sort.Slice(entries, func(i, j int) bool {
		ki, kj := orderKey(entries[i]), orderKey(entries[j])
		if ki != kj {
			return ki < kj
		}
		return entries[i].Armband < entries[j].Armband
	})

	start := -1
	for i, e := range entries {
		if e.EntryID == scoredID {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var result []upcoming
	for _, e := range entries[start+1:] {
		if e.Scored {
			continue
		}
		result = append(result, upcoming{entry: e, distance: len(result) + 1})
		if len(result) == span {
			break
		}
	}
	return result
}
