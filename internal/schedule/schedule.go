package schedule

import (
	"interactiveplayer/internal/models"
	"sort"
)

// Entry is a single show trigger on the timeline.
type Entry struct {
	TriggerMs int64
	MomentID  string
}

// Schedule is the sorted list of show triggers for a catalog. It is immutable after New.
type Schedule struct {
	entries []Entry
}

// New builds the schedule from every schedulable moment in the catalog.
// Entries are sorted by trigger time; equal trigger times keep catalog order.
func New(catalog *models.Catalog) *Schedule {
	var entries []Entry
	for _, m := range catalog.Moments() {
		if !m.Schedulable() {
			continue
		}
		entries = append(entries, Entry{TriggerMs: m.StartMs, MomentID: m.ID})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TriggerMs < entries[j].TriggerMs
	})

	return &Schedule{entries: entries}
}

// Len returns the number of triggers.
func (s *Schedule) Len() int {
	return len(s.entries)
}

// Entries returns a copy of all triggers in schedule order.
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// EntriesInRange returns the ids of moments triggering within [loMs, hiMs], in schedule order.
func (s *Schedule) EntriesInRange(loMs, hiMs int64) []string {
	if hiMs < loMs {
		return nil
	}
	first := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].TriggerMs >= loMs
	})

	var ids []string
	for i := first; i < len(s.entries) && s.entries[i].TriggerMs <= hiMs; i++ {
		ids = append(ids, s.entries[i].MomentID)
	}
	return ids
}

// NextAfter returns the first trigger strictly after ms.
func (s *Schedule) NextAfter(ms int64) (Entry, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].TriggerMs > ms
	})
	if i == len(s.entries) {
		return Entry{}, false
	}
	return s.entries[i], true
}
