package scheduler

import (
	"fmt"
	"interactiveplayer/internal/logger"
	"interactiveplayer/internal/models"
	"interactiveplayer/internal/schedule"
	"sort"
)

// EventKind distinguishes show and hide transitions.
type EventKind int

const (
	MomentShown EventKind = iota + 1
	MomentHidden
)

func (k EventKind) String() string {
	switch k {
	case MomentShown:
		return "shown"
	case MomentHidden:
		return "hidden"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single transition produced by the scheduler.
type Event struct {
	Kind       EventKind
	Moment     models.Moment
	PositionMs int64
}

// Scheduler tracks which moments are on screen for a playback position.
// Activity is recomputed from each moment's window on every tick, so a moment that was
// left can be entered again after a backward seek.
//
// A Scheduler is not safe for concurrent use; one owner drives it.
type Scheduler struct {
	logger   logger.Logger
	catalog  *models.Catalog
	schedule *schedule.Schedule
	moments  []models.Moment
	active   map[string]bool
}

// New creates a scheduler with nothing active.
func New(log logger.Logger, catalog *models.Catalog, sched *schedule.Schedule) *Scheduler {
	return &Scheduler{
		logger:   log,
		catalog:  catalog,
		schedule: sched,
		moments:  catalog.Moments(),
		active:   make(map[string]bool, catalog.Len()),
	}
}

// Tick reconciles the active set with positionMs and returns the resulting transitions.
// Hidden events come first, then Shown events, each in catalog order.
// Ticking twice at the same position returns no events the second time.
func (s *Scheduler) Tick(positionMs int64) []Event {
	var events []Event

	for _, m := range s.moments {
		if s.active[m.ID] && !m.Contains(positionMs) {
			delete(s.active, m.ID)
			events = append(events, Event{Kind: MomentHidden, Moment: m, PositionMs: positionMs})
		}
	}

	for _, m := range s.moments {
		if !s.active[m.ID] && m.Contains(positionMs) {
			s.active[m.ID] = true
			events = append(events, Event{Kind: MomentShown, Moment: m, PositionMs: positionMs})
		}
	}

	return events
}

// Lower hides one moment immediately, independent of the next tick.
// It returns false when the moment was not active.
func (s *Scheduler) Lower(id string, positionMs int64) (Event, bool) {
	if !s.active[id] {
		return Event{}, false
	}
	delete(s.active, id)

	m, found := s.catalog.Get(id)
	if !found {
		s.logger.Warnf("Cannot lower moment %q: not in catalog", id)
		return Event{}, false
	}
	return Event{Kind: MomentHidden, Moment: m, PositionMs: positionMs}, true
}

// LowerAll hides every active moment, in catalog order.
func (s *Scheduler) LowerAll(positionMs int64) []Event {
	var events []Event
	for _, m := range s.moments {
		if ev, ok := s.Lower(m.ID, positionMs); ok {
			events = append(events, ev)
		}
	}
	return events
}

// IsActive reports whether the moment is currently shown.
func (s *Scheduler) IsActive(id string) bool {
	return s.active[id]
}

// Active returns the shown moments in catalog order.
func (s *Scheduler) Active() []models.Moment {
	var out []models.Moment
	for _, m := range s.moments {
		if s.active[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// ActiveIDs returns the ids of shown moments, sorted.
func (s *Scheduler) ActiveIDs() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Upcoming returns the moments triggering after positionMs and no later than positionMs+horizonMs.
func (s *Scheduler) Upcoming(positionMs, horizonMs int64) []string {
	if horizonMs <= 0 {
		return nil
	}
	return s.schedule.EntriesInRange(positionMs+1, positionMs+horizonMs)
}
